/*
Copyright 2026 The Launchline Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// The entry point for the container startup sequencer.

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/launchline/launchline/internal/journal"
	redisjournal "github.com/launchline/launchline/internal/journal/redis"
	"github.com/launchline/launchline/internal/sequencer"
	"github.com/launchline/launchline/internal/sequencer/config"
	"github.com/launchline/launchline/internal/statusapi"
)

func main() {
	os.Exit(run())
}

// run is separated from main so deferred cleanup executes before os.Exit.
func run() int {
	// load configuration & logging setup
	cfg := config.NewConfig()
	fs := flag.NewFlagSet("launchline", flag.ExitOnError)

	cfgFilePath := fs.String("config", "", "Path to configuration file")
	cfg.AddFlags(fs)
	klog.InitFlags(fs)
	fs.Parse(os.Args[1:])

	defer klog.Flush()

	if *cfgFilePath != "" {
		if err := cfg.LoadFromYAML(*cfgFilePath); err != nil {
			klog.InfoS("Failed to load config file, using defaults", "path", *cfgFilePath)
		}
		// re-apply command line flags so they win over file values
		fs.Parse(os.Args[1:])
	}
	if err := cfg.Validate(); err != nil {
		klog.ErrorS(err, "Invalid configuration")
		return 2
	}

	// setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 2)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signalChan
		klog.InfoS("Received shutdown signal, terminating primary process...", "signal", sig)
		cancel()

		sig = <-signalChan
		klog.InfoS("Received second shutdown signal, forcing shutdown...", "signal", sig)
		os.Exit(1) // force exit immediately for second signal
	}()

	// the in-memory journal always backs /status; redis is layered on top
	// when configured
	mem := journal.NewMemory()
	var jrnl journal.Journal = mem
	if cfg.Journal.RedisURL != "" {
		rj, err := redisjournal.New(ctx, &redisjournal.Config{
			URL:         cfg.Journal.RedisURL,
			ServiceName: cfg.Journal.ServiceName,
			TTL:         cfg.Journal.TTL,
			Timeout:     cfg.Journal.Timeout,
		})
		if err != nil {
			klog.ErrorS(err, "Redis journal unavailable, keeping journal in memory")
		} else {
			defer rj.Close()
			jrnl = journal.NewTee(mem, rj)
		}
	}

	// setup metrics, health and status endpoints (background goroutine)
	if cfg.Observability.Enabled {
		go func() {
			klog.InfoS("Starting observability server", "address", cfg.Observability.Address)
			if err := http.ListenAndServe(cfg.Observability.Address, statusapi.NewMux(mem)); err != nil {
				klog.ErrorS(err, "Observability server failed")
			}
		}()
	}

	seq := sequencer.New(cfg, jrnl)
	klog.InfoS("Starting startup sequence",
		"runID", seq.RunID(),
		"helper", cfg.Helper.Command,
		"readinessMode", cfg.Readiness.Mode,
		"primary", cfg.Primary.Command,
	)

	code, err := seq.Run(ctx)
	if err != nil {
		klog.ErrorS(err, "Startup sequence failed", "exitCode", code)
	}
	klog.InfoS("Startup sequence finished", "exitCode", code)
	return code
}
