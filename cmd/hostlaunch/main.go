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

// The entry point for the host launcher. It checks the host prerequisites,
// bootstraps a local environment, then runs the application command in the
// foreground with its exit code propagated.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"k8s.io/klog/v2"

	"github.com/launchline/launchline/internal/hostenv"
	"github.com/launchline/launchline/internal/sequencer/process"
)

const shutdownGrace = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("hostlaunch", flag.ExitOnError)
	interpreter := fs.String("interpreter", "python3", "Runtime required on PATH before any setup happens")
	envDir := fs.String("env-dir", ".venv", "Local environment directory, created on first run")
	dotenv := fs.String("dotenv", ".env", "Optional environment file loaded before launch")
	klog.InitFlags(fs)
	fs.Parse(os.Args[1:])

	defer klog.Flush()

	args := fs.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: hostlaunch [flags] -- command [args...]")
		return 2
	}

	// prerequisite check happens before any setup, so a broken host fails
	// fast without touching the filesystem
	path, err := hostenv.CheckInterpreter(*interpreter)
	if err != nil {
		klog.ErrorS(err, "Host prerequisite check failed", "interpreter", *interpreter)
		return 1
	}
	klog.InfoS("Interpreter found", "interpreter", *interpreter, "path", path)

	created, err := hostenv.EnsureEnvDir(*envDir)
	if err != nil {
		klog.ErrorS(err, "Failed to prepare local environment", "dir", *envDir)
		return 1
	}
	if created {
		klog.InfoS("Created local environment", "dir", *envDir)
	}

	if err := hostenv.LoadDotenv(*dotenv); err != nil {
		klog.ErrorS(err, "Failed to load environment file", "path", *dotenv)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 2)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		cancel()
		<-signalChan
		os.Exit(1)
	}()

	code, err := process.Run(ctx, process.Command{
		Program: args[0],
		Args:    args[1:],
	}, shutdownGrace, nil)
	if err != nil {
		klog.ErrorS(err, "Application launch failed")
	}
	return code
}
