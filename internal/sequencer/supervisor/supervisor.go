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

// Package supervisor owns the helper process's lifecycle: detached launch,
// exit monitoring, and the optional restart-on-failure policy. The helper is
// never load-bearing for the run; every failure path here degrades to
// logging and journal entries.
package supervisor

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"k8s.io/klog/v2"

	"github.com/launchline/launchline/internal/journal"
	"github.com/launchline/launchline/internal/metrics"
	"github.com/launchline/launchline/internal/sequencer/config"
	"github.com/launchline/launchline/internal/sequencer/process"
)

// restartStopGrace bounds the SIGTERM grace for a helper that restarted
// while Stop was already in flight.
const restartStopGrace = 2 * time.Second

type Supervisor struct {
	cfg   config.HelperConfig
	jrnl  journal.Journal
	runID string

	mu       sync.Mutex
	handle   *process.Handle
	stopping atomic.Bool

	// stopc unblocks the monitor wherever it sleeps; done closes when the
	// monitor has returned.
	stopc chan struct{}
	done  chan struct{}
}

func New(cfg config.HelperConfig, jrnl journal.Journal, runID string) *Supervisor {
	return &Supervisor{
		cfg:   cfg,
		jrnl:  jrnl,
		runID: runID,
		stopc: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start launches the helper detached and begins monitoring its exits. A
// launch error is reported to the caller but is not fatal to the run.
func (s *Supervisor) Start(ctx context.Context) error {
	handle, err := process.Start(ctx, s.command())
	if err != nil {
		close(s.done)
		return err
	}
	s.setHandle(handle)
	s.jrnl.Record(ctx, journal.Event{
		RunID: s.runID,
		Type:  journal.EventHelperStarted,
		PID:   handle.PID(),
	})
	metrics.RecordProcessStart(metrics.RoleHelper, metrics.ResultSuccess)

	go s.monitor(ctx)
	return nil
}

// PID returns the current helper PID, or 0 when no helper is running.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return 0
	}
	return s.handle.PID()
}

// Stop halts the restart loop, sends a best-effort SIGTERM to the helper's
// process group, and waits for the monitor to finish. Safe to call more than
// once.
func (s *Supervisor) Stop(grace time.Duration) {
	if s.stopping.CompareAndSwap(false, true) {
		close(s.stopc)
	}
	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()
	if handle != nil {
		handle.Terminate(grace)
	}
	<-s.done
}

func (s *Supervisor) setHandle(h *process.Handle) {
	s.mu.Lock()
	s.handle = h
	s.mu.Unlock()
}

func (s *Supervisor) command() process.Command {
	return process.Command{
		Program: s.cfg.Command,
		Args:    s.cfg.Args,
		Dir:     s.cfg.Dir,
		Env:     s.cfg.Env,
	}
}

// monitor waits on helper exits and applies the restart policy.
func (s *Supervisor) monitor(ctx context.Context) {
	defer close(s.done)
	logger := klog.FromContext(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.MinBackoff
	b.MaxInterval = s.cfg.MaxBackoff
	b.MaxElapsedTime = 0 // bounded by MaxRestarts, not time

	restarts := 0
	for {
		s.mu.Lock()
		handle := s.handle
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-handle.Exited():
		}
		result := handle.Result()

		logger.Info("Helper process exited", "pid", handle.PID(), "code", result.Code)
		s.jrnl.Record(ctx, journal.Event{
			RunID:  s.runID,
			Type:   journal.EventHelperExited,
			PID:    handle.PID(),
			Detail: strconv.Itoa(result.Code),
		})

		if s.stopping.Load() {
			return
		}
		if s.cfg.RestartPolicy != config.RestartOnFailure || result.Code == 0 {
			return
		}
		if restarts >= s.cfg.MaxRestarts {
			logger.Info("Helper restart budget exhausted", "restarts", restarts)
			s.jrnl.Record(ctx, journal.Event{RunID: s.runID, Type: journal.EventHelperGaveUp})
			return
		}

		wait := b.NextBackOff()
		logger.Info("Restarting helper process", "attempt", restarts+1, "backoff", wait)
		select {
		case <-ctx.Done():
			return
		case <-s.stopc:
			return
		case <-time.After(wait):
		}

		next, err := process.Start(ctx, s.command())
		if err != nil {
			logger.Error(err, "Helper restart failed")
			metrics.RecordProcessStart(metrics.RoleHelper, metrics.ResultFailed)
			s.jrnl.Record(ctx, journal.Event{RunID: s.runID, Type: journal.EventHelperGaveUp, Detail: err.Error()})
			return
		}
		s.setHandle(next)
		if s.stopping.Load() {
			// Stop raced the restart and terminated the previous handle;
			// this one is ours to reap.
			next.Terminate(restartStopGrace)
			return
		}
		restarts++
		metrics.RecordHelperRestart()
		metrics.RecordProcessStart(metrics.RoleHelper, metrics.ResultSuccess)
		s.jrnl.Record(ctx, journal.Event{
			RunID: s.runID,
			Type:  journal.EventHelperRestarted,
			PID:   next.PID(),
		})
	}
}
