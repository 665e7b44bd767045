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

// Package sequencer runs the startup sequence: helper first, readiness wait
// second, primary last. The run's exit code is always the primary's exit
// code; the helper can fail at any point without changing that.
package sequencer

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/launchline/launchline/internal/journal"
	"github.com/launchline/launchline/internal/metrics"
	"github.com/launchline/launchline/internal/sequencer/config"
	"github.com/launchline/launchline/internal/sequencer/process"
	"github.com/launchline/launchline/internal/sequencer/readiness"
	"github.com/launchline/launchline/internal/sequencer/supervisor"
)

const helperStopGrace = 2 * time.Second

type Sequencer struct {
	cfg   *config.Config
	jrnl  journal.Journal
	runID string
}

func New(cfg *config.Config, jrnl journal.Journal) *Sequencer {
	return &Sequencer{
		cfg:   cfg,
		jrnl:  jrnl,
		runID: uuid.NewString(),
	}
}

// RunID identifies this startup run in logs and the journal.
func (s *Sequencer) RunID() string {
	return s.runID
}

// Run executes the startup sequence and returns the primary process's exit
// code. The error is non-nil only when the sequence itself failed (the
// primary could not be launched, or a required readiness wait gave up).
func (s *Sequencer) Run(ctx context.Context) (int, error) {
	logger := klog.FromContext(ctx).WithValues("runID", s.runID)
	ctx = klog.NewContext(ctx, logger)

	s.jrnl.Record(ctx, journal.Event{RunID: s.runID, Type: journal.EventRunStarted})

	var sup *supervisor.Supervisor
	if s.cfg.Helper.Enabled() {
		sup = supervisor.New(s.cfg.Helper, s.jrnl, s.runID)
		if err := sup.Start(ctx); err != nil {
			// Fire and forget: a helper that never came up surfaces
			// inside the primary, not here.
			logger.Error(err, "Helper process failed to start, continuing without it")
			metrics.RecordProcessStart(metrics.RoleHelper, metrics.ResultFailed)
			s.jrnl.Record(ctx, journal.Event{
				RunID:  s.runID,
				Type:   journal.EventHelperGaveUp,
				Detail: err.Error(),
			})
			sup = nil
		}

		if err := s.waitReady(ctx); err != nil {
			if s.cfg.Readiness.Required {
				if sup != nil {
					sup.Stop(helperStopGrace)
				}
				return 1, err
			}
			logger.Error(err, "Readiness wait failed, starting primary anyway")
		}
	} else {
		logger.Info("No helper configured, skipping readiness wait")
	}

	code, err := s.runPrimary(ctx)
	if sup != nil {
		sup.Stop(helperStopGrace)
	}
	return code, err
}

// waitReady blocks until the configured readiness condition holds.
func (s *Sequencer) waitReady(ctx context.Context) error {
	probe, err := readiness.New(s.cfg.Readiness)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := probe.Wait(ctx); err != nil {
		metrics.RecordReadinessWait(s.cfg.Readiness.Mode, metrics.ResultFailed, time.Since(start))
		s.jrnl.Record(ctx, journal.Event{
			RunID:  s.runID,
			Type:   journal.EventReadinessFailed,
			Detail: err.Error(),
		})
		return fmt.Errorf("readiness wait failed: %w", err)
	}
	metrics.RecordReadinessWait(s.cfg.Readiness.Mode, metrics.ResultSuccess, time.Since(start))
	s.jrnl.Record(ctx, journal.Event{RunID: s.runID, Type: journal.EventReady})
	return nil
}

func (s *Sequencer) runPrimary(ctx context.Context) (int, error) {
	cmd := process.Command{
		Program: s.cfg.Primary.Command,
		Args:    s.cfg.Primary.Args,
		Dir:     s.cfg.Primary.Dir,
		Env:     s.cfg.Primary.Env,
	}
	// The platform-assigned port wins over any value in the config env.
	if name := s.cfg.Primary.PortEnv; name != "" {
		if port := os.Getenv(name); port != "" {
			cmd.Env = append(cmd.Env, name+"="+port)
		}
	}

	code, err := process.Run(ctx, cmd, s.cfg.Primary.ShutdownGrace, func(pid int) {
		metrics.RecordProcessStart(metrics.RolePrimary, metrics.ResultSuccess)
		s.jrnl.Record(ctx, journal.Event{
			RunID: s.runID,
			Type:  journal.EventPrimaryStarted,
			PID:   pid,
		})
	})
	if err != nil {
		metrics.RecordProcessStart(metrics.RolePrimary, metrics.ResultFailed)
		s.jrnl.Record(ctx, journal.Event{
			RunID:  s.runID,
			Type:   journal.EventPrimaryExited,
			Detail: err.Error(),
		})
		return code, fmt.Errorf("primary process failed: %w", err)
	}

	metrics.SetPrimaryExitCode(code)
	s.jrnl.Record(ctx, journal.Event{
		RunID:  s.runID,
		Type:   journal.EventPrimaryExited,
		Detail: strconv.Itoa(code),
	})
	return code, nil
}
