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

// The file contains unit tests for the helper supervisor.
package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/launchline/launchline/internal/journal"
	"github.com/launchline/launchline/internal/sequencer/config"
)

func helperConfig(script, policy string, maxRestarts int) config.HelperConfig {
	return config.HelperConfig{
		Command:       "/bin/sh",
		Args:          []string{"-c", script},
		RestartPolicy: policy,
		MaxRestarts:   maxRestarts,
		MinBackoff:    time.Millisecond,
		MaxBackoff:    10 * time.Millisecond,
	}
}

func countEvents(m *journal.Memory, typ journal.EventType) int {
	n := 0
	for _, ev := range m.Snapshot() {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func waitForEvent(t *testing.T, m *journal.Memory, typ journal.EventType) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if countEvents(m, typ) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("event %q never recorded; journal: %+v", typ, m.Snapshot())
}

func TestStartRecordsHelper(t *testing.T) {
	m := journal.NewMemory()
	s := New(helperConfig("exit 0", config.RestartNever, 0), m, "run-1")

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.PID() <= 0 {
		t.Errorf("expected a positive PID, got %d", s.PID())
	}
	waitForEvent(t, m, journal.EventHelperStarted)
	waitForEvent(t, m, journal.EventHelperExited)
}

func TestStartMissingCommand(t *testing.T) {
	m := journal.NewMemory()
	cfg := helperConfig("", config.RestartNever, 0)
	cfg.Command = "/nonexistent/helper"
	s := New(cfg, m, "run-1")

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for missing helper command")
	}
}

func TestNeverPolicyDoesNotRestart(t *testing.T) {
	m := journal.NewMemory()
	s := New(helperConfig("exit 1", config.RestartNever, 5), m, "run-1")

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForEvent(t, m, journal.EventHelperExited)
	// give a would-be restart time to happen
	time.Sleep(100 * time.Millisecond)

	if n := countEvents(m, journal.EventHelperRestarted); n != 0 {
		t.Errorf("expected no restarts under the never policy, got %d", n)
	}
}

func TestOnFailureRestartsUntilBudget(t *testing.T) {
	m := journal.NewMemory()
	s := New(helperConfig("exit 1", config.RestartOnFailure, 2), m, "run-1")

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForEvent(t, m, journal.EventHelperGaveUp)

	if n := countEvents(m, journal.EventHelperRestarted); n != 2 {
		t.Errorf("expected exactly 2 restarts, got %d", n)
	}
	if n := countEvents(m, journal.EventHelperExited); n != 3 {
		t.Errorf("expected 3 exits (initial + 2 restarts), got %d", n)
	}
}

func TestOnFailureIgnoresCleanExit(t *testing.T) {
	m := journal.NewMemory()
	s := New(helperConfig("exit 0", config.RestartOnFailure, 5), m, "run-1")

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForEvent(t, m, journal.EventHelperExited)
	time.Sleep(100 * time.Millisecond)

	if n := countEvents(m, journal.EventHelperRestarted); n != 0 {
		t.Errorf("expected no restarts after a clean exit, got %d", n)
	}
}

func TestStopTerminatesHelper(t *testing.T) {
	m := journal.NewMemory()
	s := New(helperConfig("sleep 30", config.RestartOnFailure, 5), m, "run-1")

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.Stop(2 * time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Stop() did not return")
	}

	// the signal-caused exit must not trigger a restart
	if n := countEvents(m, journal.EventHelperRestarted); n != 0 {
		t.Errorf("expected no restarts after Stop, got %d", n)
	}

	// the exit event carries the real signal-exit code, not a zero value
	for _, ev := range m.Snapshot() {
		if ev.Type == journal.EventHelperExited && ev.Detail != "143" {
			t.Errorf("helper_exited detail = %q, want %q", ev.Detail, "143")
		}
	}
}

func TestStopDuringRestartBackoff(t *testing.T) {
	m := journal.NewMemory()
	cfg := helperConfig("exit 1", config.RestartOnFailure, 5)
	cfg.MinBackoff = 500 * time.Millisecond
	cfg.MaxBackoff = time.Minute
	s := New(cfg, m, "run-1")

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// the helper exits immediately, so the monitor is now sleeping before
	// the first restart attempt
	waitForEvent(t, m, journal.EventHelperExited)

	done := make(chan struct{})
	go func() {
		s.Stop(2 * time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return while the monitor was backing off")
	}

	time.Sleep(time.Second)
	if n := countEvents(m, journal.EventHelperRestarted); n != 0 {
		t.Errorf("expected no restarts after Stop, got %d", n)
	}
}
