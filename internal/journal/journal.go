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

// Package journal records the lifecycle events of a startup run. Recording is
// observational: a journal write never fails the run it describes.
package journal

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	EventRunStarted      EventType = "run_started"
	EventHelperStarted   EventType = "helper_started"
	EventHelperExited    EventType = "helper_exited"
	EventHelperRestarted EventType = "helper_restarted"
	EventHelperGaveUp    EventType = "helper_gave_up"
	EventReady           EventType = "ready"
	EventReadinessFailed EventType = "readiness_failed"
	EventPrimaryStarted  EventType = "primary_started"
	EventPrimaryExited   EventType = "primary_exited"
)

// Event is one entry in the startup journal.
type Event struct {
	RunID  string    `json:"run_id"`
	Type   EventType `json:"type"`
	PID    int       `json:"pid,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

type Journal interface {
	// Record appends an event. Implementations must not return; failures
	// are logged by the implementation and otherwise swallowed.
	Record(ctx context.Context, ev Event)

	// Close releases the journal's resources.
	Close() error
}

const defaultMemoryCapacity = 256

// Memory is an in-memory journal bounded to the most recent events. It backs
// the /status endpoint and is always present, with or without redis.
type Memory struct {
	mu     sync.Mutex
	events []Event
	cap    int
}

func NewMemory() *Memory {
	return &Memory{cap: defaultMemoryCapacity}
}

func (m *Memory) Record(_ context.Context, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	m.events = append(m.events, ev)
	if len(m.events) > m.cap {
		m.events = m.events[len(m.events)-m.cap:]
	}
}

func (m *Memory) Close() error {
	return nil
}

// Snapshot returns a copy of the recorded events in order.
func (m *Memory) Snapshot() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Tee fans each event out to all journals.
type Tee struct {
	journals []Journal
}

func NewTee(journals ...Journal) *Tee {
	return &Tee{journals: journals}
}

func (t *Tee) Record(ctx context.Context, ev Event) {
	for _, j := range t.journals {
		j.Record(ctx, ev)
	}
}

func (t *Tee) Close() error {
	var err error
	for _, j := range t.journals {
		if cerr := j.Close(); cerr != nil {
			err = cerr
		}
	}
	return err
}
