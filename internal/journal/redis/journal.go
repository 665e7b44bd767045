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

// This file provides a redis-backed startup journal, for fleet-level
// visibility into container startup runs.

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"k8s.io/klog/v2"

	"github.com/launchline/launchline/internal/journal"
)

const (
	keysPrefix    = "launchline:"
	runKeysPrefix = keysPrefix + "run:"
	pingWait      = 10 * time.Second
)

type Config struct {
	URL         string
	ServiceName string
	TTL         time.Duration // Expiry set on each run's event list.
	Timeout     time.Duration // Timeout for individual journal writes.
}

// Journal persists startup events to redis, one list per run ID.
type Journal struct {
	client  *goredis.Client
	ttl     time.Duration
	timeout time.Duration
}

var _ journal.Journal = (*Journal)(nil)

// New connects to redis and verifies the connection with a ping.
func New(ctx context.Context, cnf *Config) (*Journal, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := klog.FromContext(ctx)
	if cnf == nil || cnf.URL == "" {
		err := fmt.Errorf("redis journal config has empty url")
		logger.Error(err, "journal.New")
		return nil, err
	}
	opts, err := goredis.ParseURL(cnf.URL)
	if err != nil {
		logger.Error(err, "journal.New")
		return nil, err
	}
	if opts.ClientName == "" {
		hostname, _ := os.Hostname()
		opts.ClientName = fmt.Sprintf("%s-%s-%d", cnf.ServiceName, hostname, os.Getpid())
	}
	opts.ContextTimeoutEnabled = true
	if cnf.Timeout != 0 {
		opts.DialTimeout = cnf.Timeout
		opts.ReadTimeout = cnf.Timeout
		opts.WriteTimeout = cnf.Timeout
	}

	client := goredis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, pingWait)
	defer cancel()
	if _, err := client.Ping(pctx).Result(); err != nil {
		logger.Error(err, "journal.New: ping failed")
		client.Close()
		return nil, err
	}
	logger.Info("Redis journal connected", "clientName", opts.ClientName)
	return &Journal{
		client:  client,
		ttl:     cnf.TTL,
		timeout: cnf.Timeout,
	}, nil
}

func (j *Journal) Close() error {
	if j.client != nil {
		return j.client.Close()
	}
	return nil
}

func runKey(runID string) string {
	return runKeysPrefix + runID + ":events"
}

// Record appends the event to the run's list and refreshes its TTL. Failures
// are logged and dropped; the journal never blocks a startup run.
func (j *Journal) Record(ctx context.Context, ev journal.Event) {
	logger := klog.FromContext(ctx)
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Error(err, "Failed to marshal journal event", "type", ev.Type)
		return
	}

	cctx, cancel := j.getContext(ctx)
	defer cancel()

	pipe := j.client.TxPipeline()
	pipe.RPush(cctx, runKey(ev.RunID), payload)
	if j.ttl > 0 {
		pipe.Expire(cctx, runKey(ev.RunID), j.ttl)
	}
	if _, err := pipe.Exec(cctx); err != nil {
		logger.Error(err, "Failed to record journal event", "type", ev.Type, "runID", ev.RunID)
	}
}

// Events returns the recorded events for a run, oldest first.
func (j *Journal) Events(ctx context.Context, runID string) ([]journal.Event, error) {
	cctx, cancel := j.getContext(ctx)
	defer cancel()

	raw, err := j.client.LRange(cctx, runKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal for run %s: %w", runID, err)
	}
	events := make([]journal.Event, 0, len(raw))
	for _, item := range raw {
		var ev journal.Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("corrupt journal entry for run %s: %w", runID, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func (j *Journal) getContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	if j.timeout > 0 {
		return context.WithTimeout(parentCtx, j.timeout)
	}
	return context.WithCancel(parentCtx)
}
