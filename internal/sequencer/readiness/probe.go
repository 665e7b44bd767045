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

// Package readiness decides when the helper process is ready enough for the
// primary process to start. The fixed delay reproduces the historical
// entrypoint behavior; the tcp and http probes are active checks with
// bounded, backed-off retries.
package readiness

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"k8s.io/klog/v2"

	"github.com/launchline/launchline/internal/metrics"
	"github.com/launchline/launchline/internal/sequencer/config"
)

// Probe blocks until the helper is considered ready or the wait is abandoned.
type Probe interface {
	Wait(ctx context.Context) error
}

// New builds the probe selected by the configuration.
func New(cfg config.ReadinessConfig) (Probe, error) {
	switch cfg.Mode {
	case config.ReadinessDelay:
		return &DelayProbe{Delay: cfg.Delay}, nil
	case config.ReadinessTCP:
		return &TCPProbe{Target: cfg.Target, cfg: cfg}, nil
	case config.ReadinessHTTP:
		return &HTTPProbe{URL: cfg.Target, cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown readiness mode %q", cfg.Mode)
	}
}

// DelayProbe waits a fixed duration. It verifies nothing; it only preserves
// the startup ordering guarantee by timing assumption.
type DelayProbe struct {
	Delay time.Duration
}

func (p *DelayProbe) Wait(ctx context.Context) error {
	logger := klog.FromContext(ctx)
	logger.Info("Waiting fixed readiness delay", "delay", p.Delay)

	timer := time.NewTimer(p.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TCPProbe dials the target until a connection is accepted.
type TCPProbe struct {
	Target string
	cfg    config.ReadinessConfig
}

func (p *TCPProbe) Wait(ctx context.Context) error {
	return retry(ctx, p.cfg, "tcp", func() error {
		conn, err := net.DialTimeout("tcp", p.Target, p.cfg.ProbeTimeout)
		if err != nil {
			return err
		}
		return conn.Close()
	})
}

// HTTPProbe requests the target URL until a 2xx response arrives.
type HTTPProbe struct {
	URL string
	cfg config.ReadinessConfig

	// Client overrides the probe HTTP client, mainly for tests.
	Client *http.Client
}

func (p *HTTPProbe) Wait(ctx context.Context) error {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: p.cfg.ProbeTimeout}
	}
	return retry(ctx, p.cfg, "http", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("probe got status %d", resp.StatusCode)
		}
		return nil
	})
}

func retry(ctx context.Context, cfg config.ReadinessConfig, mode string, op func() error) error {
	logger := klog.FromContext(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = cfg.Deadline

	attempts := 0
	start := time.Now()
	err := backoff.Retry(func() error {
		attempts++
		if err := op(); err != nil {
			metrics.RecordProbeAttempt(mode, metrics.ResultFailed)
			logger.V(4).Info("Readiness probe attempt failed", "mode", mode, "attempt", attempts, "err", err.Error())
			return err
		}
		metrics.RecordProbeAttempt(mode, metrics.ResultSuccess)
		return nil
	}, backoff.WithContext(b, ctx))

	if err != nil {
		logger.Error(err, "Readiness probe gave up", "mode", mode, "attempts", attempts, "elapsed", time.Since(start))
		return fmt.Errorf("readiness probe (%s) failed after %d attempts: %w", mode, attempts, err)
	}
	logger.Info("Readiness probe succeeded", "mode", mode, "attempts", attempts, "elapsed", time.Since(start))
	return nil
}
