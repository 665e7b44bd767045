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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// labels definition
const (
	// result labels
	ResultSuccess = "success"
	ResultFailed  = "failed"

	// process role labels
	RoleHelper  = "helper"
	RolePrimary = "primary"
)

var (
	// number of process launches, by role and result
	processStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "process_starts_total",
			Help: "Total number of process launch attempts",
		}, []string{"role", "result"},
	)

	// helper restarts performed by the supervisor
	helperRestarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "helper_restarts_total",
			Help: "Total number of helper process restarts",
		},
	)

	// time spent waiting for readiness before the primary launch
	readinessWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "readiness_wait_duration_seconds",
			Help: "Duration of the readiness wait in seconds",
			// Bucket 1: ~ 0.05s ... Bucket 12: ~ 102.4s
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"mode", "result"},
	)

	// individual probe attempts
	probeAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readiness_probe_attempts_total",
			Help: "Total number of readiness probe attempts",
		}, []string{"mode", "result"},
	)

	// exit code of the last primary process
	primaryExitCode = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "primary_exit_code",
			Help: "Exit code of the most recently exited primary process",
		},
	)
)

func init() {
	prometheus.MustRegister(processStarts)
	prometheus.MustRegister(helperRestarts)
	prometheus.MustRegister(readinessWaitDuration)
	prometheus.MustRegister(probeAttempts)
	prometheus.MustRegister(primaryExitCode)
}

// Recorder funcs

// RecordProcessStart counts a launch attempt for the given role.
func RecordProcessStart(role string, result string) {
	processStarts.WithLabelValues(role, result).Inc()
}

// RecordHelperRestart counts one supervisor-initiated helper restart.
func RecordHelperRestart() {
	helperRestarts.Inc()
}

// RecordReadinessWait observes the time spent waiting for readiness.
func RecordReadinessWait(mode string, result string, duration time.Duration) {
	readinessWaitDuration.WithLabelValues(mode, result).Observe(duration.Seconds())
}

// RecordProbeAttempt counts a single probe attempt.
func RecordProbeAttempt(mode string, result string) {
	probeAttempts.WithLabelValues(mode, result).Inc()
}

// SetPrimaryExitCode records the primary process's exit code.
func SetPrimaryExitCode(code int) {
	primaryExitCode.Set(float64(code))
}
