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

// The sequencer's configuration definitions.

package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Readiness modes.
const (
	ReadinessDelay = "delay"
	ReadinessTCP   = "tcp"
	ReadinessHTTP  = "http"
)

// Helper restart policies.
const (
	RestartNever     = "never"
	RestartOnFailure = "on-failure"
)

type HelperConfig struct {
	Command       string        `json:"command" yaml:"command"`
	Args          []string      `json:"args" yaml:"args"`
	Dir           string        `json:"dir" yaml:"dir"`
	Env           []string      `json:"env" yaml:"env"`
	RestartPolicy string        `json:"restart_policy" yaml:"restart_policy"`
	MaxRestarts   int           `json:"max_restarts" yaml:"max_restarts"`
	MinBackoff    time.Duration `json:"min_backoff" yaml:"min_backoff"`
	MaxBackoff    time.Duration `json:"max_backoff" yaml:"max_backoff"`
}

// Enabled reports whether a helper process is configured at all. An empty
// command mirrors the deployment variant that ships without the helper.
func (h *HelperConfig) Enabled() bool {
	return h.Command != ""
}

type ReadinessConfig struct {
	Mode            string        `json:"mode" yaml:"mode"`
	Delay           time.Duration `json:"delay" yaml:"delay"`
	Target          string        `json:"target" yaml:"target"`
	ProbeTimeout    time.Duration `json:"probe_timeout" yaml:"probe_timeout"`
	Deadline        time.Duration `json:"deadline" yaml:"deadline"`
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval" yaml:"max_interval"`
	Required        bool          `json:"required" yaml:"required"`
}

type PrimaryConfig struct {
	Command       string        `json:"command" yaml:"command"`
	Args          []string      `json:"args" yaml:"args"`
	Dir           string        `json:"dir" yaml:"dir"`
	Env           []string      `json:"env" yaml:"env"`
	PortEnv       string        `json:"port_env" yaml:"port_env"`
	ShutdownGrace time.Duration `json:"shutdown_grace" yaml:"shutdown_grace"`
}

type ObservabilityConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Address string `json:"address" yaml:"address"`
}

type JournalConfig struct {
	RedisURL    string        `json:"redis_url" yaml:"redis_url"`
	TTL         time.Duration `json:"ttl" yaml:"ttl"`
	ServiceName string        `json:"service_name" yaml:"service_name"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

type Config struct {
	Helper        HelperConfig        `json:"helper" yaml:"helper"`
	Readiness     ReadinessConfig     `json:"readiness" yaml:"readiness"`
	Primary       PrimaryConfig       `json:"primary" yaml:"primary"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
	Journal       JournalConfig       `json:"journal" yaml:"journal"`
}

// NewConfig returns a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Helper: HelperConfig{
			RestartPolicy: RestartNever,
			MaxRestarts:   5,
			MinBackoff:    500 * time.Millisecond,
			MaxBackoff:    30 * time.Second,
		},
		Readiness: ReadinessConfig{
			Mode:            ReadinessDelay,
			Delay:           3 * time.Second,
			ProbeTimeout:    time.Second,
			Deadline:        30 * time.Second,
			InitialInterval: 250 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		Primary: PrimaryConfig{
			PortEnv:       "PORT",
			ShutdownGrace: 30 * time.Second,
		},
		Observability: ObservabilityConfig{
			Enabled: false,
			Address: ":9090",
		},
		Journal: JournalConfig{
			TTL:         24 * time.Hour,
			ServiceName: "launchline",
			Timeout:     5 * time.Second,
		},
	}
}

// LoadFromYAML loads the configuration from a YAML file.
func (c *Config) LoadFromYAML(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(c); err != nil {
		return err
	}
	return nil
}

// AddFlags registers command line overrides on the given flag set.
func (c *Config) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Helper.Command, "helper-command", c.Helper.Command, "Helper process command (empty disables the helper)")
	fs.StringVar(&c.Helper.RestartPolicy, "helper-restart", c.Helper.RestartPolicy, "Helper restart policy: never | on-failure")
	fs.IntVar(&c.Helper.MaxRestarts, "helper-max-restarts", c.Helper.MaxRestarts, "Maximum helper restarts for the on-failure policy")
	fs.StringVar(&c.Readiness.Mode, "readiness-mode", c.Readiness.Mode, "Readiness mode: delay | tcp | http")
	fs.DurationVar(&c.Readiness.Delay, "readiness-delay", c.Readiness.Delay, "Fixed wait used by the delay readiness mode")
	fs.StringVar(&c.Readiness.Target, "readiness-target", c.Readiness.Target, "Probe target: host:port for tcp, URL for http")
	fs.DurationVar(&c.Readiness.Deadline, "readiness-deadline", c.Readiness.Deadline, "Overall probe deadline")
	fs.BoolVar(&c.Readiness.Required, "readiness-required", c.Readiness.Required, "Abort the run if readiness is not reached")
	fs.StringVar(&c.Primary.Command, "primary-command", c.Primary.Command, "Primary process command")
	fs.BoolVar(&c.Observability.Enabled, "observability", c.Observability.Enabled, "Enable the observability HTTP server")
	fs.StringVar(&c.Observability.Address, "observability-address", c.Observability.Address, "Observability server listen address")
	fs.StringVar(&c.Journal.RedisURL, "journal-redis-url", c.Journal.RedisURL, "Redis URL for the startup event journal (empty keeps the journal in memory)")
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Primary.Command == "" {
		return fmt.Errorf("primary command must be set")
	}
	switch c.Readiness.Mode {
	case ReadinessDelay:
		if c.Readiness.Delay < 0 {
			return fmt.Errorf("readiness delay must not be negative")
		}
	case ReadinessTCP, ReadinessHTTP:
		if c.Readiness.Target == "" {
			return fmt.Errorf("readiness mode %q needs a target", c.Readiness.Mode)
		}
		if c.Readiness.Mode == ReadinessHTTP && !strings.HasPrefix(c.Readiness.Target, "http") {
			return fmt.Errorf("http readiness target must be a URL, got %q", c.Readiness.Target)
		}
	default:
		return fmt.Errorf("unknown readiness mode %q", c.Readiness.Mode)
	}
	switch c.Helper.RestartPolicy {
	case RestartNever, RestartOnFailure:
	default:
		return fmt.Errorf("unknown helper restart policy %q", c.Helper.RestartPolicy)
	}
	if c.Helper.Enabled() && c.Helper.MaxRestarts < 0 {
		return fmt.Errorf("helper max restarts must not be negative")
	}
	return nil
}
