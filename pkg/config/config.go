// Copyright 2026 The casetrace Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads casetrace configuration from YAML with environment
// variable expansion and .env file support.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TimeoutConfig is the per-call phase budget for agent communication.
// Search operations are slow, so the read budget defaults to 2 minutes.
type TimeoutConfig struct {
	Connect Duration `yaml:"connect"`
	Read    Duration `yaml:"read"`
	Write   Duration `yaml:"write"`
	Pool    Duration `yaml:"pool"`
}

// RateLimitConfig controls the LLM-bound call limiter.
type RateLimitConfig struct {
	MinInterval Duration `yaml:"min_interval"`
	BaseDelay   Duration `yaml:"base_delay"`
	MaxRetries  int      `yaml:"max_retries"`
}

// ServerConfig configures the A2A server in serve mode.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root configuration. Agents seeds the agent registry; the
// decomposition/validation agent and the search agent are addressed by the
// logical names below.
type Config struct {
	Agents    map[string]string `yaml:"agents"`
	Timeouts  TimeoutConfig     `yaml:"timeouts"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
	Server    ServerConfig      `yaml:"server"`
	Logging   LoggingConfig     `yaml:"logging"`
}

// Logical agent names the orchestrator addresses.
const (
	ExpertAgentName = "expert_agent"
	SearchAgentName = "search_agent"
)

// Default returns the stock configuration: expert and search agents on
// localhost, generous read timeout, 15s rate-limit spacing.
func Default() *Config {
	return &Config{
		Agents: map[string]string{
			ExpertAgentName: "http://" + envString("EXPERT_AGENT_URL", "localhost:8003"),
			SearchAgentName: "http://" + envString("SEARCH_AGENT_URL", "localhost:8001"),
		},
		Timeouts: TimeoutConfig{
			Connect: Duration(envSeconds("AGENT_TIMEOUT_CONNECT", 10*time.Second)),
			Read:    Duration(envSeconds("AGENT_TIMEOUT_READ", 120*time.Second)),
			Write:   Duration(envSeconds("AGENT_TIMEOUT_WRITE", 10*time.Second)),
			Pool:    Duration(envSeconds("AGENT_TIMEOUT_POOL", 10*time.Second)),
		},
		RateLimit: RateLimitConfig{
			MinInterval: Duration(envSeconds("RATE_LIMIT_MIN_INTERVAL", 15*time.Second)),
			BaseDelay:   Duration(2 * time.Second),
			MaxRetries:  3,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "simple",
		},
	}
}

// Load reads a YAML config file, expands ${VAR:-default} style references,
// and overlays it on the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the orchestrator cannot run with.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("config: at least one agent must be registered")
	}
	for name, addr := range c.Agents {
		if addr == "" {
			return fmt.Errorf("config: agent %q has an empty address", name)
		}
	}
	if c.RateLimit.MaxRetries < 0 {
		return fmt.Errorf("config: rate_limit.max_retries cannot be negative")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
