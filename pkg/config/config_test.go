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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:8003", cfg.Agents[ExpertAgentName])
	assert.Equal(t, "http://localhost:8001", cfg.Agents[SearchAgentName])
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Connect.Duration())
	assert.Equal(t, 120*time.Second, cfg.Timeouts.Read.Duration())
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Write.Duration())
	assert.Equal(t, 15*time.Second, cfg.RateLimit.MinInterval.Duration())
	assert.Equal(t, 3, cfg.RateLimit.MaxRetries)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultHonorsEnvOverrides(t *testing.T) {
	t.Setenv("EXPERT_AGENT_URL", "expert.internal:9000")
	t.Setenv("AGENT_TIMEOUT_READ", "45.5")
	t.Setenv("RATE_LIMIT_MIN_INTERVAL", "2")

	cfg := Default()
	assert.Equal(t, "http://expert.internal:9000", cfg.Agents[ExpertAgentName])
	assert.Equal(t, 45500*time.Millisecond, cfg.Timeouts.Read.Duration())
	assert.Equal(t, 2*time.Second, cfg.RateLimit.MinInterval.Duration())
}

func TestLoadOverlaysYAMLOnDefaults(t *testing.T) {
	t.Setenv("SEARCH_HOST", "search.internal")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agents:
  expert_agent: "expert.internal:8003"
  search_agent: "${SEARCH_HOST}:8001"
rate_limit:
  min_interval: 5s
server:
  port: 9090
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "expert.internal:8003", cfg.Agents[ExpertAgentName])
	assert.Equal(t, "search.internal:8001", cfg.Agents[SearchAgentName])
	assert.Equal(t, 5*time.Second, cfg.RateLimit.MinInterval.Duration())
	assert.Equal(t, 9090, cfg.Server.Port)
	// Untouched sections keep their defaults.
	assert.Equal(t, 120*time.Second, cfg.Timeouts.Read.Duration())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Agents = map[string]string{}
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Agents["broken"] = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.RateLimit.MaxRetries = -1
	assert.Error(t, cfg.Validate())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CT_SET", "value")
	os.Unsetenv("CT_UNSET")

	tests := []struct {
		in   string
		want string
	}{
		{"${CT_SET}", "value"},
		{"${CT_UNSET:-fallback}", "fallback"},
		{"${CT_SET:-fallback}", "value"},
		{"$CT_SET", "value"},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnvVars(tt.in), "input %q", tt.in)
	}
}

func TestEnvSeconds(t *testing.T) {
	t.Setenv("CT_SECONDS", "2.5")
	assert.Equal(t, 2500*time.Millisecond, envSeconds("CT_SECONDS", time.Second))

	t.Setenv("CT_SECONDS", "garbage")
	assert.Equal(t, time.Second, envSeconds("CT_SECONDS", time.Second))

	os.Unsetenv("CT_SECONDS")
	assert.Equal(t, time.Second, envSeconds("CT_SECONDS", time.Second))
}
