// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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


package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/NVIDIA/appbundle/pkg/defaults"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg := parseConfig()

	assert.Empty(t, cfg.Address)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.EqualValues(t, defaultRateLimit, cfg.RateLimit)
	assert.Equal(t, defaultRateLimitBurst, cfg.RateLimitBurst)
	assert.Equal(t, defaults.ServerReadTimeout, cfg.ReadTimeout)
	assert.Equal(t, defaults.ServerWriteTimeout, cfg.WriteTimeout)
	assert.Equal(t, defaults.ServerIdleTimeout, cfg.IdleTimeout)
	assert.Equal(t, defaults.ServerShutdownTimeout, cfg.ShutdownTimeout)
}

func TestParseConfigEnvironment(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "listen address and port",
			env:  map[string]string{"LISTEN_ADDRESS": "127.0.0.1", "PORT": "9090"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "127.0.0.1", cfg.Address)
				assert.Equal(t, 9090, cfg.Port)
			},
		},
		{
			name: "rate limit",
			env:  map[string]string{"RATE_LIMIT": "5", "RATE_LIMIT_BURST": "10"},
			check: func(t *testing.T, cfg *Config) {
				assert.EqualValues(t, 5, cfg.RateLimit)
				assert.Equal(t, 10, cfg.RateLimitBurst)
			},
		},
		{
			name: "shutdown timeout",
			env:  map[string]string{"SHUTDOWN_TIMEOUT_SECONDS": "5"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
			},
		},
		{
			name: "garbage falls back to defaults",
			env: map[string]string{
				"PORT":                     "invalid",
				"RATE_LIMIT":               "-3",
				"SHUTDOWN_TIMEOUT_SECONDS": "0",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultPort, cfg.Port)
				assert.EqualValues(t, defaultRateLimit, cfg.RateLimit)
				assert.Equal(t, defaults.ServerShutdownTimeout, cfg.ShutdownTimeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			tt.check(t, parseConfig())
		})
	}
}
