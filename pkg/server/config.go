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
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/appbundle/pkg/defaults"
)

// DefaultPort matches the port the bundle download URLs are published on.
const DefaultPort = 5002

const (
	defaultRateLimit      = 100
	defaultRateLimitBurst = 200
)

// Config holds server configuration.
type Config struct {
	Name    string
	Version string

	// Handlers keyed by mux pattern, e.g. "POST /api/exportApp".
	Handlers map[string]http.HandlerFunc

	Address string
	Port    int

	RateLimit      rate.Limit // requests per second
	RateLimitBurst int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewConfig returns the default configuration adjusted by the environment:
//
//	LISTEN_ADDRESS            interface to bind, all when empty
//	PORT                      listen port
//	RATE_LIMIT                requests per second across all routes
//	RATE_LIMIT_BURST          token bucket size
//	SHUTDOWN_TIMEOUT_SECONDS  graceful shutdown budget
//
// Invalid or non-positive values are logged and ignored.
func NewConfig() *Config {
	return parseConfig()
}

func parseConfig() *Config {
	cfg := &Config{
		Name:            "server",
		Version:         "undefined",
		Address:         os.Getenv("LISTEN_ADDRESS"),
		Port:            envPositiveInt("PORT", DefaultPort),
		RateLimit:       rate.Limit(envPositiveInt("RATE_LIMIT", defaultRateLimit)),
		RateLimitBurst:  envPositiveInt("RATE_LIMIT_BURST", defaultRateLimitBurst),
		ReadTimeout:     defaults.ServerReadTimeout,
		WriteTimeout:    defaults.ServerWriteTimeout,
		IdleTimeout:     defaults.ServerIdleTimeout,
		ShutdownTimeout: defaults.ServerShutdownTimeout,
	}

	if secs := envPositiveInt("SHUTDOWN_TIMEOUT_SECONDS", 0); secs > 0 {
		cfg.ShutdownTimeout = time.Duration(secs) * time.Second
	}

	return cfg
}

func envPositiveInt(key string, def int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("ignoring invalid server setting", "env", key, "value", raw)
		return def
	}
	return v
}
