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

package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/NVIDIA/appbundle/pkg/bundler"
	"github.com/NVIDIA/appbundle/pkg/config"
	"github.com/NVIDIA/appbundle/pkg/image"
	"github.com/NVIDIA/appbundle/pkg/image/crane"
	"github.com/NVIDIA/appbundle/pkg/image/docker"
	"github.com/NVIDIA/appbundle/pkg/k8s/client"
	"github.com/NVIDIA/appbundle/pkg/k8s/controlplane"
	"github.com/NVIDIA/appbundle/pkg/logging"
	"github.com/NVIDIA/appbundle/pkg/server"
)

const (
	name           = "appbundled"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/NVIDIA/appbundle/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// NewRuntime returns the container runtime selected by cfg. The returned
// close function releases runtime resources and is never nil.
func NewRuntime(cfg *config.Config) (image.Runtime, func(), error) {
	switch cfg.Runtime() {
	case config.RuntimeCrane:
		rt := crane.New(crane.WithInsecure(cfg.PlainHTTP() || cfg.InsecureRegistry()))
		return rt, func() {}, nil
	case config.RuntimeDocker, "":
		rt, err := docker.New()
		if err != nil {
			return nil, nil, err
		}
		return rt, func() {
			if cerr := rt.Close(); cerr != nil {
				slog.Debug("failed to close docker client", "error", cerr)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported image runtime %q", cfg.Runtime())
	}
}

// NewControlPlane connects to the cluster named by cfg's kubeconfig, or the
// default discovery order when none is set.
func NewControlPlane(cfg *config.Config) (*controlplane.Kubernetes, error) {
	var (
		clients *client.Clients
		err     error
	)
	if cfg.Kubeconfig() != "" {
		clients, err = client.Build(cfg.Kubeconfig())
	} else {
		clients, err = client.Get()
	}
	if err != nil {
		return nil, err
	}
	return controlplane.NewFromClients(clients), nil
}

// NewBundler wires a Bundler with the runtime and control plane selected by
// cfg. A cluster that cannot be reached is logged and left out, so export
// and packaging still work; deploy then fails with SERVICE_UNAVAILABLE.
func NewBundler(cfg *config.Config) (*bundler.Bundler, func(), error) {
	rt, closeRuntime, err := NewRuntime(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create image runtime: %w", err)
	}

	opts := []bundler.Option{
		bundler.WithConfig(cfg),
		bundler.WithRuntime(rt),
	}
	if cp, cpErr := NewControlPlane(cfg); cpErr != nil {
		slog.Warn("control plane unavailable, deploy disabled", "error", cpErr)
	} else {
		opts = append(opts, bundler.WithControlPlane(cp))
	}

	b, err := bundler.New(opts...)
	if err != nil {
		closeRuntime()
		return nil, nil, err
	}
	return b, closeRuntime, nil
}

// Routes returns the application routes served by b.
func Routes(b *bundler.Bundler) map[string]http.HandlerFunc {
	return b.Handlers()
}

// Serve starts the API server and blocks until shutdown.
// It configures logging, sets up routes, and handles graceful shutdown.
// Returns an error if the server fails to start or encounters a fatal error.
func Serve(ctx context.Context, cfg *config.Config) error {
	logging.SetDefaultStructuredLogger(name, version)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	b, closeRuntime, err := NewBundler(cfg)
	if err != nil {
		return err
	}
	defer closeRuntime()

	s := server.New(
		server.WithName(name),
		server.WithVersion(version),
		server.WithHandler(Routes(b)),
	)

	if err := s.Run(ctx); err != nil {
		slog.Error("server exited with error", "error", err)
		return err
	}

	return nil
}
