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

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/NVIDIA/appbundle/pkg/api"
	"github.com/NVIDIA/appbundle/pkg/bundler"
	"github.com/NVIDIA/appbundle/pkg/config"
	apperrors "github.com/NVIDIA/appbundle/pkg/errors"
	"github.com/NVIDIA/appbundle/pkg/logging"
)

const (
	name           = "appbundle"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// newBundler builds the Bundler a command runs against. Tests replace it.
var newBundler = api.NewBundler

// Execute runs the appbundle CLI with os.Args and exits non-zero on failure.
// SIGINT and SIGTERM cancel the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.Run(ctx, os.Args); err != nil {
		printError(cmd.ErrWriter, err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above
	}
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:                  name,
		EnableShellCompletion: true,
		Version:               fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Usage:                 "Export, move and deploy Kubernetes applications with their images",
		Description: `appbundle captures a Kubernetes application (its manifest and container
images) into a self-contained bundle, moves the bundle between clusters as a
zip archive or OCI artifact, and deploys it into a target cluster after
relocating its images to that cluster's registry.

Settings are read from the environment (optionally from --env-file) and can
be overridden per invocation with the global flags below.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "dotenv file(s) to load before reading the environment (default: ./.env when present)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: fmt.Sprintf("bundle store root directory [$%s]", config.EnvStoreRoot),
			},
			&cli.StringFlag{
				Name:  "registry",
				Usage: fmt.Sprintf("destination registry host, e.g. sealos.hub:5000 [$%s]", config.EnvRegistryURL),
			},
			&cli.StringFlag{
				Name:  "registry-user",
				Usage: fmt.Sprintf("destination registry user [$%s]", config.EnvRegistryUser),
			},
			&cli.StringFlag{
				Name:  "registry-pass",
				Usage: fmt.Sprintf("destination registry password [$%s]", config.EnvRegistryPass),
			},
			&cli.StringFlag{
				Name:  "cluster-domain",
				Usage: fmt.Sprintf("cluster domain substituted for %s in manifests [$%s]", config.DomainPlaceholder, config.EnvClusterDomain),
			},
			&cli.StringFlag{
				Name:  "runtime",
				Usage: fmt.Sprintf("image runtime: %s or %s [$%s]", config.RuntimeDocker, config.RuntimeCrane, config.EnvRuntime),
			},
			&cli.BoolFlag{
				Name:  "plain-http",
				Usage: fmt.Sprintf("use HTTP instead of HTTPS for registries [$%s]", config.EnvPlainHTTP),
			},
			&cli.BoolFlag{
				Name:  "insecure-registry",
				Usage: fmt.Sprintf("skip registry TLS verification [$%s]", config.EnvInsecureRegistry),
			},
			kubeconfigFlag(),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := cmd.String("log-level")
			logging.SetDefaultStructuredLoggerWithLevel(name, version, level)
			slog.Debug("starting",
				"name", name,
				"version", version,
				"commit", commit,
				"date", date,
				"logLevel", level)
			return ctx, nil
		},
		Commands: []*cli.Command{
			exportCmd(),
			packageCmd(),
			importCmd(),
			deployCmd(),
			publishCmd(),
			listCmd(),
			deleteCmd(),
			checkCmd(),
			serveCmd(),
		},
	}
}

// loadConfig reads the environment and applies any global flag that was set.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	base, err := config.FromEnv(cmd.StringSlice("env-file")...)
	if err != nil {
		return nil, err
	}

	str := func(flag, current string) string {
		if cmd.IsSet(flag) {
			return cmd.String(flag)
		}
		return current
	}
	boolean := func(flag string, current bool) bool {
		if cmd.IsSet(flag) {
			return cmd.Bool(flag)
		}
		return current
	}

	return base.With(
		config.WithRegistry(
			str("registry", base.RegistryURL()),
			str("registry-user", base.RegistryUser()),
			str("registry-pass", base.RegistryPass()),
		),
		config.WithStoreRoot(str("store", base.StoreRoot())),
		config.WithClusterDomain(str("cluster-domain", base.ClusterDomain())),
		config.WithRuntime(str("runtime", base.Runtime())),
		config.WithKubeconfig(str("kubeconfig", base.Kubeconfig())),
		config.WithPlainHTTP(boolean("plain-http", base.PlainHTTP())),
		config.WithInsecureRegistry(boolean("insecure-registry", base.InsecureRegistry())),
	), nil
}

// openBundler loads the configuration and builds a Bundler from it. The
// returned close function is never nil.
func openBundler(cmd *cli.Command) (*bundler.Bundler, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, func() {}, err
	}
	b, closeFn, err := newBundler(cfg)
	if err != nil {
		return nil, func() {}, err
	}
	return b, closeFn, nil
}

var titleCaser = cases.Title(language.English)

// printError writes err to w. Failures of an external stage are prefixed
// with the stage name so the operator sees where a pipeline stopped.
func printError(w io.Writer, err error) {
	if w == nil {
		w = os.Stderr
	}
	var se *apperrors.StructuredError
	if errors.As(err, &se) {
		if stage, ok := se.Context["stage"].(string); ok && stage != "" {
			fmt.Fprintf(w, "%s stage failed [%s]: %v\n", titleCaser.String(stage), se.Code, err)
			return
		}
		fmt.Fprintf(w, "[%s] %v\n", se.Code, err)
		return
	}
	fmt.Fprintln(w, err)
}
