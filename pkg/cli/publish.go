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
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/appbundle/pkg/bundler"
	"github.com/NVIDIA/appbundle/pkg/oci"
)

func publishCmd() *cli.Command {
	return &cli.Command{
		Name:                  "publish",
		EnableShellCompletion: true,
		Usage:                 "Push a stored bundle to an OCI registry",
		Description: `Publishes the bundle directory as a single-layer OCI artifact. The target
is an oci:// reference with an explicit registry host; a missing tag is
published as "` + oci.DefaultTag + `". Registry credentials come from the Docker
configuration; --plain-http and --insecure-registry apply.

# Examples

  appbundle publish -a shop -n prod --to oci://ghcr.io/acme/bundles/shop:v1
  appbundle --plain-http publish -a shop -n prod --to oci://localhost:5000/bundles/shop`,
		Flags: []cli.Flag{
			appnameFlag(),
			namespaceFlag(),
			&cli.StringFlag{
				Name:     "to",
				Required: true,
				Usage:    "OCI target reference (oci://registry/repository[:tag])",
			},
			&cli.StringFlag{
				Name:  "timestamp",
				Usage: "fixed RFC 3339 created timestamp for reproducible artifacts",
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}

			b, closeFn, err := openBundler(cmd)
			defer closeFn()
			if err != nil {
				return err
			}

			res, err := b.Publish(ctx, bundler.PublishRequest{
				Namespace:             cmd.String("namespace"),
				AppName:               cmd.String("appname"),
				Target:                cmd.String("to"),
				ReproducibleTimestamp: cmd.String("timestamp"),
			})
			if err != nil {
				slog.Error("publish failed", "error", err)
				return err
			}

			return writeResult(ctx, cmd, res)
		},
	}
}
