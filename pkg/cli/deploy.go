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
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/appbundle/pkg/bundler"
)

func deployCmd() *cli.Command {
	return &cli.Command{
		Name:                  "deploy",
		EnableShellCompletion: true,
		Usage:                 "Deploy a stored bundle into the cluster",
		Description: `Pushes the bundle's images to the destination registry and applies its
manifest. The bundle is selected either by --path or by --appname and
--namespace in the store.

Every NodePort service port needs an external port in the NodePort range,
supplied with --port or --ports-file. Port problems are reported before any
registry or cluster call.

# Examples

  appbundle deploy -a shop -n prod --port 8080=30080
  appbundle deploy --path /data/bundles/prod/shop --target-namespace staging --ports-file ports.json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "bundle directory to deploy",
			},
			&cli.StringFlag{
				Name:    "appname",
				Aliases: []string{"a"},
				Usage:   "stored bundle application name (with --namespace)",
			},
			&cli.StringFlag{
				Name:    "namespace",
				Aliases: []string{"n"},
				Usage:   "stored bundle namespace (with --appname)",
			},
			&cli.StringFlag{
				Name:  "target-namespace",
				Usage: "deploy into this namespace instead of the one recorded in the bundle",
			},
			portFlag(),
			portsFileFlag(),
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}

			ports, err := parsePorts(cmd)
			if err != nil {
				return err
			}

			b, closeFn, err := openBundler(cmd)
			defer closeFn()
			if err != nil {
				return err
			}

			path, err := deployPath(cmd, b)
			if err != nil {
				return err
			}

			res, err := b.Deploy(ctx, bundler.DeployRequest{
				Path:      path,
				Ports:     ports,
				Namespace: cmd.String("target-namespace"),
			})
			if err != nil {
				slog.Error("deploy failed", "error", err)
				return err
			}

			return writeResult(ctx, cmd, res)
		},
	}
}

func deployPath(cmd *cli.Command, b *bundler.Bundler) (string, error) {
	path := cmd.String("path")
	appname, namespace := cmd.String("appname"), cmd.String("namespace")

	switch {
	case path != "" && (appname != "" || namespace != ""):
		return "", fmt.Errorf("--path cannot be combined with --appname or --namespace")
	case path != "":
		return path, nil
	case appname != "" && namespace != "":
		return b.Store().Lookup(namespace, appname)
	default:
		return "", fmt.Errorf("either --path or both --appname and --namespace are required")
	}
}
