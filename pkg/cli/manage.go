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

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/appbundle/pkg/serializer"
)

func listCmd() *cli.Command {
	return &cli.Command{
		Name:                  "list",
		Aliases:               []string{"ls"},
		EnableShellCompletion: true,
		Usage:                 "List stored bundles",
		Flags: []cli.Flag{
			outputFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"t"},
				Value:   string(serializer.FormatTable),
				Usage:   "output format (json, yaml, table)",
			},
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

			apps, err := b.List()
			if err != nil {
				return err
			}
			return writeResult(ctx, cmd, map[string]any{"apps": apps})
		},
	}
}

func deleteCmd() *cli.Command {
	return &cli.Command{
		Name:                  "delete",
		Aliases:               []string{"rm"},
		EnableShellCompletion: true,
		Usage:                 "Delete a stored bundle and its archive",
		Description: `Removes <store>/<namespace>/<appname>/ and its packaged zip. Nothing
deployed from the bundle is touched.`,
		Flags: []cli.Flag{
			appnameFlag(),
			namespaceFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			b, closeFn, err := openBundler(cmd)
			defer closeFn()
			if err != nil {
				return err
			}

			namespace, appname := cmd.String("namespace"), cmd.String("appname")
			if err := b.Delete(ctx, namespace, appname); err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "deleted %s/%s\n", namespace, appname)
			return nil
		},
	}
}
