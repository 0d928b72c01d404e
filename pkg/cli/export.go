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
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/appbundle/pkg/bundler"
)

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:                  "export",
		EnableShellCompletion: true,
		Usage:                 "Capture an application manifest and its images into a bundle",
		Description: `Exports an application into the bundle store. The bundle directory
<store>/<namespace>/<appname>/ is recreated and receives:

  - app.manifest: the manifest, stored verbatim
  - <image>.tar: one archive per image
  - metadata.json: images and NodePort service ports
  - checksums.txt: SHA-256 of every file

Images are pulled first when the runtime does not have them locally.

# Examples

Export from a manifest file:
  appbundle export -f app.yaml -i nginx:1.25 -i redis:7 --appname shop --namespace prod

Export from stdin:
  kubectl get deploy,svc -n prod -o yaml | appbundle export -f - -i nginx:1.25 -a shop -n prod`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "manifest",
				Aliases:  []string{"f"},
				Required: true,
				Usage:    "manifest file to export, or - for stdin",
			},
			&cli.StringSliceFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "image referenced by the manifest (can be repeated)",
			},
			appnameFlag(),
			namespaceFlag(),
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}

			text, err := readManifest(cmd)
			if err != nil {
				return err
			}

			b, closeFn, err := openBundler(cmd)
			defer closeFn()
			if err != nil {
				return err
			}

			res, err := b.Export(ctx, bundler.ExportRequest{
				Manifest:  text,
				Images:    cmd.StringSlice("image"),
				AppName:   cmd.String("appname"),
				Namespace: cmd.String("namespace"),
			})
			if err != nil {
				slog.Error("export failed", "error", err)
				return err
			}

			return writeResult(ctx, cmd, res)
		},
	}
}

func readManifest(cmd *cli.Command) (string, error) {
	path := cmd.String("manifest")
	if path == "-" {
		r := cmd.Root().Reader
		if r == nil {
			r = os.Stdin
		}
		b, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read manifest from stdin: %w", err)
		}
		return string(b), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read manifest %q: %w", path, err)
	}
	return string(b), nil
}
