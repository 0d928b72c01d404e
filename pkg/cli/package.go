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
	"os"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/appbundle/pkg/bundler"
)

func packageCmd() *cli.Command {
	return &cli.Command{
		Name:                  "package",
		EnableShellCompletion: true,
		Usage:                 "Package a stored bundle into a zip archive",
		Description: `Zips the bundle directory of an exported application into
<store>/<namespace>/<appname>.zip, replacing any earlier archive. With
--copy-to the archive is also copied to the given path for transfer.

# Examples

  appbundle package -a shop -n prod
  appbundle package -a shop -n prod --copy-to /mnt/usb/shop.zip`,
		Flags: []cli.Flag{
			appnameFlag(),
			namespaceFlag(),
			&cli.StringFlag{
				Name:  "copy-to",
				Usage: "also copy the archive to this path",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			b, closeFn, err := openBundler(cmd)
			defer closeFn()
			if err != nil {
				return err
			}

			path, err := b.Package(ctx, cmd.String("namespace"), cmd.String("appname"))
			if err != nil {
				slog.Error("package failed", "error", err)
				return err
			}

			if dst := cmd.String("copy-to"); dst != "" {
				if err := copyArchive(path, dst); err != nil {
					return err
				}
				path = dst
			}

			fmt.Fprintln(cmd.Root().Writer, path)
			return nil
		},
	}
}

// copyArchive streams src to dst in download-sized chunks.
func copyArchive(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", dst, err)
	}
	if _, err := bundler.StreamChunks(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy archive: %w", err)
	}
	return out.Close()
}
