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
	"path/filepath"

	"github.com/urfave/cli/v3"
)

func importCmd() *cli.Command {
	return &cli.Command{
		Name:                  "import",
		EnableShellCompletion: true,
		Usage:                 "Import a bundle archive into the store and deploy it",
		ArgsUsage:             "<bundle.zip>",
		Description: `Extracts a bundle archive produced by "appbundle package" into
<store>/<namespace>/<appname>/, verifies checksums.txt when present, then
deploys the bundle. The namespace and appname come from the bundle metadata.

Every NodePort service port needs an external port, supplied with --port or
--ports-file. A failed deploy leaves the imported bundle in place and exits
non-zero; run "appbundle deploy" to retry.

# Examples

  appbundle import shop.zip --port 8080=30080
  appbundle import shop.zip --ports-file ports.yaml`,
		Flags: []cli.Flag{
			portFlag(),
			portsFileFlag(),
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("exactly one bundle archive is required")
			}
			path := cmd.Args().First()

			ports, err := parsePorts(cmd)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open bundle archive: %w", err)
			}
			defer f.Close()

			b, closeFn, err := openBundler(cmd)
			defer closeFn()
			if err != nil {
				return err
			}

			res, err := b.Import(ctx, filepath.Base(path), f, ports)
			if err != nil {
				slog.Error("import failed", "error", err)
				return err
			}

			if err := writeResult(ctx, cmd, res); err != nil {
				return err
			}
			if res.DeployError != nil {
				return fmt.Errorf("bundle imported to %s but deploy failed: %w", res.Path, res.DeployError)
			}
			return nil
		},
	}
}
