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
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/appbundle/pkg/config"
	"github.com/NVIDIA/appbundle/pkg/manifest"
	"github.com/NVIDIA/appbundle/pkg/serializer"
)

func kubeconfigFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "kubeconfig",
		Aliases: []string{"k"},
		Usage:   fmt.Sprintf("path to kubeconfig file [$%s]", config.EnvKubeconfig),
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output file path (default: stdout)",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Value:   string(serializer.FormatYAML),
		Usage:   fmt.Sprintf("output format (%s)", strings.Join(serializer.SupportedFormats(), ", ")),
	}
}

func appnameFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "appname",
		Aliases:  []string{"a"},
		Required: true,
		Usage:    "application name",
	}
}

func namespaceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "namespace",
		Aliases:  []string{"n"},
		Required: true,
		Usage:    "application namespace",
	}
}

func portFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "port",
		Aliases: []string{"p"},
		Usage:   "external NodePort for a service port (format: internal=external, can be repeated)",
	}
}

func portsFileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "ports-file",
		Usage: "JSON or YAML file mapping service ports to external NodePorts",
	}
}

// parseOutputFormat returns the --format value or an error when it is not
// a supported format.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f := serializer.Format(cmd.String("format"))
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q", f)
	}
	return f, nil
}

// writeResult serializes v to --output, or to the command's writer.
func writeResult(ctx context.Context, cmd *cli.Command, v any) error {
	format, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		w := serializer.NewFileWriterOrStdout(format, path)
		if c, ok := w.(interface{ Close() error }); ok {
			defer c.Close()
		}
		return w.Serialize(ctx, v)
	}
	return serializer.NewWriter(format, cmd.Root().Writer).Serialize(ctx, v)
}

// parsePorts merges --ports-file and --port values; --port wins on
// conflicts. Integer values become ints. Anything else is kept as given so
// the manifest rewriter reports it with the right error code.
func parsePorts(cmd *cli.Command) (manifest.ExternalPorts, error) {
	ports := manifest.ExternalPorts{}

	if path := cmd.String("ports-file"); path != "" {
		fromFile, err := serializer.FromFile[manifest.ExternalPorts](path)
		if err != nil {
			return nil, err
		}
		for k, v := range *fromFile {
			ports[k] = v
		}
	}

	for _, kv := range cmd.StringSlice("port") {
		internal, external, ok := strings.Cut(kv, "=")
		internal = strings.TrimSpace(internal)
		external = strings.TrimSpace(external)
		if !ok || internal == "" {
			return nil, fmt.Errorf("invalid --port %q (format: internal=external)", kv)
		}
		if n, err := strconv.Atoi(external); err == nil {
			ports[internal] = n
		} else {
			ports[internal] = external
		}
	}
	return ports, nil
}
