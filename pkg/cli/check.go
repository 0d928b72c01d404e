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

	"github.com/NVIDIA/appbundle/pkg/api"
	"github.com/NVIDIA/appbundle/pkg/config"
	"github.com/NVIDIA/appbundle/pkg/k8s/controlplane"
	"github.com/NVIDIA/appbundle/pkg/serializer"
)

type permissionChecker interface {
	CheckPermissions(ctx context.Context, namespace string) ([]controlplane.PermissionCheck, error)
}

// newPermissionChecker connects to the cluster for "check". Tests replace it.
var newPermissionChecker = func(cfg *config.Config) (permissionChecker, error) {
	return api.NewControlPlane(cfg)
}

type checkLine struct {
	Permission string `json:"permission" yaml:"permission"`
	Scope      string `json:"scope" yaml:"scope"`
	Allowed    bool   `json:"allowed" yaml:"allowed"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

type checkReport struct {
	Namespace string      `json:"namespace" yaml:"namespace"`
	Ready     bool        `json:"ready" yaml:"ready"`
	Checks    []checkLine `json:"checks" yaml:"checks"`
}

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:                  "check",
		EnableShellCompletion: true,
		Usage:                 "Verify the cluster identity can deploy bundles",
		Description: `Runs access reviews for everything a deploy needs: creating the target
namespace and reading, creating and updating deployments, services and
configmaps in it. Exits non-zero when any permission is missing.

# Examples

  appbundle check -n prod
  appbundle check -n prod -t json`,
		Flags: []cli.Flag{
			namespaceFlag(),
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

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			checker, err := newPermissionChecker(cfg)
			if err != nil {
				return fmt.Errorf("failed to connect to cluster: %w", err)
			}

			namespace := cmd.String("namespace")
			checks, checkErr := checker.CheckPermissions(ctx, namespace)

			report := checkReport{
				Namespace: namespace,
				Ready:     checkErr == nil,
				Checks:    make([]checkLine, 0, len(checks)),
			}
			for _, c := range checks {
				report.Checks = append(report.Checks, describeCheck(c))
			}

			if err := writeResult(ctx, cmd, report); err != nil {
				return err
			}
			return checkErr
		},
	}
}

func describeCheck(c controlplane.PermissionCheck) checkLine {
	resource := c.Resource
	if c.Group != "" {
		resource += "." + c.Group
	}
	scope := "cluster"
	if c.Namespace != "" {
		scope = "namespace/" + c.Namespace
	}
	return checkLine{
		Permission: titleCaser.String(c.Verb) + " " + resource,
		Scope:      scope,
		Allowed:    c.Allowed,
		Reason:     c.Reason,
	}
}
