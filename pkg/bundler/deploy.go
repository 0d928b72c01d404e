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

package bundler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/NVIDIA/appbundle/pkg/bundle"
	"github.com/NVIDIA/appbundle/pkg/config"
	"github.com/NVIDIA/appbundle/pkg/errors"
	"github.com/NVIDIA/appbundle/pkg/k8s/controlplane"
	"github.com/NVIDIA/appbundle/pkg/manifest"
)

const deploySuccessMessage = "Application deployed successfully"

// DeployRequest identifies a stored bundle and how to deploy it.
type DeployRequest struct {
	// Path is the bundle directory; it must lie in the store.
	Path string
	// Ports maps every NodePort service port to its external port.
	Ports manifest.ExternalPorts
	// Namespace overrides the namespace recorded in metadata when set.
	Namespace string
}

// DeployResult is returned by a successful deploy.
type DeployResult struct {
	Message   string   `json:"message"`
	URL       string   `json:"url"`
	Namespace string   `json:"namespace"`
	AppName   string   `json:"appname"`
	Images    []string `json:"images"`
}

// Deploy pushes the bundle's images to the destination registry and applies
// its manifest. The appname always comes from metadata; the namespace comes
// from the request when set, otherwise from metadata.
//
// Steps, each terminal on failure: resolve image archives, rewrite the
// manifest (port injection, image normalization, domain substitution),
// relocate images, create the namespace, apply. Port mapping problems are
// reported before any runtime or cluster call.
func (b *Bundler) Deploy(ctx context.Context, req DeployRequest) (*DeployResult, error) {
	if req.Path == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "path is required")
	}

	dir, namespace, appname, err := b.store.Locate(req.Path)
	if err != nil {
		return nil, err
	}

	unlock, err := b.lock(ctx, namespace, appname)
	if err != nil {
		return nil, err
	}
	defer unlock()

	md, err := bundle.ReadMetadata(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewWithContext(errors.ErrCodeNotFound, "bundle metadata not found",
				map[string]any{"path": req.Path})
		}
		return nil, err
	}
	if md.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "metadata name missing")
	}
	if md.Name != appname || (md.Namespace != "" && md.Namespace != namespace) {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest,
			"bundle metadata does not match its store location",
			map[string]any{"path": req.Path, "namespace": md.Namespace, "appname": md.Name})
	}

	return b.deployLocked(ctx, dir, md, req)
}

// deployLocked runs the deploy pipeline; the caller holds the bundle lock.
func (b *Bundler) deployLocked(ctx context.Context, dir string, md *bundle.Metadata, req DeployRequest) (res *DeployResult, err error) {
	start := time.Now()
	defer func() { observe(opDeploy, time.Since(start).Seconds(), err) }()

	namespace := resolveNamespace(req.Namespace, md)
	if err := bundle.ValidateID(namespace, md.Name); err != nil {
		return nil, err
	}
	log := slog.With("namespace", namespace, "appname", md.Name)

	refs, err := bundle.ResolveImages(dir, md.Images)
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if _, err := os.Stat(ref.Path); err != nil {
			return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "image archive missing from bundle",
				map[string]any{"image": ref.Name, "path": ref.Path})
		}
	}

	text, err := bundle.ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	rewritten, err := manifest.Rewrite(text, manifest.Options{
		Ports:       req.Ports,
		Placeholder: config.DomainPlaceholder,
		Domain:      b.Config.ClusterDomain(),
	})
	if err != nil {
		return nil, err
	}

	if err := b.requireRelocator(); err != nil {
		return nil, err
	}
	if err := b.requireControlPlane(); err != nil {
		return nil, err
	}

	applyFile, err := writeApplyFile(rewritten)
	if err != nil {
		return nil, err
	}
	defer os.Remove(applyFile)

	log.Info("deploying application", "images", len(refs))

	pushed, err := b.relocator.Deploy(ctx, refs)
	if err != nil {
		log.Error("image relocation failed", "error", err)
		return nil, err
	}

	cpCtx, cancel := context.WithTimeout(ctx, b.planeWait)
	defer cancel()

	if err := controlplane.IgnoreExists(b.plane.CreateNamespace(cpCtx, namespace)); err != nil {
		log.Warn("deploy stopped after images were pushed", "pushed", pushed, "stage", controlplane.StageNamespace)
		return nil, err
	}

	if err := b.plane.Apply(cpCtx, namespace, applyFile); err != nil {
		log.Warn("deploy stopped after images were pushed", "pushed", pushed, "stage", controlplane.StageApply)
		return nil, err
	}

	res = &DeployResult{
		Message:   deploySuccessMessage,
		URL:       b.detailURL(namespace, md.Name),
		Namespace: namespace,
		AppName:   md.Name,
		Images:    pushed,
	}
	log.Info("application deployed", "url", res.URL, "duration", time.Since(start))
	return res, nil
}

// resolveNamespace applies the precedence rule: an explicit override wins
// over the namespace recorded at export time.
func resolveNamespace(override string, md *bundle.Metadata) string {
	if override == "" {
		return md.Namespace
	}
	if md.Namespace != "" && override != md.Namespace {
		slog.Info("namespace override differs from bundle metadata",
			"override", override,
			"metadata", md.Namespace,
			"appname", md.Name)
	}
	return override
}

// writeApplyFile persists the rewritten manifest to a file unique to this
// deploy. The caller removes it.
func writeApplyFile(text string) (string, error) {
	f, err := os.CreateTemp("", "appbundle-apply-*.yaml")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to create apply file", err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to write apply file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to write apply file", err)
	}
	return f.Name(), nil
}

func (b *Bundler) detailURL(namespace, appname string) string {
	q := url.Values{}
	q.Set("namespace", namespace)
	q.Set("name", appname)
	return fmt.Sprintf("%s?%s", b.Config.DetailURL(), q.Encode())
}
