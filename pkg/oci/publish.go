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

package oci

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"path/filepath"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	apperrors "github.com/NVIDIA/appbundle/pkg/errors"
)

// ArtifactType is the artifact type of a published application bundle.
const ArtifactType = "application/vnd.nvidia.appbundle.bundle.v1"

// PackageOptions configures local OCI packaging of a bundle directory.
type PackageOptions struct {
	// SourceDir is the bundle directory to package.
	SourceDir string
	// OutputDir is the OCI Image Layout directory to write into.
	OutputDir string
	// Tag is the tag recorded in the layout's index.
	Tag string
	// Annotations are added to the artifact manifest.
	Annotations map[string]string
	// ReproducibleTimestamp fixes the created annotation (RFC 3339).
	ReproducibleTimestamp string
}

// PackageResult describes a locally packaged artifact.
type PackageResult struct {
	Digest    string
	Tag       string
	StorePath string
}

// PushOptions configures a push of a packaged artifact.
type PushOptions struct {
	Reference *Reference
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
}

// PushResult contains the result of a successful OCI push.
type PushResult struct {
	// Digest is the SHA256 digest of the pushed manifest.
	Digest string `json:"digest" yaml:"digest"`
	// Reference is the full image reference (registry/repository:tag).
	Reference string `json:"reference" yaml:"reference"`
}

// Package writes SourceDir as a single gzip layer of an OCI 1.1 artifact
// into an OCI Image Layout at OutputDir.
func Package(ctx context.Context, opts PackageOptions) (*PackageResult, error) {
	if opts.Tag == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "tag is required for OCI packaging")
	}

	absSource, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to resolve source directory", err)
	}
	info, err := os.Stat(absSource)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeNotFound, "source directory not found", err)
	}
	if !info.IsDir() {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest, "source is not a directory",
			map[string]any{"path": absSource})
	}

	fs, err := file.New(absSource)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create file store", err)
	}
	defer func() { _ = fs.Close() }()
	fs.TarReproducible = true

	layer, err := fs.Add(ctx, filepath.Base(absSource), ociv1.MediaTypeImageLayerGzip, absSource)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to add bundle directory to store", err)
	}

	annotations := make(map[string]string, len(opts.Annotations)+1)
	maps.Copy(annotations, opts.Annotations)
	if opts.ReproducibleTimestamp != "" {
		annotations[ociv1.AnnotationCreated] = opts.ReproducibleTimestamp
	}

	manifestDesc, err := oras.PackManifest(ctx, fs, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers:              []ociv1.Descriptor{layer},
		ManifestAnnotations: annotations,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to pack manifest", err)
	}
	if err = fs.Tag(ctx, manifestDesc, opts.Tag); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to tag manifest in file store", err)
	}

	layout, err := oci.New(opts.OutputDir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create OCI layout", err)
	}
	desc, err := oras.Copy(ctx, fs, opts.Tag, layout, opts.Tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to write OCI layout", err)
	}

	return &PackageResult{
		Digest:    desc.Digest.String(),
		Tag:       opts.Tag,
		StorePath: opts.OutputDir,
	}, nil
}

// PushFromStore copies a tagged artifact from an OCI Image Layout to a
// remote registry.
func PushFromStore(ctx context.Context, storePath string, opts PushOptions) (*PushResult, error) {
	ref := opts.Reference
	if ref == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "OCI reference is required")
	}
	if ref.Tag == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "tag is required to push OCI image")
	}
	registryHost := stripProtocol(ref.Registry)
	if err := ValidateRegistryReference(registryHost, ref.Repository); err != nil {
		return nil, err
	}

	layout, err := oci.New(storePath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to open OCI layout", err)
	}

	repo, err := remote.NewRepository(fmt.Sprintf("%s/%s", registryHost, ref.Repository))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "failed to initialize remote repository", err)
	}
	repo.PlainHTTP = opts.PlainHTTP
	repo.Client = createAuthClient(opts.PlainHTTP, opts.InsecureTLS)

	desc, err := oras.Copy(ctx, layout, ref.Tag, repo, ref.Tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeExternalCall, "failed to push artifact to registry", err,
			map[string]any{"reference": ref.ImageReference()})
	}

	return &PushResult{
		Digest:    desc.Digest.String(),
		Reference: fmt.Sprintf("%s/%s:%s", registryHost, ref.Repository, ref.Tag),
	}, nil
}

// PublishOptions configures Publish.
type PublishOptions struct {
	SourceDir             string
	Reference             *Reference
	Annotations           map[string]string
	ReproducibleTimestamp string
	PlainHTTP             bool
	InsecureTLS           bool
}

// Publish packages SourceDir into a temporary OCI layout and pushes it.
// A reference without a tag is published as DefaultTag.
func Publish(ctx context.Context, opts PublishOptions) (*PushResult, error) {
	if opts.Reference == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "OCI reference is required")
	}
	ref := opts.Reference
	if ref.Tag == "" {
		ref = ref.WithTag(DefaultTag)
	}

	tmp, err := os.MkdirTemp("", "appbundle-oci-*")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create temp directory", err)
	}
	defer os.RemoveAll(tmp)

	pkg, err := Package(ctx, PackageOptions{
		SourceDir:             opts.SourceDir,
		OutputDir:             tmp,
		Tag:                   ref.Tag,
		Annotations:           opts.Annotations,
		ReproducibleTimestamp: opts.ReproducibleTimestamp,
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("bundle packaged as OCI artifact", "digest", pkg.Digest, "tag", pkg.Tag)

	res, err := PushFromStore(ctx, pkg.StorePath, PushOptions{
		Reference:   ref,
		PlainHTTP:   opts.PlainHTTP,
		InsecureTLS: opts.InsecureTLS,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("bundle published", "reference", res.Reference, "digest", res.Digest)
	return res, nil
}

// createAuthClient creates an HTTP client with optional TLS configuration
// and Docker credential support.
func createAuthClient(plainHTTP, insecureTLS bool) *auth.Client {
	credStore, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		slog.Debug("docker credential store unavailable", "error", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !plainHTTP && insecureTLS {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
		}
	}

	client := &auth.Client{
		Client: &http.Client{Transport: transport},
		Cache:  auth.NewCache(),
	}
	if credStore != nil {
		client.Credential = credentials.Credential(credStore)
	}
	return client
}
