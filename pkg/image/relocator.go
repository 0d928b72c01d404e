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

package image

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/NVIDIA/appbundle/pkg/bundle"
	"github.com/NVIDIA/appbundle/pkg/defaults"
	"github.com/NVIDIA/appbundle/pkg/errors"
)

// Relocator moves images between registries and bundle archives through a
// Runtime. Both directions are fail-fast: the first failing step aborts the
// remaining images and nothing already done is undone.
//
// Login is the first step of both directions, but it is skipped when no
// registry user or password is configured; anonymous registries then rely on
// whatever credentials the Runtime already has.
type Relocator struct {
	runtime     Runtime
	registry    string
	user        string
	pass        string
	callTimeout time.Duration
}

// Option configures a Relocator.
type Option func(*Relocator)

// WithRegistry sets the registry and credentials used for login and as the
// destination of pushed images.
func WithRegistry(url, user, pass string) Option {
	return func(r *Relocator) {
		r.registry = url
		r.user = user
		r.pass = pass
	}
}

// WithCallTimeout bounds every individual runtime call.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Relocator) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// NewRelocator returns a Relocator driving rt.
func NewRelocator(rt Runtime, opts ...Option) *Relocator {
	r := &Relocator{
		runtime:     rt,
		callTimeout: defaults.RuntimeCallTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Export logs in once, then pulls and saves every image into dir as
// ArchiveName(name). It returns one ImageRef per image in input order.
func (r *Relocator) Export(ctx context.Context, names []string, dir string) ([]bundle.ImageRef, error) {
	completed := make([]string, 0, len(names))

	if err := r.login(ctx, "", completed); err != nil {
		return nil, err
	}

	refs := make([]bundle.ImageRef, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, ArchiveName(name))

		slog.Info("pulling image", "image", name)
		if err := r.call(ctx, StagePull, name, completed, func(ctx context.Context) error {
			return r.runtime.Pull(ctx, name)
		}); err != nil {
			return nil, err
		}

		slog.Info("saving image", "image", name, "path", path)
		if err := r.call(ctx, StageSave, name, completed, func(ctx context.Context) error {
			return r.runtime.Save(ctx, name, path)
		}); err != nil {
			return nil, err
		}

		refs = append(refs, bundle.ImageRef{Name: name, Path: path})
		completed = append(completed, name)
	}
	return refs, nil
}

// Deploy loads every archive, tags it for the destination registry and
// pushes it. Destination names are derived for all images before the first
// runtime call, so an invalid name fails without side effects. It returns
// the pushed names in input order.
func (r *Relocator) Deploy(ctx context.Context, refs []bundle.ImageRef) ([]string, error) {
	dsts := make([]string, len(refs))
	for i, ref := range refs {
		dst, err := DestinationName(r.registry, ref.Name)
		if err != nil {
			var se *errors.StructuredError
			if stderrors.As(err, &se) {
				return nil, se.WithContext(map[string]any{"archive": ref.Path})
			}
			return nil, err
		}
		dsts[i] = dst
	}

	completed := make([]string, 0, len(refs))
	for i, ref := range refs {
		dst := dsts[i]

		if err := r.login(ctx, ref.Name, completed); err != nil {
			return nil, err
		}

		slog.Info("loading image", "image", ref.Name, "path", ref.Path)
		if err := r.call(ctx, StageLoad, ref.Name, completed, func(ctx context.Context) error {
			return r.runtime.Load(ctx, ref.Path)
		}); err != nil {
			return nil, err
		}

		if err := r.call(ctx, StageTag, ref.Name, completed, func(ctx context.Context) error {
			return r.runtime.Tag(ctx, ref.Name, dst)
		}); err != nil {
			return nil, err
		}

		slog.Info("pushing image", "image", ref.Name, "destination", dst)
		if err := r.call(ctx, StagePush, ref.Name, completed, func(ctx context.Context) error {
			return r.runtime.Push(ctx, dst)
		}); err != nil {
			return nil, err
		}

		completed = append(completed, dst)
	}
	return completed, nil
}

// login is skipped for anonymous registries.
func (r *Relocator) login(ctx context.Context, image string, completed []string) error {
	if r.user == "" && r.pass == "" {
		return nil
	}
	return r.call(ctx, StageLogin, image, completed, func(ctx context.Context) error {
		return r.runtime.Login(ctx, r.registry, r.user, r.pass)
	})
}

// call runs one runtime step under its own timeout. On failure it logs the
// partial relocation state and returns an EXTERNAL_CALL error (TIMEOUT when
// the step's deadline expired).
func (r *Relocator) call(ctx context.Context, stage, image string, completed []string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil {
		return nil
	}

	code := errors.ErrCodeExternalCall
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(callCtx.Err(), context.DeadlineExceeded) {
		code = errors.ErrCodeTimeout
	}

	done := append([]string(nil), completed...)
	slog.Warn("image relocation stopped, completed steps are left in place",
		"stage", stage,
		"image", image,
		"completed", done,
		"error", err)

	return errors.WrapWithContext(code, fmt.Sprintf("%s failed for image %s", stage, image), err,
		map[string]any{
			"stage":     stage,
			"image":     image,
			"error":     err.Error(),
			"completed": done,
		})
}
