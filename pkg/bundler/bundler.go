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
	"time"

	"github.com/NVIDIA/appbundle/pkg/bundle"
	"github.com/NVIDIA/appbundle/pkg/config"
	"github.com/NVIDIA/appbundle/pkg/defaults"
	"github.com/NVIDIA/appbundle/pkg/errors"
	"github.com/NVIDIA/appbundle/pkg/image"
	"github.com/NVIDIA/appbundle/pkg/k8s/controlplane"
)

// Bundler runs the export, package, import and deploy pipelines over a
// bundle store.
//
// Every pipeline holds the per-bundle lock of its (namespace, appname) for
// its whole run, so operations on the same bundle are serialized while
// operations on different bundles run concurrently.
//
// Thread-safety: Bundler is safe for concurrent use.
type Bundler struct {
	// Config holds registry, domain and store settings.
	Config *config.Config

	store     *bundle.Store
	locks     *bundle.Locker
	runtime   image.Runtime
	relocator *image.Relocator
	plane     controlplane.ControlPlane
	lockWait  time.Duration
	planeWait time.Duration
}

// Option defines a functional option for configuring Bundler.
type Option func(*Bundler)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(b *Bundler) {
		if cfg != nil {
			b.Config = cfg
		}
	}
}

// WithRuntime sets the container runtime used for image relocation.
// Export and deploy fail without one.
func WithRuntime(rt image.Runtime) Option {
	return func(b *Bundler) {
		b.runtime = rt
	}
}

// WithControlPlane sets the cluster control plane. Deploy fails without one.
func WithControlPlane(cp controlplane.ControlPlane) Option {
	return func(b *Bundler) {
		b.plane = cp
	}
}

// WithLocker shares a Locker between Bundler instances.
func WithLocker(l *bundle.Locker) Option {
	return func(b *Bundler) {
		if l != nil {
			b.locks = l
		}
	}
}

// WithLockTimeout bounds how long a pipeline waits for its bundle lock.
func WithLockTimeout(d time.Duration) Option {
	return func(b *Bundler) {
		if d > 0 {
			b.lockWait = d
		}
	}
}

// New creates a Bundler. The configuration must name a store root.
//
// Example:
//
//	b, err := bundler.New(
//	    bundler.WithConfig(cfg),
//	    bundler.WithRuntime(rt),
//	    bundler.WithControlPlane(cp),
//	)
func New(opts ...Option) (*Bundler, error) {
	b := &Bundler{
		Config:    config.NewConfig(),
		locks:     bundle.NewLocker(),
		lockWait:  defaults.LockAcquireTimeout,
		planeWait: defaults.ControlPlaneTimeout,
	}

	for _, opt := range opts {
		opt(b)
	}

	store, err := bundle.NewStore(b.Config.StoreRoot())
	if err != nil {
		return nil, err
	}
	b.store = store

	if b.runtime != nil {
		b.relocator = image.NewRelocator(b.runtime,
			image.WithRegistry(b.Config.RegistryURL(), b.Config.RegistryUser(), b.Config.RegistryPass()),
			image.WithCallTimeout(defaults.RuntimeCallTimeout),
		)
	}

	return b, nil
}

// Store returns the bundle store the Bundler works on.
func (b *Bundler) Store() *bundle.Store {
	return b.store
}

// lock acquires the bundle scope for (namespace, appname), waiting at most
// the configured lock timeout.
func (b *Bundler) lock(ctx context.Context, namespace, appname string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, b.lockWait)
	defer cancel()
	return b.locks.Lock(lockCtx, namespace, appname)
}

func (b *Bundler) requireRelocator() error {
	if b.relocator == nil {
		return errors.New(errors.ErrCodeUnavailable, "no container runtime configured")
	}
	return nil
}

func (b *Bundler) requireControlPlane() error {
	if b.plane == nil {
		return errors.New(errors.ErrCodeUnavailable, "no control plane configured")
	}
	return nil
}
