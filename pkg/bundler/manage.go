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
	"log/slog"

	"github.com/NVIDIA/appbundle/pkg/bundle"
)

// List returns the metadata of every stored bundle.
func (b *Bundler) List() ([]bundle.Metadata, error) {
	return b.store.List()
}

// Delete removes the bundle directory and packaged archive of
// (namespace, appname). Nothing deployed from the bundle is touched.
func (b *Bundler) Delete(ctx context.Context, namespace, appname string) error {
	if err := bundle.ValidateID(namespace, appname); err != nil {
		return err
	}

	unlock, err := b.lock(ctx, namespace, appname)
	if err != nil {
		return err
	}
	defer unlock()

	if err := b.store.Delete(namespace, appname); err != nil {
		return err
	}
	slog.Info("bundle deleted", "namespace", namespace, "appname", appname)
	return nil
}
