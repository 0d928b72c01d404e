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

// Package client builds the Kubernetes API clients used by the control plane.
//
// Get returns a shared instance created once with automatic kubeconfig
// discovery; Build creates a fresh instance for an explicit kubeconfig:
//
//	clients, err := client.Build(cfg.Kubeconfig())
//	if err != nil {
//	    return fmt.Errorf("failed to build kubernetes clients: %w", err)
//	}
//
// Discovery order for an empty path: KUBECONFIG, ~/.kube/config, then the
// in-cluster service account.
package client
