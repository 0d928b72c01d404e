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

// Package k8s groups the Kubernetes integration used by the deploy pipeline.
//
// # Sub-packages
//
// client: shared clientset, dynamic client and REST mapper, built from an
// explicit kubeconfig or discovered in-cluster / from $KUBECONFIG.
//
//	clients, err := client.Get()
//
// controlplane: the ControlPlane the deployer talks to. It creates
// namespaces (treating already-exists as success), applies every document of
// a manifest with create-or-update semantics, and reviews the permissions a
// deploy needs.
//
//	cp := controlplane.NewFromClients(clients)
//	if err := cp.Apply(ctx, "prod", "/tmp/app.yaml"); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// client.Get initializes once with sync.Once. A controlplane.Kubernetes is
// safe for concurrent use.
package k8s
