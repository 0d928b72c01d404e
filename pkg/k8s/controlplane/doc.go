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

// Package controlplane applies bundle manifests to a Kubernetes cluster.
//
// ControlPlane is the narrow interface the deploy pipeline depends on:
// idempotent namespace creation and manifest application scoped to a
// namespace. Kubernetes implements it with a typed clientset for namespaces
// and a dynamic client plus REST mapper for arbitrary manifest objects.
//
// Apply is create-or-update: each object is fetched, created when absent,
// otherwise updated with the live resourceVersion. Namespaced objects are
// forced into the target namespace.
package controlplane
