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

// Package config holds the explicit configuration passed to every bundle
// component at construction: destination registry and credentials, cluster
// domain, bundle store root, kubeconfig and image runtime backend.
//
// Configuration comes from functional options or from the environment:
//
//	cfg, err := config.FromEnv()
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// Recognized variables: REGISTRY_URL, REGISTRY_USER, REGISTRY_PASS,
// CLUSTER_DOMAIN, SAVE_PATH, KUBECONFIG, IMAGE_RUNTIME (docker|crane),
// REGISTRY_PLAIN_HTTP, REGISTRY_INSECURE, PUBLIC_URL and DETAIL_URL.
// A .env file in the working directory is loaded first when present.
package config
