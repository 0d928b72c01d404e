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

// Package image relocates container images between registries and bundle
// archives.
//
// Export direction, per image: login, pull from the source registry, save to
// <bundle>/<ArchiveName(name)>. Deploy direction, per image: login, load the
// archive, tag with DestinationName, push.
//
// The Runtime interface abstracts the container runtime. Two backends ship
// with this module: package docker (Docker Engine API) and package crane
// (daemonless, registry to registry).
//
// Relocation is fail-fast without rollback. When a step fails, images already
// relocated stay where they are; the failure is logged with the list of
// completed images and returned as an EXTERNAL_CALL error whose context
// carries the stage, the image and the runtime's error text.
package image
