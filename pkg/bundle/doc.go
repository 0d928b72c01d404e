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

// Package bundle implements the on-disk bundle store.
//
// A bundle is identified by (namespace, appname) and lives in
// <root>/<namespace>/<appname>/:
//
//	app.manifest       manifest text, stored verbatim
//	metadata.json      name, namespace, images and nodeports
//	<image>.tar        one saved archive per image
//	checksums.txt      sha256 of every file above
//
// The directory's existence and contents are the bundle; nothing else
// indexes it. Locker provides the per-bundle exclusive scope that export,
// import and deploy hold for their whole pipeline.
package bundle
