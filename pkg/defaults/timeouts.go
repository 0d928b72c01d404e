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

package defaults

import "time"

// Pipeline timeouts for bundle operations.
const (
	// RuntimeCallTimeout bounds a single container runtime call
	// (login, pull, save, load, tag or push).
	RuntimeCallTimeout = 10 * time.Minute

	// ControlPlaneTimeout bounds a single control plane call
	// (namespace creation or manifest application).
	ControlPlaneTimeout = 2 * time.Minute

	// LockAcquireTimeout bounds how long a pipeline waits for another
	// operation on the same bundle to release it.
	LockAcquireTimeout = 30 * time.Second
)

// Handler timeouts for HTTP request processing.
const (
	// ExportHandlerTimeout is the timeout for export requests.
	// Pulls and saves every image, so it is the longest handler budget.
	ExportHandlerTimeout = 60 * time.Minute

	// DeployHandlerTimeout is the timeout for deploy and upload requests.
	DeployHandlerTimeout = 60 * time.Minute

	// DownloadHandlerTimeout is the timeout for packaging a bundle for download.
	DownloadHandlerTimeout = 10 * time.Minute
)

// Server timeouts for HTTP server configuration.
const (
	// ServerReadTimeout is the maximum duration for reading a request.
	// Uploads carry image archives, so this is generous.
	ServerReadTimeout = 30 * time.Minute

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 61 * time.Minute

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// Transfer sizes.
const (
	// DownloadChunkSize is the size of each chunk streamed to download clients.
	DownloadChunkSize = 1024

	// MaxUploadMemory is the multipart memory threshold; larger parts spill to disk.
	MaxUploadMemory = 32 << 20
)
