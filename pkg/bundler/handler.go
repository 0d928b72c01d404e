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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/NVIDIA/appbundle/pkg/bundle"
	"github.com/NVIDIA/appbundle/pkg/defaults"
	apperrors "github.com/NVIDIA/appbundle/pkg/errors"
	"github.com/NVIDIA/appbundle/pkg/manifest"
	"github.com/NVIDIA/appbundle/pkg/server"
)

const (
	msgExported = "Application exported successfully"
	msgUploaded = "Application uploaded and extracted successfully"

	msgNoFilePart     = "No file part in the request"
	msgNoFileSelected = "No file selected for uploading"
)

type exportBody struct {
	YAML   string `json:"yaml"`
	Images []struct {
		Name string `json:"name"`
	} `json:"images"`
}

type exportResponse struct {
	Message string `json:"message"`
	*ExportResult
}

type deployBody struct {
	Path  string                 `json:"path"`
	Ports manifest.ExternalPorts `json:"ports"`
}

type uploadResponse struct {
	Message string `json:"message"`
	*ImportResult
	DeployError *server.ErrorResponse `json:"deploy_error,omitempty"`
}

// Handlers returns the HTTP routes served by the bundler, keyed by
// method-qualified mux pattern.
func (b *Bundler) Handlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"POST /api/exportApp":          b.HandleExport,
		"GET /api/downloadApp":         b.HandleDownload,
		"POST /api/uploadApp":          b.HandleUpload,
		"POST /api/deployAppWithImage": b.HandleDeploy,
		"GET /api/apps":                b.HandleList,
		"DELETE /api/apps":             b.HandleDelete,
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	server.WriteError(w, r, http.StatusMethodNotAllowed, apperrors.ErrCodeMethodNotAllowed,
		"Method not allowed", false, map[string]any{
			"method": r.Method,
		})
	return false
}

// decodeJSON decodes the request body keeping numbers as json.Number so port
// values can be told apart from strings and non-integral floats.
func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid request body", err)
	}
	return nil
}

// HandleExport handles POST /api/exportApp?appname=<a>&namespace=<n>.
//
// Body:
//
//	{"yaml": "<manifest>", "images": [{"name": "nginx:1.25"}]}
func (b *Bundler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaults.ExportHandlerTimeout)
	defer cancel()

	var body exportBody
	if err := decodeJSON(r.Body, &body); err != nil {
		server.WriteErrorFromErr(w, r, err, "Invalid request body", nil)
		return
	}

	req := ExportRequest{
		Manifest:  body.YAML,
		AppName:   r.URL.Query().Get("appname"),
		Namespace: r.URL.Query().Get("namespace"),
	}
	for _, img := range body.Images {
		req.Images = append(req.Images, img.Name)
	}

	res, err := b.Export(ctx, req)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to export application", nil)
		return
	}

	server.WriteJSON(w, http.StatusOK, exportResponse{Message: msgExported, ExportResult: res})
}

// HandleDownload handles GET /api/downloadApp?appname=<a>&namespace=<n>. The
// bundle is packaged and streamed as <appname>.zip.
func (b *Bundler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaults.DownloadHandlerTimeout)
	defer cancel()

	appname := r.URL.Query().Get("appname")
	namespace := r.URL.Query().Get("namespace")

	zipPath, err := b.Package(ctx, namespace, appname)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to package application", nil)
		return
	}

	f, err := os.Open(zipPath)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to open package", nil)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.zip", appname))
	if info, statErr := f.Stat(); statErr == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	}
	w.WriteHeader(http.StatusOK)

	n, err := StreamChunks(w, f)
	if err != nil {
		// Headers are out; nothing left but to log.
		slog.Error("failed to stream bundle",
			"namespace", namespace,
			"appname", appname,
			"written", n,
			"error", err,
		)
		return
	}
	slog.Debug("bundle streamed", "namespace", namespace, "appname", appname, "bytes", n)
}

// HandleUpload handles POST /api/uploadApp with a multipart "file" part
// holding the bundle zip and an optional "ports" field with the NodePort
// mapping JSON used by the follow-up deploy.
func (b *Bundler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaults.DeployHandlerTimeout)
	defer cancel()

	if err := r.ParseMultipartForm(defaults.MaxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		server.WriteError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest,
			"Invalid multipart request", false, map[string]any{"error": err.Error()})
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		msg := msgNoFilePart
		// a file part with an empty filename is parsed as a plain value
		if r.MultipartForm != nil {
			if _, ok := r.MultipartForm.Value["file"]; ok {
				msg = msgNoFileSelected
			}
		}
		server.WriteError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest,
			msg, false, nil)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		server.WriteError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest,
			msgNoFileSelected, false, nil)
		return
	}

	var ports manifest.ExternalPorts
	if raw := r.FormValue("ports"); raw != "" {
		if err := decodeJSON(bytes.NewBufferString(raw), &ports); err != nil {
			server.WriteErrorFromErr(w, r, err, "Invalid ports", nil)
			return
		}
	}

	res, err := b.Import(ctx, filepath.Base(header.Filename), file, ports)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to import application", nil)
		return
	}

	resp := uploadResponse{Message: msgUploaded, ImportResult: res}
	if res.DeployError != nil {
		resp.DeployError = deployErrorResponse(r, res.DeployError)
	}
	server.WriteJSON(w, http.StatusOK, resp)
}

func deployErrorResponse(r *http.Request, err error) *server.ErrorResponse {
	code := apperrors.CodeOf(err)
	resp := &server.ErrorResponse{
		Code:      string(code),
		Message:   err.Error(),
		RequestID: server.RequestID(r),
	}
	var se *apperrors.StructuredError
	if errors.As(err, &se) {
		resp.Message = se.Message
		resp.Details = se.Context
	}
	return resp
}

// HandleDeploy handles POST /api/deployAppWithImage?namespace=<n>.
//
// Body:
//
//	{"path": "<bundle dir>", "ports": {"8080": 30080}}
func (b *Bundler) HandleDeploy(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaults.DeployHandlerTimeout)
	defer cancel()

	var body deployBody
	if err := decodeJSON(r.Body, &body); err != nil {
		server.WriteErrorFromErr(w, r, err, "Invalid request body", nil)
		return
	}

	res, err := b.Deploy(ctx, DeployRequest{
		Path:      body.Path,
		Ports:     body.Ports,
		Namespace: r.URL.Query().Get("namespace"),
	})
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to deploy application", nil)
		return
	}

	server.WriteJSON(w, http.StatusOK, res)
}

// HandleList handles GET /api/apps.
func (b *Bundler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	apps, err := b.List()
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to list applications", nil)
		return
	}
	if apps == nil {
		apps = []bundle.Metadata{}
	}

	server.WriteJSON(w, http.StatusOK, map[string]any{"apps": apps})
}

// HandleDelete handles DELETE /api/apps?appname=<a>&namespace=<n>.
func (b *Bundler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}

	appname := r.URL.Query().Get("appname")
	namespace := r.URL.Query().Get("namespace")

	if err := b.Delete(r.Context(), namespace, appname); err != nil {
		server.WriteErrorFromErr(w, r, err, "Failed to delete application", nil)
		return
	}

	server.WriteJSON(w, http.StatusOK, map[string]any{
		"message":   "Application deleted successfully",
		"namespace": namespace,
		"appname":   appname,
	})
}
