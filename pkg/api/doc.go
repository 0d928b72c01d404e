// Package api wires the bundle pipeline into the reusable pkg/server.
//
// It picks the container runtime named by the configuration (docker or
// crane), connects to the cluster when a kubeconfig or in-cluster config is
// available, and registers the bundler routes:
//
//	POST   /api/exportApp?appname=<a>&namespace=<n>   body {"yaml": ..., "images": [{"name": ...}]}
//	GET    /api/downloadApp?appname=<a>&namespace=<n> streams <a>.zip
//	POST   /api/uploadApp                             multipart "file" (+ "ports" JSON)
//	POST   /api/deployAppWithImage?namespace=<n>      body {"path": ..., "ports": {"8080": 30080}}
//	GET    /api/apps
//	DELETE /api/apps?appname=<a>&namespace=<n>
//
// System endpoints (/health, /ready, /metrics) come from pkg/server.
//
// Version information is set at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/NVIDIA/appbundle/pkg/api.version=1.0.0'"
package api
