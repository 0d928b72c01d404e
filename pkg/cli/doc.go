// Package cli implements the appbundle command-line interface.
//
// # Overview
//
// appbundle moves a Kubernetes application between clusters together with
// its container images. An application is exported into a bundle directory
// in the local store, packaged as a zip or published as an OCI artifact,
// imported on the other side, and deployed after its images are relocated
// to the target cluster's registry.
//
// # Commands
//
//	appbundle export  -f app.yaml -i nginx:1.25 -a shop -n prod
//	appbundle package -a shop -n prod
//	appbundle publish -a shop -n prod --to oci://ghcr.io/acme/bundles/shop:v1
//	appbundle import  shop.zip --port 8080=30080
//	appbundle deploy  -a shop -n prod --ports-file ports.yaml
//	appbundle list
//	appbundle delete  -a shop -n prod
//	appbundle check   -n prod
//	appbundle serve
//
// # Configuration
//
// Settings are read from the environment (REGISTRY_URL, REGISTRY_USER,
// REGISTRY_PASS, CLUSTER_DOMAIN, SAVE_PATH, KUBECONFIG, IMAGE_RUNTIME,
// REGISTRY_PLAIN_HTTP, REGISTRY_INSECURE), optionally preloaded from
// --env-file. Global flags override individual settings.
//
// # Output
//
// Commands that return a result accept --format (json, yaml, table) and
// --output. Errors from an external stage are printed with the stage name.
package cli
