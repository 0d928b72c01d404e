// Package oci publishes application bundles to OCI-compliant registries.
//
// A bundle directory is packed as a single gzip layer of an OCI 1.1
// artifact whose artifact type is ArtifactType. The layer title is the
// bundle directory name, so pulling the artifact with any ORAS client
// recreates the directory.
//
// # Usage
//
//	ref, err := oci.ParseReference("oci://ghcr.io/acme/bundles/myapp:v1")
//	if err != nil {
//	    return err
//	}
//	res, err := oci.Publish(ctx, oci.PublishOptions{
//	    SourceDir: "/var/lib/appbundle/default/myapp",
//	    Reference: ref,
//	})
//
// Package and PushFromStore can also be used separately to keep a local
// OCI Image Layout around, for example for air-gapped transfer.
//
// # Authentication
//
// Credentials are loaded from the standard Docker configuration
// (~/.docker/config.json, or $DOCKER_CONFIG) including credential helpers.
package oci
