/*
Package bundler runs the application bundle pipelines.

A bundle captures a running application (its manifest and the container
images it references) so it can be restored into another cluster and
registry. Bundler ties the bundle store, the manifest rewriter, the image
relocator and the control plane together.

# Pipelines

  - Export: recreate the bundle directory, store the manifest verbatim,
    discover NodePorts, pull and save every image, write metadata.json and
    checksums.txt.
  - Package: zip the bundle directory into <root>/<namespace>/<appname>.zip.
  - Import: stage an uploaded zip, extract it, verify checksums, move it to
    its canonical directory, then deploy it.
  - Deploy: rewrite the manifest (NodePort injection, image normalization,
    domain substitution), load/tag/push every image, create the namespace
    and apply the manifest.

# Usage

	b, err := bundler.New(
		bundler.WithConfig(cfg),
		bundler.WithRuntime(rt),
		bundler.WithControlPlane(cp),
	)
	if err != nil {
		return err
	}

	res, err := b.Export(ctx, bundler.ExportRequest{
		Manifest:  text,
		Images:    []string{"nginx"},
		AppName:   "web",
		Namespace: "demo",
	})

# Failure Semantics

Every pipeline is fail-fast. Validation problems (missing fields, port
mappings, image names) are reported before any runtime or cluster call.
A failing runtime or cluster call aborts the pipeline; steps already done
are not rolled back. Pushed images and partially applied manifests stay in
place and are listed in the warning log so they can be cleaned up by hand.

# Concurrency

Each pipeline holds the lock of its (namespace, appname) for its whole run.
The transient manifest handed to the control plane is a per-deploy
temporary file.
*/
package bundler
