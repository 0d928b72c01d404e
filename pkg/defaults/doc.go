// Package defaults holds the timeouts and transfer sizes shared by the
// bundle pipelines, the HTTP handlers and the server.
//
// Budgets nest: a single container runtime or control plane call is
// bounded by RuntimeCallTimeout or ControlPlaneTimeout, the handler making
// it by its own handler timeout, and every handler by ServerWriteTimeout.
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.RuntimeCallTimeout)
//	defer cancel()
//	err := rt.Push(ctx, dst)
package defaults
