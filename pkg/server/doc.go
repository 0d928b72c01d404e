/*
Package server provides the HTTP server that fronts the bundle pipeline.

Routes are registered through WithHandler using method-qualified mux
patterns. Every registered route runs behind the same middleware chain,
outermost first:

  - instrument: Prometheus request count, latency and bytes (appbundle_http_*)
  - tagRequest: X-API-Version negotiation and X-Request-Id
  - recoverPanic
  - throttle: a shared token bucket (golang.org/x/time/rate)
  - logRequest: one line per request, annotated with appname and namespace

System endpoints bypass the chain:

	GET /health   liveness
	GET /ready    readiness, 503 until the listener is up
	GET /metrics  Prometheus exposition

Failures are written as ErrorResponse JSON. WriteErrorFromErr maps the
pkg/errors code of a structured error onto an HTTP status with
HTTPStatusFromCode, so validation failures become 400, missing bundles 404,
failed registry or cluster calls 502 and timeouts 504.

Usage:

	s := server.New(
		server.WithName("appbundled"),
		server.WithVersion(version),
		server.WithHandler(map[string]http.HandlerFunc{
			"POST /api/exportApp": h.HandleExport,
		}),
	)
	if err := s.Run(ctx); err != nil {
		return err
	}

When started under systemd with Type=notify, the server sends READY=1 once
the listener is running and STOPPING=1 on shutdown.
*/
package server
