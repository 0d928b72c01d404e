// Package logging configures the process-wide slog logger for the appbundle
// CLI and server.
//
// Logs are JSON lines on stderr, each tagged with the module and version of
// the binary that wrote them, so CLI and appbundled output can be merged and
// filtered by one collector. Pipeline logs carry the bundle they act on:
//
//	{"time":"...","level":"INFO","msg":"exporting application","module":"appbundled",
//	 "version":"v0.3.0","namespace":"prod","appname":"shop","images":2,"nodeports":1}
//
// The level comes from LOG_LEVEL (debug, info, warn or error, default info),
// or from --log-level on the CLI. At debug the source file and line are
// added:
//
//	logging.SetDefaultStructuredLogger("appbundled", version)
//	slog.Debug("image relocated", "source", src, "destination", dst)
//
// NewLogLogger adapts the default handler for APIs that only accept a
// *log.Logger, such as http.Server.ErrorLog.
package logging
