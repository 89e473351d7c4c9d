// Package observability groups the logging, metrics, and tracing
// infrastructure shared by the API and worker processes.
//
// Subpackages:
//   - logging: slog setup with request-scoped loggers
//   - metrics: Prometheus collectors for the backfill pipeline
//   - tracing: OpenTelemetry setup with OTLP export
//
// Example:
//
//	logger := logging.NewLogger()
//	slog.SetDefault(logger)
//
//	shutdown, err := tracing.InitTracer(ctx, "archivefeed-api", logger)
//	if err != nil {
//	    logger.Error("tracing disabled", slog.Any("error", err))
//	}
//	defer shutdown(ctx)
package observability
