// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are created through the shared tracer and exported over
// OTLP/HTTP when a collector endpoint is configured. Without an
// endpoint the global no-op provider stays in place.
//
// Example usage:
//
//	import "archivefeed/internal/observability/tracing"
//
//	func main() {
//	    shutdown, err := tracing.InitTracer(ctx, "archivefeed-api", logger)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer shutdown(context.Background())
//	}
//
//	func processRequest(ctx context.Context) {
//	    ctx, span := tracing.GetTracer().Start(ctx, "process-request")
//	    defer span.End()
//	    // ... process request ...
//	}
package tracing
