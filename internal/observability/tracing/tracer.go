package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the shared tracer all spans in this process come from.
var tracer = otel.Tracer("archivefeed")

// GetTracer returns the shared tracer for creating spans.
func GetTracer() trace.Tracer {
	return tracer
}
