// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the pipeline metrics:
//   - Collection metrics (articles stored, days scanned, per-item errors)
//   - Summarization metrics (outcomes, durations)
//   - Delivery metrics (send outcomes, queue depth, breaker state, DLQ size)
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "archivefeed/internal/observability/metrics"
//
//	func afterFlush(delivered, remaining int) {
//	    metrics.RecordPublication("delivered")
//	    metrics.UpdateQueueDepth(remaining)
//	}
package metrics
