// Package metrics provides centralized Prometheus metrics for the
// archive pipeline: collection, summarization and outbound delivery.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collection metrics track the backward day-windowed crawl.
var (
	// ArticlesCollectedTotal counts articles stored by the collector.
	ArticlesCollectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "articles_collected_total",
			Help: "Total number of articles stored by the collect worker",
		},
	)

	// CollectDaysScannedTotal counts calendar days the collector walked,
	// split by whether the day needed network work.
	CollectDaysScannedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collect_days_scanned_total",
			Help: "Total calendar days scanned by the collect worker",
		},
		[]string{"outcome"}, // fetched, skipped
	)

	// CollectErrorsTotal counts per-item failures during collection.
	CollectErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collect_errors_total",
			Help: "Total per-item collection failures by error code",
		},
		[]string{"code"},
	)
)

// Summarization metrics track the summary backfill worker.
var (
	// ArticlesSummarizedTotal counts summarization outcomes.
	ArticlesSummarizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_summarized_total",
			Help: "Total number of articles summarized by status",
		},
		[]string{"status"},
	)

	// SummarizationDuration measures one summarization call.
	SummarizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summarization_duration_seconds",
			Help:    "Time taken to summarize an article",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)

// Delivery metrics track the outbound channel and its retry queue.
var (
	// PublicationsSentTotal counts send outcomes on the outbound channel.
	PublicationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publications_sent_total",
			Help: "Total outbound publication attempts by outcome",
		},
		[]string{"outcome"}, // delivered, queued, blocked, failed
	)

	// PublicationQueueDepth tracks pending publications awaiting flush.
	PublicationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "publication_queue_depth",
			Help: "Number of pending publications awaiting delivery",
		},
	)

	// DLQEntriesTotal tracks the dead-letter queue size.
	DLQEntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dlq_entries",
			Help: "Number of dead-letter entries awaiting operator review",
		},
	)

	// CircuitBreakerState reports breaker state per circuit
	// (0=closed, 1=open, 2=half-open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit"},
	)
)
