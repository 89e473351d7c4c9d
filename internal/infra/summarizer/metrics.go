package summarizer

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SummaryMetricsRecorder records summary quality metrics. Providers
// take the interface so tests can substitute a spy recorder.
type SummaryMetricsRecorder interface {
	// RecordLength records a generated summary's length in runes.
	RecordLength(length int)

	// RecordLimitExceeded counts summaries over the character limit.
	RecordLimitExceeded()

	// RecordCompliance records whether a summary stayed within the
	// configured character limit.
	RecordCompliance(withinLimit bool)

	// RecordDuration records how long one summarization call took.
	RecordDuration(duration time.Duration)
}

// PrometheusSummaryMetrics is the production SummaryMetricsRecorder.
type PrometheusSummaryMetrics struct {
	lengthHistogram   prometheus.Histogram
	exceededCounter   prometheus.Counter
	complianceGauge   prometheus.Gauge
	durationHistogram prometheus.Histogram
}

var (
	summaryMetricsInstance *PrometheusSummaryMetrics
	summaryMetricsOnce     sync.Once
)

// register returns the existing collector when the metric name is
// already taken, so repeated construction in tests stays safe.
func register[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(C)
		}
		panic(err)
	}
	return c
}

// getOrCreateCounterVec registers a new CounterVec or returns the
// already-registered collector with the same name.
func getOrCreateCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	return register(prometheus.NewCounterVec(opts, labelNames))
}

// NewPrometheusSummaryMetrics returns the process-wide summary
// metrics recorder, creating and registering it on first call.
func NewPrometheusSummaryMetrics() *PrometheusSummaryMetrics {
	summaryMetricsOnce.Do(func() {
		summaryMetricsInstance = &PrometheusSummaryMetrics{
			lengthHistogram: register(prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "article_summary_length_characters",
				Help:    "Distribution of summary lengths in characters (Unicode runes)",
				Buckets: []float64{100, 300, 500, 700, 900, 1100, 1500, 2000},
			})),
			exceededCounter: register(prometheus.NewCounter(prometheus.CounterOpts{
				Name: "article_summary_limit_exceeded_total",
				Help: "Total number of summaries exceeding the configured character limit",
			})),
			complianceGauge: register(prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "article_summary_limit_compliance_ratio",
				Help: "Ratio of summaries within character limit (0.0-1.0)",
			})),
			durationHistogram: register(prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "article_summarization_duration_seconds",
				Help:    "Time taken to generate a summary via AI API",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			})),
		}
	})
	return summaryMetricsInstance
}

func (p *PrometheusSummaryMetrics) RecordLength(length int) {
	p.lengthHistogram.Observe(float64(length))
}

func (p *PrometheusSummaryMetrics) RecordLimitExceeded() {
	p.exceededCounter.Inc()
}

func (p *PrometheusSummaryMetrics) RecordCompliance(withinLimit bool) {
	if withinLimit {
		p.complianceGauge.Set(1.0)
	} else {
		p.complianceGauge.Set(0.0)
	}
}

func (p *PrometheusSummaryMetrics) RecordDuration(duration time.Duration) {
	p.durationHistogram.Observe(duration.Seconds())
}
