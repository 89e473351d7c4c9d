package metrics

import (
	"time"
)

// RecordArticlesCollected adds stored articles to the collection counter.
func RecordArticlesCollected(count int) {
	if count > 0 {
		ArticlesCollectedTotal.Add(float64(count))
	}
}

// RecordDayScanned records one calendar day the collector walked.
// skipped marks days the coverage probe answered without network work.
func RecordDayScanned(skipped bool) {
	outcome := "fetched"
	if skipped {
		outcome = "skipped"
	}
	CollectDaysScannedTotal.WithLabelValues(outcome).Inc()
}

// RecordCollectError counts one per-item collection failure.
func RecordCollectError(code string) {
	CollectErrorsTotal.WithLabelValues(code).Inc()
}

// RecordArticleSummarized records the outcome of one summarization.
func RecordArticleSummarized(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	ArticlesSummarizedTotal.WithLabelValues(status).Inc()
}

// RecordSummarizationDuration observes one summarization call duration.
func RecordSummarizationDuration(duration time.Duration) {
	SummarizationDuration.Observe(duration.Seconds())
}

// RecordPublication records one outbound send outcome. Outcome is one
// of delivered, queued, blocked, failed.
func RecordPublication(outcome string) {
	PublicationsSentTotal.WithLabelValues(outcome).Inc()
}

// UpdateQueueDepth sets the pending publication gauge.
func UpdateQueueDepth(depth int) {
	PublicationQueueDepth.Set(float64(depth))
}

// UpdateDLQEntries sets the dead-letter queue gauge.
func UpdateDLQEntries(count int) {
	DLQEntriesTotal.Set(float64(count))
}

// UpdateCircuitState reports a breaker state change.
// state follows the breaker encoding: 0 closed, 1 open, 2 half-open.
func UpdateCircuitState(circuit string, state int) {
	CircuitBreakerState.WithLabelValues(circuit).Set(float64(state))
}
