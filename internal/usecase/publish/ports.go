// Package publish delivers summarized articles to the outbound channel,
// falling back to the pending-publication queue when the channel is
// unavailable.
package publish

import (
	"context"
	"time"
)

// TransientError marks a send failure that is expected to clear on its
// own (timeouts, resets, 5xx from the channel). Transient failures feed
// the circuit breaker and route the item to the pending queue.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient send failure: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// OutboundChannel sends one publication to the external destination.
//
// Implementations classify failures: a *TransientError is retried
// through the queue, anything else is recorded to the dead-letter queue.
type OutboundChannel interface {
	Send(ctx context.Context, title, summary, url string) error
}

// FeedItem is one entry discovered on the source's live feed.
type FeedItem struct {
	Title       string
	URL         string
	Content     string
	PublishedAt time.Time
}

// FeedSource lists the most recent articles the source announces,
// newest first. Used by the live publish job to pick up today's items
// without waiting for a backfill run.
type FeedSource interface {
	Latest(ctx context.Context) ([]FeedItem, error)
}
