// Package backfill implements the historical collection and summarization
// workers together with the controller that owns their shared progress state.
package backfill

import (
	"context"
	"time"

	"archivefeed/internal/domain/entity"
)

// PageItem is one article reference found on an archive listing page.
type PageItem struct {
	Title string
	URL   string
}

// DayListing is the result of one archive search page for a calendar day.
// TotalPages reports the pagination total the source claims for the day,
// so callers can keep paging until the last page.
type DayListing struct {
	Items      []PageItem
	TotalPages int
}

// PageFetcher lists the articles the source published on a calendar day.
// Implementations page through a date-filtered search interface.
type PageFetcher interface {
	ListArticlesForDay(ctx context.Context, day time.Time, page int) (*DayListing, error)
}

// BodyFetcher retrieves the readable text of a single article.
//
// Implementations must validate URLs before fetching and should classify
// failures with the sentinel errors in this package so callers can decide
// between retrying and skipping.
type BodyFetcher interface {
	FetchBody(ctx context.Context, url string) (string, error)
}

// SummarizerProvider produces a summary for article text. The model hint
// selects a provider-specific model; an empty hint means the provider
// default. A provider may retry or fall back internally, callers treat
// the call as a single best-effort attempt.
type SummarizerProvider interface {
	Summarize(ctx context.Context, text, modelHint string) (string, error)
}

// ProgressObserver receives progress snapshots after each unit of work.
// Notifications are fire-and-forget: implementations must not block for
// long, and any error they return is logged and ignored.
type ProgressObserver interface {
	Notify(ctx context.Context, snapshot *entity.ProgressSnapshot) error
}

// NopObserver ignores every notification. It is the default observer
// when no external progress sink is configured.
type NopObserver struct{}

func (NopObserver) Notify(context.Context, *entity.ProgressSnapshot) error { return nil }
