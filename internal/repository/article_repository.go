// Package repository defines persistence interfaces consumed by the
// use-case layer. Implementations live under internal/infra/adapter.
// Each operation is assumed atomic on its own; no cross-operation
// transactionality is promised.
package repository

import (
	"context"
	"time"

	"archivefeed/internal/domain/entity"
)

// HashGroup is a count of articles sharing one content hash, used for
// duplicate-content reporting.
type HashGroup struct {
	ContentHash string
	Count       int
}

// ArticleRepository manages permanent article rows. The canonical link
// is the unique identity: UpsertRaw never creates a second row for a
// URL spelling that canonicalizes to an existing link.
type ArticleRepository interface {
	// UpsertRaw inserts the article or, when a row with the same
	// canonical link exists, updates its url, title, published_at,
	// content, content_hash and updated_at. Returns the row id.
	UpsertRaw(ctx context.Context, article *entity.Article) (int64, error)

	// InsertIfAbsent inserts the article unless a row with the same
	// canonical link exists; an existing row is left untouched. Used
	// by the delivery path, which carries no body and must not erase
	// content the collector already stored. Returns the row id either
	// way.
	InsertIfAbsent(ctx context.Context, article *entity.Article) (int64, error)

	// Get returns the article by id, or nil when absent.
	Get(ctx context.Context, id int64) (*entity.Article, error)

	// CountForDay returns the number of articles whose published_at
	// falls on the given UTC calendar day. Used as the Collector's
	// day-coverage probe.
	CountForDay(ctx context.Context, dayUTC time.Time) (int, error)

	// ListUnsummarized returns up to limit articles published at or
	// after until that have no summary yet, newest first. Articles
	// whose backfill status is failed are excluded; they wait on the
	// dead-letter queue instead of re-entering every batch.
	ListUnsummarized(ctx context.Context, until time.Time, limit int) ([]*entity.Article, error)

	// CountUnsummarized returns the summarization goal: articles in
	// range without a summary, excluding failed ones.
	CountUnsummarized(ctx context.Context, until time.Time) (int, error)

	// SetSummary stores the summary text for an article.
	SetSummary(ctx context.Context, id int64, summary string) error

	// SetBackfillStatus records the backfill outcome for an article.
	SetBackfillStatus(ctx context.Context, id int64, status entity.BackfillStatus) error

	// ListSummarizedForDay returns summarized articles published on
	// the given UTC day, oldest first. Feeds the live publish job.
	ListSummarizedForDay(ctx context.Context, dayUTC time.Time) ([]*entity.Article, error)

	// ContentHashGroups returns hashes shared by at least minCount
	// articles, largest group first.
	ContentHashGroups(ctx context.Context, minCount int) ([]HashGroup, error)

	// ListByContentHash returns all articles carrying the given hash.
	ListByContentHash(ctx context.Context, hash string) ([]*entity.Article, error)
}
