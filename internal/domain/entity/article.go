// Package entity defines the core domain entities for the archive
// pipeline: articles, backfill progress, pending publications, and
// dead-letter records.
package entity

import "time"

// BackfillStatus marks the outcome of processing an article during a
// backfill pass. An empty value means the article is still pending.
type BackfillStatus string

const (
	BackfillPending BackfillStatus = ""
	BackfillSuccess BackfillStatus = "success"
	BackfillFailed  BackfillStatus = "failed"
	BackfillSkipped BackfillStatus = "skipped"
)

// Article represents a collected article. CanonicalLink is the dedup
// identity: two URLs that canonicalize to the same string are the same
// article, and upserts by canonical link update the existing row.
type Article struct {
	ID             int64
	URL            string
	CanonicalLink  string
	Title          string
	PublishedAt    time.Time
	Content        string
	ContentHash    string
	SummaryText    string
	BackfillStatus BackfillStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSummary reports whether the article carries a non-blank summary.
func (a *Article) HasSummary() bool {
	for _, r := range a.SummaryText {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}
