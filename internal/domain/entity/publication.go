package entity

import "time"

// PendingPublication is an (article, summary) pair waiting for a
// successful delivery to the outbound channel. Rows are keyed by a
// unique URL; a duplicate enqueue is a no-op. A row is deleted only
// after the send succeeds, so delivery is at-least-once.
type PendingPublication struct {
	ID          int64
	URL         string
	Title       string
	PublishedAt time.Time
	SummaryText string
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
