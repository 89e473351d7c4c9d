package entity

import "time"

// DLQEntityType identifies what kind of unit a dead-letter record
// refers to.
type DLQEntityType string

const (
	DLQEntityArticle     DLQEntityType = "article"
	DLQEntityPublication DLQEntityType = "publication"
)

// DLQEntry records a persistently failing unit of work for operator
// inspection. Entries are keyed by (EntityType, EntityRef); repeated
// failures bump Attempts and LastSeenAt. The DLQ is never consumed
// for automatic retry.
type DLQEntry struct {
	ID           int64
	EntityType   DLQEntityType
	EntityRef    string
	ErrorCode    string
	ErrorPayload string
	Attempts     int
	FirstSeenAt  time.Time
	LastSeenAt   time.Time
}
