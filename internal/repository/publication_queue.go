package repository

import (
	"context"

	"archivefeed/internal/domain/entity"
)

// PublicationQueue is the persisted at-least-once delivery queue for
// publications that could not be sent. Rows stay visible until an
// explicit Delete, so a crash between a read and its delete causes a
// re-send; the downstream article upsert is idempotent by canonical
// link, which makes re-sends safe.
type PublicationQueue interface {
	// Enqueue inserts a pending publication keyed by its unique URL.
	// Enqueueing a URL that is already queued is a silent no-op.
	Enqueue(ctx context.Context, p *entity.PendingPublication) error

	// DequeueBatch returns up to n of the oldest rows by creation time
	// without removing them.
	DequeueBatch(ctx context.Context, n int) ([]*entity.PendingPublication, error)

	// Delete removes exactly the row with the given id after a
	// successful send.
	Delete(ctx context.Context, id int64) error

	// MarkFailed increments the attempt counter and records the last
	// error, leaving the row for the next flush cycle.
	MarkFailed(ctx context.Context, id int64, lastError string) error

	// Count returns the number of rows currently queued.
	Count(ctx context.Context) (int, error)
}
