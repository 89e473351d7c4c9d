package repository

import (
	"context"

	"archivefeed/internal/domain/entity"
)

// DLQRepository records persistently failing units of work for
// operator inspection. Entries are keyed by (entity type, entity ref);
// recording an existing key bumps its attempt counter. Nothing reads
// the DLQ for automatic retry.
type DLQRepository interface {
	// Record upserts a dead-letter entry for the failing unit.
	Record(ctx context.Context, entityType entity.DLQEntityType, entityRef, errorCode, errorPayload string) error

	// Size returns the total number of entries.
	Size(ctx context.Context) (int, error)

	// List returns up to limit entries, newest failures first,
	// optionally filtered by entity type (empty means all).
	List(ctx context.Context, entityType entity.DLQEntityType, limit int) ([]*entity.DLQEntry, error)

	// Delete removes an entry after an operator resolves it.
	Delete(ctx context.Context, id int64) error
}
