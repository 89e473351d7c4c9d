package repository

import (
	"context"

	"archivefeed/internal/domain/entity"
)

// ProgressRepository persists the singleton backfill progress row.
// The row is created on first Load and only ever updated afterwards.
type ProgressRepository interface {
	// Load returns the progress row, creating it with zero values when
	// it does not exist yet.
	Load(ctx context.Context) (*entity.BackfillProgress, error)

	// Save writes the full progress row. Persistence is best-effort
	// for callers: a failed save must not abort a running worker.
	Save(ctx context.Context, p *entity.BackfillProgress) error
}
