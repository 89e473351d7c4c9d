package postgres

import (
	"context"
	"fmt"

	"archivefeed/internal/domain/entity"
	"archivefeed/internal/infra/db"
	"archivefeed/internal/repository"
)

type DLQRepo struct {
	db db.Querier
}

func NewDLQRepo(q db.Querier) repository.DLQRepository {
	return &DLQRepo{db: q}
}

// Record upserts a dead-letter entry keyed by (entity_type,
// entity_ref). Repeats bump the attempt counter and refresh the error.
func (repo *DLQRepo) Record(ctx context.Context, entityType entity.DLQEntityType, entityRef, errorCode, errorPayload string) error {
	const query = `
INSERT INTO dlq (entity_type, entity_ref, error_code, error_payload)
VALUES ($1, $2, $3, $4)
ON CONFLICT (entity_type, entity_ref) DO UPDATE
SET attempts = dlq.attempts + 1,
    error_code = EXCLUDED.error_code,
    error_payload = EXCLUDED.error_payload,
    last_seen_at = now()`
	if _, err := repo.db.ExecContext(ctx, query,
		string(entityType), entityRef, errorCode, errorPayload); err != nil {
		return fmt.Errorf("Record: %w", err)
	}
	return nil
}

func (repo *DLQRepo) Size(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM dlq`
	var count int
	if err := repo.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("Size: %w", err)
	}
	return count, nil
}

func (repo *DLQRepo) List(ctx context.Context, entityType entity.DLQEntityType, limit int) ([]*entity.DLQEntry, error) {
	const base = `
SELECT id, entity_type, entity_ref, COALESCE(error_code, ''),
       COALESCE(error_payload, ''), attempts, first_seen_at, last_seen_at
FROM dlq`

	var (
		rowsQuery string
		args      []interface{}
	)
	if entityType == "" {
		rowsQuery = base + `
ORDER BY last_seen_at DESC
LIMIT $1`
		args = []interface{}{limit}
	} else {
		rowsQuery = base + `
WHERE entity_type = $1
ORDER BY last_seen_at DESC
LIMIT $2`
		args = []interface{}{string(entityType), limit}
	}

	rows, err := repo.db.QueryContext(ctx, rowsQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*entity.DLQEntry, 0, limit)
	for rows.Next() {
		var e entity.DLQEntry
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityRef, &e.ErrorCode,
			&e.ErrorPayload, &e.Attempts, &e.FirstSeenAt, &e.LastSeenAt); err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (repo *DLQRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM dlq WHERE id = $1`
	if _, err := repo.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
