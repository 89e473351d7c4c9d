package postgres

import (
	"context"
	"fmt"

	"archivefeed/internal/domain/entity"
	"archivefeed/internal/infra/db"
	"archivefeed/internal/repository"
)

type PublicationRepo struct {
	db db.Querier
}

func NewPublicationRepo(q db.Querier) repository.PublicationQueue {
	return &PublicationRepo{db: q}
}

// Enqueue inserts a pending publication. The unique url constraint
// plus DO NOTHING makes a duplicate enqueue a silent no-op.
func (repo *PublicationRepo) Enqueue(ctx context.Context, p *entity.PendingPublication) error {
	const query = `
INSERT INTO pending_publications (url, title, published_at, summary_text)
VALUES ($1, $2, $3, $4)
ON CONFLICT (url) DO NOTHING`
	if _, err := repo.db.ExecContext(ctx, query,
		p.URL, p.Title, p.PublishedAt, p.SummaryText); err != nil {
		return fmt.Errorf("Enqueue: %w", err)
	}
	return nil
}

// DequeueBatch reads the oldest n rows without removing them. Rows
// stay visible until Delete, so a crash between read and delete leads
// to a re-send rather than a loss.
func (repo *PublicationRepo) DequeueBatch(ctx context.Context, n int) ([]*entity.PendingPublication, error) {
	const query = `
SELECT id, url, title, published_at, COALESCE(summary_text, ''),
       attempts, COALESCE(last_error, ''), created_at, updated_at
FROM pending_publications
ORDER BY created_at ASC
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("DequeueBatch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	pending := make([]*entity.PendingPublication, 0, n)
	for rows.Next() {
		var p entity.PendingPublication
		if err := rows.Scan(&p.ID, &p.URL, &p.Title, &p.PublishedAt, &p.SummaryText,
			&p.Attempts, &p.LastError, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("DequeueBatch: Scan: %w", err)
		}
		pending = append(pending, &p)
	}
	return pending, rows.Err()
}

func (repo *PublicationRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM pending_publications WHERE id = $1`
	if _, err := repo.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func (repo *PublicationRepo) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM pending_publications`
	var count int
	if err := repo.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return count, nil
}

func (repo *PublicationRepo) MarkFailed(ctx context.Context, id int64, lastError string) error {
	const query = `
UPDATE pending_publications
SET attempts = attempts + 1, last_error = $1, updated_at = now()
WHERE id = $2`
	if _, err := repo.db.ExecContext(ctx, query, lastError, id); err != nil {
		return fmt.Errorf("MarkFailed: %w", err)
	}
	return nil
}
