package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"archivefeed/internal/domain/entity"
	"archivefeed/internal/infra/db"
	"archivefeed/internal/repository"
)

type ProgressRepo struct {
	db db.Querier
}

func NewProgressRepo(q db.Querier) repository.ProgressRepository {
	return &ProgressRepo{db: q}
}

// Load reads the singleton progress row, inserting a zero-valued row
// the first time it is asked for.
func (repo *ProgressRepo) Load(ctx context.Context) (*entity.BackfillProgress, error) {
	const query = `
SELECT collect_running, collect_until, collect_scan_page, collect_goal_pages,
       collect_processed, collect_last_ts,
       sum_running, sum_until, sum_processed, sum_goal_total, sum_model,
       sum_last_article_id, updated_at
FROM backfill_progress
WHERE id = 1`

	var p entity.BackfillProgress
	var collectUntil, sumUntil, collectLastTS sql.NullTime
	err := repo.db.QueryRowContext(ctx, query).
		Scan(&p.CollectRunning, &collectUntil, &p.CollectScanPage, &p.CollectGoalPages,
			&p.CollectProcessed, &collectLastTS,
			&p.SumRunning, &sumUntil, &p.SumProcessed, &p.SumGoalTotal, &p.SumModel,
			&p.SumLastArticleID, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return repo.create(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	if collectUntil.Valid {
		p.CollectUntil = collectUntil.Time
	}
	if sumUntil.Valid {
		p.SumUntil = sumUntil.Time
	}
	if collectLastTS.Valid {
		ts := collectLastTS.Time
		p.CollectLastTS = &ts
	}
	return &p, nil
}

func (repo *ProgressRepo) create(ctx context.Context) (*entity.BackfillProgress, error) {
	const query = `
INSERT INTO backfill_progress (id) VALUES (1)
ON CONFLICT (id) DO NOTHING`
	if _, err := repo.db.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("Load: create singleton: %w", err)
	}
	return &entity.BackfillProgress{}, nil
}

// Save writes the full progress row. Running flags are always cleared
// together with counters in one statement so observers never see a
// half-written snapshot.
func (repo *ProgressRepo) Save(ctx context.Context, p *entity.BackfillProgress) error {
	const query = `
UPDATE backfill_progress
SET collect_running = $1,
    collect_until = $2,
    collect_scan_page = $3,
    collect_goal_pages = $4,
    collect_processed = $5,
    collect_last_ts = $6,
    sum_running = $7,
    sum_until = $8,
    sum_processed = $9,
    sum_goal_total = $10,
    sum_model = $11,
    sum_last_article_id = $12,
    updated_at = now()
WHERE id = 1`

	var collectUntil, sumUntil, collectLastTS interface{}
	if !p.CollectUntil.IsZero() {
		collectUntil = p.CollectUntil
	}
	if !p.SumUntil.IsZero() {
		sumUntil = p.SumUntil
	}
	if p.CollectLastTS != nil {
		collectLastTS = *p.CollectLastTS
	}

	if _, err := repo.db.ExecContext(ctx, query,
		p.CollectRunning, collectUntil, p.CollectScanPage, p.CollectGoalPages,
		p.CollectProcessed, collectLastTS,
		p.SumRunning, sumUntil, p.SumProcessed, p.SumGoalTotal, p.SumModel,
		p.SumLastArticleID); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}
