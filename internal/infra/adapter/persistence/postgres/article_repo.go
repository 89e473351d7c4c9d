// Package postgres implements the repository interfaces on PostgreSQL.
package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"archivefeed/internal/domain/entity"
	"archivefeed/internal/infra/db"
	"archivefeed/internal/pkg/urlcanon"
	"archivefeed/internal/repository"
)

type ArticleRepo struct {
	db db.Querier
}

func NewArticleRepo(q db.Querier) repository.ArticleRepository {
	return &ArticleRepo{db: q}
}

// UpsertRaw writes the article keyed by its canonical link. The
// canonical link and content hash are derived here when the caller
// left them empty, so every write path shares the same identity rules.
func (repo *ArticleRepo) UpsertRaw(ctx context.Context, article *entity.Article) (int64, error) {
	canonical := article.CanonicalLink
	if canonical == "" {
		canonical = urlcanon.Canonicalize(article.URL)
	}
	contentHash := article.ContentHash
	if contentHash == "" && article.Content != "" {
		sum := sha256.Sum256([]byte(article.Content))
		contentHash = hex.EncodeToString(sum[:])
	}

	const query = `
INSERT INTO articles (url, canonical_link, title, published_at, content, content_hash, backfill_status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (canonical_link) DO UPDATE
SET url = EXCLUDED.url,
    title = EXCLUDED.title,
    published_at = EXCLUDED.published_at,
    content = EXCLUDED.content,
    content_hash = EXCLUDED.content_hash,
    backfill_status = COALESCE(EXCLUDED.backfill_status, articles.backfill_status),
    updated_at = now()
RETURNING id`

	var id int64
	var hash interface{}
	if contentHash != "" {
		hash = contentHash
	}
	// A caller that did not set a status must not erase one already
	// recorded, hence NULL plus the COALESCE above.
	var status interface{}
	if article.BackfillStatus != entity.BackfillPending {
		status = string(article.BackfillStatus)
	}
	err := repo.db.QueryRowContext(ctx, query,
		article.URL, canonical, article.Title, article.PublishedAt, article.Content, hash, status).
		Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("UpsertRaw: %w", err)
	}
	return id, nil
}

// InsertIfAbsent writes the article only when no row carries its
// canonical link yet. The conflict clause touches nothing but
// updated_at, so a body the collector stored earlier survives a later
// delivery of the same article.
func (repo *ArticleRepo) InsertIfAbsent(ctx context.Context, article *entity.Article) (int64, error) {
	canonical := article.CanonicalLink
	if canonical == "" {
		canonical = urlcanon.Canonicalize(article.URL)
	}

	const query = `
INSERT INTO articles (url, canonical_link, title, published_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (canonical_link) DO UPDATE
SET updated_at = now()
RETURNING id`

	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		article.URL, canonical, article.Title, article.PublishedAt).
		Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("InsertIfAbsent: %w", err)
	}
	return id, nil
}

func (repo *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	const query = `
SELECT id, url, canonical_link, title, published_at,
       COALESCE(content, ''), COALESCE(content_hash, ''),
       COALESCE(summary_text, ''), COALESCE(backfill_status, ''),
       created_at, updated_at
FROM articles
WHERE id = $1
LIMIT 1`
	var a entity.Article
	err := repo.db.QueryRowContext(ctx, query, id).
		Scan(&a.ID, &a.URL, &a.CanonicalLink, &a.Title, &a.PublishedAt,
			&a.Content, &a.ContentHash, &a.SummaryText, &a.BackfillStatus,
			&a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &a, nil
}

// CountForDay counts articles published on the given UTC calendar day.
func (repo *ArticleRepo) CountForDay(ctx context.Context, dayUTC time.Time) (int, error) {
	const query = `
SELECT COUNT(*) FROM articles
WHERE published_at >= $1 AND published_at < $2`
	start := dayUTC.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	var count int
	if err := repo.db.QueryRowContext(ctx, query, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountForDay: %w", err)
	}
	return count, nil
}

func (repo *ArticleRepo) ListUnsummarized(ctx context.Context, until time.Time, limit int) ([]*entity.Article, error) {
	const query = `
SELECT id, url, canonical_link, title, published_at, COALESCE(content, '')
FROM articles
WHERE published_at >= $1
  AND (summary_text IS NULL OR TRIM(summary_text) = '')
  AND (backfill_status IS NULL OR backfill_status <> 'failed')
ORDER BY published_at DESC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, until, limit)
	if err != nil {
		return nil, fmt.Errorf("ListUnsummarized: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, limit)
	for rows.Next() {
		var a entity.Article
		if err := rows.Scan(&a.ID, &a.URL, &a.CanonicalLink, &a.Title, &a.PublishedAt, &a.Content); err != nil {
			return nil, fmt.Errorf("ListUnsummarized: Scan: %w", err)
		}
		articles = append(articles, &a)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) CountUnsummarized(ctx context.Context, until time.Time) (int, error) {
	const query = `
SELECT COUNT(*) FROM articles
WHERE published_at >= $1
  AND (summary_text IS NULL OR TRIM(summary_text) = '')
  AND (backfill_status IS NULL OR backfill_status <> 'failed')`
	var count int
	if err := repo.db.QueryRowContext(ctx, query, until).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountUnsummarized: %w", err)
	}
	return count, nil
}

func (repo *ArticleRepo) SetSummary(ctx context.Context, id int64, summary string) error {
	const query = `
UPDATE articles SET summary_text = $1, updated_at = now() WHERE id = $2`
	if _, err := repo.db.ExecContext(ctx, query, summary, id); err != nil {
		return fmt.Errorf("SetSummary: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) SetBackfillStatus(ctx context.Context, id int64, status entity.BackfillStatus) error {
	const query = `
UPDATE articles SET backfill_status = $1, updated_at = now() WHERE id = $2`
	if _, err := repo.db.ExecContext(ctx, query, string(status), id); err != nil {
		return fmt.Errorf("SetBackfillStatus: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) ListSummarizedForDay(ctx context.Context, dayUTC time.Time) ([]*entity.Article, error) {
	const query = `
SELECT id, url, canonical_link, title, published_at, COALESCE(summary_text, '')
FROM articles
WHERE published_at >= $1 AND published_at < $2
  AND summary_text IS NOT NULL AND TRIM(summary_text) <> ''
ORDER BY published_at ASC`
	start := dayUTC.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	rows, err := repo.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("ListSummarizedForDay: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, 16)
	for rows.Next() {
		var a entity.Article
		if err := rows.Scan(&a.ID, &a.URL, &a.CanonicalLink, &a.Title, &a.PublishedAt, &a.SummaryText); err != nil {
			return nil, fmt.Errorf("ListSummarizedForDay: Scan: %w", err)
		}
		articles = append(articles, &a)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) ContentHashGroups(ctx context.Context, minCount int) ([]repository.HashGroup, error) {
	const query = `
SELECT content_hash, COUNT(*) AS cnt
FROM articles
WHERE content_hash IS NOT NULL AND TRIM(content_hash) <> ''
GROUP BY content_hash
HAVING COUNT(*) >= $1
ORDER BY cnt DESC`
	rows, err := repo.db.QueryContext(ctx, query, minCount)
	if err != nil {
		return nil, fmt.Errorf("ContentHashGroups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var groups []repository.HashGroup
	for rows.Next() {
		var g repository.HashGroup
		if err := rows.Scan(&g.ContentHash, &g.Count); err != nil {
			return nil, fmt.Errorf("ContentHashGroups: Scan: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (repo *ArticleRepo) ListByContentHash(ctx context.Context, hash string) ([]*entity.Article, error) {
	const query = `
SELECT id, url, canonical_link, title, published_at
FROM articles
WHERE content_hash = $1
ORDER BY published_at DESC`
	rows, err := repo.db.QueryContext(ctx, query, hash)
	if err != nil {
		return nil, fmt.Errorf("ListByContentHash: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var articles []*entity.Article
	for rows.Next() {
		var a entity.Article
		if err := rows.Scan(&a.ID, &a.URL, &a.CanonicalLink, &a.Title, &a.PublishedAt); err != nil {
			return nil, fmt.Errorf("ListByContentHash: Scan: %w", err)
		}
		articles = append(articles, &a)
	}
	return articles, rows.Err()
}
