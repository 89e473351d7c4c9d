package db

import (
	"database/sql"
)

// MigrateUp creates the pipeline schema. Statements are idempotent so
// the worker can run them at every start.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id              SERIAL PRIMARY KEY,
    url             TEXT NOT NULL,
    canonical_link  TEXT NOT NULL UNIQUE,
    title           TEXT NOT NULL,
    published_at    TIMESTAMPTZ,
    content         TEXT,
    content_hash    TEXT,
    summary_text    TEXT,
    backfill_status VARCHAR(16),
    created_at      TIMESTAMPTZ DEFAULT now(),
    updated_at      TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	// Singleton row: the CHECK keeps every writer on id=1.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS backfill_progress (
    id                  INTEGER PRIMARY KEY CHECK (id = 1),
    collect_running     BOOLEAN NOT NULL DEFAULT FALSE,
    collect_until       TIMESTAMPTZ,
    collect_scan_page   INTEGER NOT NULL DEFAULT 0,
    collect_goal_pages  INTEGER NOT NULL DEFAULT 0,
    collect_processed   INTEGER NOT NULL DEFAULT 0,
    collect_last_ts     TIMESTAMPTZ,
    sum_running         BOOLEAN NOT NULL DEFAULT FALSE,
    sum_until           TIMESTAMPTZ,
    sum_processed       INTEGER NOT NULL DEFAULT 0,
    sum_goal_total      INTEGER NOT NULL DEFAULT 0,
    sum_model           TEXT NOT NULL DEFAULT '',
    sum_last_article_id BIGINT NOT NULL DEFAULT 0,
    updated_at          TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS pending_publications (
    id           SERIAL PRIMARY KEY,
    url          TEXT NOT NULL UNIQUE,
    title        TEXT NOT NULL,
    published_at TIMESTAMPTZ,
    summary_text TEXT,
    attempts     INTEGER NOT NULL DEFAULT 0,
    last_error   TEXT,
    created_at   TIMESTAMPTZ DEFAULT now(),
    updated_at   TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS dlq (
    id            SERIAL PRIMARY KEY,
    entity_type   VARCHAR(32) NOT NULL,
    entity_ref    VARCHAR(2048) NOT NULL,
    error_code    VARCHAR(255),
    error_payload TEXT,
    attempts      INTEGER NOT NULL DEFAULT 1,
    first_seen_at TIMESTAMPTZ DEFAULT now(),
    last_seen_at  TIMESTAMPTZ DEFAULT now(),
    UNIQUE (entity_type, entity_ref)
)`); err != nil {
		return err
	}

	indexes := []string{
		// Day-coverage probe and newest-first summarization candidates.
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
		// Summarization goal counting over unsummarized rows.
		`CREATE INDEX IF NOT EXISTS idx_articles_no_summary ON articles(published_at DESC)
WHERE summary_text IS NULL OR TRIM(summary_text) = ''`,
		// Duplicate-content reporting.
		`CREATE INDEX IF NOT EXISTS idx_articles_content_hash ON articles(content_hash)
WHERE content_hash IS NOT NULL`,
		// Oldest-first queue drain.
		`CREATE INDEX IF NOT EXISTS idx_pending_publications_created_at ON pending_publications(created_at ASC)`,
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
