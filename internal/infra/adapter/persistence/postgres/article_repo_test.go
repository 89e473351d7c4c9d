package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"archivefeed/internal/domain/entity"
)

func TestArticleRepo_UpsertRaw_DerivesIdentity(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewArticleRepo(db)
	published := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	// The raw URL spelling must be canonicalized before hitting the
	// unique canonical_link column.
	mock.ExpectQuery(`INSERT INTO articles`).
		WithArgs(
			"HTTP://Example.com:80/news/42/?utm_source=feed",
			"https://example.com/news/42",
			"Article title",
			published,
			"body text",
			sqlmock.AnyArg(), // derived sha256 hex
			"success",
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := repo.UpsertRaw(context.Background(), &entity.Article{
		URL:            "HTTP://Example.com:80/news/42/?utm_source=feed",
		Title:          "Article title",
		PublishedAt:    published,
		Content:        "body text",
		BackfillStatus: entity.BackfillSuccess,
	})
	if err != nil {
		t.Fatalf("UpsertRaw: %v", err)
	}
	if id != 7 {
		t.Errorf("expected id=7, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestArticleRepo_UpsertRaw_EmptyContentSkipsHash(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewArticleRepo(db)

	mock.ExpectQuery(`INSERT INTO articles`).
		WithArgs(
			"https://example.com/a",
			"https://example.com/a",
			"t",
			sqlmock.AnyArg(),
			"",
			nil,
			nil, // no status set, existing status must survive
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	_, err = repo.UpsertRaw(context.Background(), &entity.Article{
		URL:   "https://example.com/a",
		Title: "t",
	})
	if err != nil {
		t.Fatalf("UpsertRaw: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestArticleRepo_InsertIfAbsent_LeavesExistingRowUntouched(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewArticleRepo(db)
	published := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	// The conflict clause must not reach content or content_hash:
	// delivery writes carry no body and an existing row keeps its own.
	mock.ExpectQuery(`ON CONFLICT \(canonical_link\) DO UPDATE\s+SET updated_at = now\(\)`).
		WithArgs(
			"https://example.com/news/42",
			"https://example.com/news/42",
			"Article title",
			published,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := repo.InsertIfAbsent(context.Background(), &entity.Article{
		URL:         "https://example.com/news/42",
		Title:       "Article title",
		PublishedAt: published,
	})
	if err != nil {
		t.Fatalf("InsertIfAbsent: %v", err)
	}
	if id != 7 {
		t.Errorf("expected id=7, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestArticleRepo_CountForDay_UsesUTCDayBounds(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewArticleRepo(db)

	day := time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM articles`).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountForDay(context.Background(), day)
	if err != nil {
		t.Fatalf("CountForDay: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count=3, got %d", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestArticleRepo_ListUnsummarized(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewArticleRepo(db)
	until := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "url", "canonical_link", "title", "published_at", "content"}).
		AddRow(int64(2), "https://example.com/b", "https://example.com/b", "B", until.Add(48*time.Hour), "").
		AddRow(int64(1), "https://example.com/a", "https://example.com/a", "A", until.Add(24*time.Hour), "body")
	// Failed rows must be filtered out at the query level.
	mock.ExpectQuery(`backfill_status IS NULL OR backfill_status <> 'failed'`).
		WithArgs(until, 5).
		WillReturnRows(rows)

	got, err := repo.ListUnsummarized(context.Background(), until, 5)
	if err != nil {
		t.Fatalf("ListUnsummarized: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(got))
	}
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("unexpected order: %d, %d", got[0].ID, got[1].ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestArticleRepo_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewArticleRepo(db)

	mock.ExpectQuery(`FROM articles`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	article, err := repo.Get(context.Background(), 99)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if article != nil {
		t.Errorf("expected nil article for missing row, got %+v", article)
	}
}

func TestArticleRepo_ContentHashGroups(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := NewArticleRepo(db)

	rows := sqlmock.NewRows([]string{"content_hash", "cnt"}).
		AddRow("abc123", 3).
		AddRow("def456", 2)
	mock.ExpectQuery(`GROUP BY content_hash`).
		WithArgs(2).
		WillReturnRows(rows)

	groups, err := repo.ContentHashGroups(context.Background(), 2)
	if err != nil {
		t.Fatalf("ContentHashGroups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].ContentHash != "abc123" || groups[0].Count != 3 {
		t.Errorf("unexpected first group: %+v", groups[0])
	}
}
