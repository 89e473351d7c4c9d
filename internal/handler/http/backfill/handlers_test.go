package backfill

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"archivefeed/internal/domain/entity"
	"archivefeed/internal/repository"
	backfillUC "archivefeed/internal/usecase/backfill"
)

type fakeArticleRepo struct {
	groups  []repository.HashGroup
	byHash  []*entity.Article
	unsumm  int
	listErr error
}

func (f *fakeArticleRepo) UpsertRaw(_ context.Context, _ *entity.Article) (int64, error) {
	return 1, nil
}

func (f *fakeArticleRepo) InsertIfAbsent(_ context.Context, _ *entity.Article) (int64, error) {
	return 1, nil
}

func (f *fakeArticleRepo) Get(_ context.Context, _ int64) (*entity.Article, error) {
	return nil, nil
}

func (f *fakeArticleRepo) CountForDay(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (f *fakeArticleRepo) ListUnsummarized(_ context.Context, _ time.Time, _ int) ([]*entity.Article, error) {
	return nil, nil
}

func (f *fakeArticleRepo) CountUnsummarized(_ context.Context, _ time.Time) (int, error) {
	return f.unsumm, nil
}

func (f *fakeArticleRepo) SetSummary(_ context.Context, _ int64, _ string) error { return nil }

func (f *fakeArticleRepo) SetBackfillStatus(_ context.Context, _ int64, _ entity.BackfillStatus) error {
	return nil
}

func (f *fakeArticleRepo) ListSummarizedForDay(_ context.Context, _ time.Time) ([]*entity.Article, error) {
	return nil, nil
}

func (f *fakeArticleRepo) ContentHashGroups(_ context.Context, _ int) ([]repository.HashGroup, error) {
	return f.groups, f.listErr
}

func (f *fakeArticleRepo) ListByContentHash(_ context.Context, _ string) ([]*entity.Article, error) {
	return f.byHash, f.listErr
}

type fakeProgressRepo struct {
	state *entity.BackfillProgress
}

func (f *fakeProgressRepo) Load(_ context.Context) (*entity.BackfillProgress, error) {
	if f.state == nil {
		f.state = &entity.BackfillProgress{}
	}
	return f.state, nil
}

func (f *fakeProgressRepo) Save(_ context.Context, p *entity.BackfillProgress) error {
	f.state = p
	return nil
}

type fakeDLQ struct {
	entries []*entity.DLQEntry
	deleted []int64
}

func (f *fakeDLQ) Record(_ context.Context, _ entity.DLQEntityType, _, _, _ string) error {
	return nil
}

func (f *fakeDLQ) Size(_ context.Context) (int, error) { return len(f.entries), nil }

func (f *fakeDLQ) List(_ context.Context, entityType entity.DLQEntityType, limit int) ([]*entity.DLQEntry, error) {
	out := make([]*entity.DLQEntry, 0, len(f.entries))
	for _, e := range f.entries {
		if entityType != "" && e.EntityType != entityType {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeDLQ) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakePages struct{}

func (fakePages) ListArticlesForDay(_ context.Context, _ time.Time, _ int) (*backfillUC.DayListing, error) {
	return &backfillUC.DayListing{TotalPages: 1}, nil
}

type fakeBodies struct{}

func (fakeBodies) FetchBody(_ context.Context, _ string) (string, error) { return "", nil }

type fakeProvider struct{}

func (fakeProvider) Summarize(_ context.Context, text, _ string) (string, error) {
	return text, nil
}

func newTestController(t *testing.T) *backfillUC.Controller {
	t.Helper()
	ctrl, err := backfillUC.NewController(
		context.Background(),
		backfillUC.DefaultConfig(),
		&fakeArticleRepo{},
		&fakeProgressRepo{},
		&fakeDLQ{},
		fakePages{},
		fakeBodies{},
		fakeProvider{},
		nil,
		slog.Default(),
	)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	t.Cleanup(ctrl.Close)
	return ctrl
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestStatusHandler(t *testing.T) {
	ctrl := newTestController(t)
	rec := httptest.NewRecorder()

	StatusHandler{Ctrl: ctrl}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/backfill/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["collect_running"] != false {
		t.Errorf("expected collect_running=false, got %v", body["collect_running"])
	}
	if body["sum_running"] != false {
		t.Errorf("expected sum_running=false, got %v", body["sum_running"])
	}
}

func TestStartCollectHandler(t *testing.T) {
	t.Run("MissingLowerBound", func(t *testing.T) {
		ctrl := newTestController(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/backfill/collect/start", strings.NewReader(`{}`))

		StartCollectHandler{Ctrl: ctrl, Logger: slog.Default()}.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("MalformedDate", func(t *testing.T) {
		ctrl := newTestController(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/backfill/collect/start",
			strings.NewReader(`{"lower_bound":"next tuesday"}`))

		StartCollectHandler{Ctrl: ctrl, Logger: slog.Default()}.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("FutureLowerBound", func(t *testing.T) {
		ctrl := newTestController(t)
		rec := httptest.NewRecorder()
		future := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
		req := httptest.NewRequest(http.MethodPost, "/backfill/collect/start",
			strings.NewReader(`{"lower_bound":"`+future+`"}`))

		StartCollectHandler{Ctrl: ctrl, Logger: slog.Default()}.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Accepted", func(t *testing.T) {
		ctrl := newTestController(t)
		rec := httptest.NewRecorder()
		today := time.Now().Format("2006-01-02")
		req := httptest.NewRequest(http.MethodPost, "/backfill/collect/start",
			strings.NewReader(`{"lower_bound":"`+today+`"}`))

		StartCollectHandler{Ctrl: ctrl, Logger: slog.Default()}.ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeJSON(t, rec)
		if body["collect_goal_pages"] != float64(1) {
			t.Errorf("expected goal of one day, got %v", body["collect_goal_pages"])
		}
	})
}

func TestStopCollectHandler(t *testing.T) {
	ctrl := newTestController(t)
	rec := httptest.NewRecorder()

	StopCollectHandler{Ctrl: ctrl}.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/backfill/collect/stop", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["collect_running"] != false {
		t.Errorf("expected collect_running=false, got %v", body["collect_running"])
	}
}

func TestStartSummarizeHandler(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		ctrl := newTestController(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/backfill/summarize/start",
			strings.NewReader(`{"lower_bound":"2024-01-01","model":"claude-3-5-haiku-latest"}`))

		StartSummarizeHandler{Ctrl: ctrl, Logger: slog.Default()}.ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("MissingLowerBound", func(t *testing.T) {
		ctrl := newTestController(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/backfill/summarize/start", strings.NewReader(`{}`))

		StartSummarizeHandler{Ctrl: ctrl, Logger: slog.Default()}.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestDLQListHandler(t *testing.T) {
	now := time.Now()
	dlq := &fakeDLQ{entries: []*entity.DLQEntry{
		{ID: 1, EntityType: entity.DLQEntityArticle, EntityRef: "https://example.org/a", ErrorCode: "fetch_failed", Attempts: 3, FirstSeenAt: now, LastSeenAt: now},
		{ID: 2, EntityType: entity.DLQEntityPublication, EntityRef: "42", ErrorCode: "webhook_rejected", Attempts: 1, FirstSeenAt: now, LastSeenAt: now},
	}}

	t.Run("ListsAll", func(t *testing.T) {
		rec := httptest.NewRecorder()
		DLQListHandler{Repo: dlq}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dlq", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeJSON(t, rec)
		if body["total"] != float64(2) {
			t.Errorf("expected total 2, got %v", body["total"])
		}
		entries := body["entries"].([]interface{})
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
	})

	t.Run("FiltersByType", func(t *testing.T) {
		rec := httptest.NewRecorder()
		DLQListHandler{Repo: dlq}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dlq?type=article", nil))

		body := decodeJSON(t, rec)
		entries := body["entries"].([]interface{})
		if len(entries) != 1 {
			t.Fatalf("expected 1 article entry, got %d", len(entries))
		}
		first := entries[0].(map[string]interface{})
		if first["entity_type"] != "article" {
			t.Errorf("expected entity_type=article, got %v", first["entity_type"])
		}
	})

	t.Run("RejectsUnknownType", func(t *testing.T) {
		rec := httptest.NewRecorder()
		DLQListHandler{Repo: dlq}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dlq?type=widget", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("RejectsBadLimit", func(t *testing.T) {
		for _, limit := range []string{"0", "-5", "9999", "many"} {
			rec := httptest.NewRecorder()
			DLQListHandler{Repo: dlq}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dlq?limit="+limit, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("limit %q: expected 400, got %d", limit, rec.Code)
			}
		}
	})
}

func TestDLQDeleteHandler(t *testing.T) {
	t.Run("Deletes", func(t *testing.T) {
		dlq := &fakeDLQ{}
		rec := httptest.NewRecorder()

		DLQDeleteHandler{Repo: dlq}.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/dlq/42", nil))

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if len(dlq.deleted) != 1 || dlq.deleted[0] != 42 {
			t.Errorf("expected delete of id 42, got %v", dlq.deleted)
		}
	})

	t.Run("RejectsBadID", func(t *testing.T) {
		dlq := &fakeDLQ{}
		rec := httptest.NewRecorder()

		DLQDeleteHandler{Repo: dlq}.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/dlq/forty-two", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if len(dlq.deleted) != 0 {
			t.Errorf("nothing should be deleted, got %v", dlq.deleted)
		}
	})
}

func TestDuplicatesHandler(t *testing.T) {
	repo := &fakeArticleRepo{
		groups: []repository.HashGroup{{ContentHash: "abc123", Count: 3}},
		byHash: []*entity.Article{
			{ID: 7, URL: "https://example.org/x?utm_source=feed", CanonicalLink: "https://example.org/x", Title: "Статья"},
		},
	}

	t.Run("ListsGroups", func(t *testing.T) {
		rec := httptest.NewRecorder()
		DuplicatesHandler{Repo: repo}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/duplicates", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var groups []map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&groups); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(groups) != 1 || groups[0]["content_hash"] != "abc123" {
			t.Errorf("unexpected groups %v", groups)
		}
	})

	t.Run("ListsArticlesForHash", func(t *testing.T) {
		rec := httptest.NewRecorder()
		DuplicatesHandler{Repo: repo}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/duplicates?hash=abc123", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var articles []map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&articles); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(articles) != 1 || articles[0]["canonical_link"] != "https://example.org/x" {
			t.Errorf("unexpected articles %v", articles)
		}
	})

	t.Run("RejectsBadMin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		DuplicatesHandler{Repo: repo}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/duplicates?min=1", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRegister_RoutesResolve(t *testing.T) {
	ctrl := newTestController(t)
	mux := http.NewServeMux()
	Register(mux, ctrl, &fakeDLQ{}, &fakeArticleRepo{}, slog.Default())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/backfill/status", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /backfill/status: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/dlq/7", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE /dlq/7: expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/backfill/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH /backfill/status: expected 405, got %d", rec.Code)
	}
}
