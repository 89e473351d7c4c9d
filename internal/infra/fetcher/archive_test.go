package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const listingPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"></head><body>
<table border="0" align="center" cellspacing="0" width="100%"><tr><td>site chrome</td></tr></table>
<table border="0" align="center" cellspacing="0" width="100%"><tr><td>
  <span class="topic_caption"><a href="/ru/article/view/100/">First article</a></span>
</td></tr></table>
<table border="0" align="center" cellspacing="0" width="100%"><tr><td>
  <span class="topic_caption"><a href="/ru/article/view/101/?utm_source=feed">Second article</a></span>
</td></tr></table>
<span class="menu_1">Страница 1 из 3</span>
</body></html>`

func newTestArchiveClient(serverURL string) *ArchiveClient {
	cfg := DefaultConfig()
	cfg.ArchiveBaseURL = serverURL + "/archive/search/_/"
	cfg.SiteBaseURL = serverURL
	cfg.Timeout = 5 * time.Second
	cfg.DenyPrivateIPs = false // httptest listens on loopback
	return NewArchiveClient(cfg)
}

func TestArchiveClient_ListArticlesForDay(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, listingPage)
	}))
	defer server.Close()

	client := newTestArchiveClient(server.URL)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	listing, err := client.ListArticlesForDay(context.Background(), day, 1)
	if err != nil {
		t.Fatalf("ListArticlesForDay: %v", err)
	}

	if listing.TotalPages != 3 {
		t.Errorf("expected TotalPages=3, got %d", listing.TotalPages)
	}
	if len(listing.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(listing.Items))
	}
	if listing.Items[0].Title != "First article" {
		t.Errorf("unexpected first title: %q", listing.Items[0].Title)
	}

	// Links come back absolute and canonicalized.
	if listing.Items[1].URL != "https://"+server.Listener.Addr().String()+"/ru/article/view/101" {
		t.Errorf("unexpected canonical link: %q", listing.Items[1].URL)
	}

	// The day is pinned as both range bounds in dd.mm.yyyy form.
	if !strings.Contains(gotPath, "date_st=15.01.2024") || !strings.Contains(gotPath, "date_en=15.01.2024") {
		t.Errorf("search URL missing day bounds: %s", gotPath)
	}
	if !strings.Contains(gotPath, "page=1/") {
		t.Errorf("search URL missing page segment: %s", gotPath)
	}
}

func TestArchiveClient_ListArticlesForDay_NoPaginationMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body>
<table border="0" align="center" cellspacing="0" width="100%"><tr><td>chrome</td></tr></table>
</body></html>`)
	}))
	defer server.Close()

	client := newTestArchiveClient(server.URL)

	listing, err := client.ListArticlesForDay(context.Background(), time.Now(), 1)
	if err != nil {
		t.Fatalf("ListArticlesForDay: %v", err)
	}
	if listing.TotalPages != 1 {
		t.Errorf("expected TotalPages default 1, got %d", listing.TotalPages)
	}
	if len(listing.Items) != 0 {
		t.Errorf("expected no items, got %d", len(listing.Items))
	}
}

func TestArchiveClient_ListArticlesForDay_ClientErrorNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestArchiveClient(server.URL)

	_, err := client.ListArticlesForDay(context.Background(), time.Now(), 1)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if calls != 1 {
		t.Errorf("4xx response should not be retried, got %d calls", calls)
	}
}
