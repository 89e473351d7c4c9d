package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"archivefeed/internal/usecase/backfill"
)

const articlePage = `<!DOCTYPE html>
<html><head><title>Test article</title></head><body>
<article>
<h1>Test article</h1>
<p>` + longParagraph + `</p>
<p>` + longParagraph + `</p>
</body></html>`

// Readability rejects pages with too little text, so tests need real
// paragraph volume.
const longParagraph = "The quick brown fox jumps over the lazy dog and keeps running " +
	"through the long winter night, past the frozen river and the quiet village, " +
	"until the morning light finally reaches the edge of the forest where it rests."

func newTestBodyFetcher() *BodyFetcher {
	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.DenyPrivateIPs = false // httptest listens on loopback
	return NewBodyFetcher(cfg)
}

func TestBodyFetcher_FetchBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articlePage)
	}))
	defer server.Close()

	f := newTestBodyFetcher()

	body, err := f.FetchBody(context.Background(), server.URL+"/article")
	if err != nil {
		t.Fatalf("FetchBody: %v", err)
	}
	if !strings.Contains(body, "quick brown fox") {
		t.Errorf("extracted body missing article text: %q", body)
	}
}

func TestBodyFetcher_FetchBody_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := newTestBodyFetcher()

	_, err := f.FetchBody(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestBodyFetcher_FetchBody_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, strings.Repeat("x", 4096))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.DenyPrivateIPs = false
	cfg.MaxBodySize = 1024
	f := NewBodyFetcher(cfg)

	_, err := f.FetchBody(context.Background(), server.URL)
	if !errors.Is(err, backfill.ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestBodyFetcher_FetchBody_InvalidScheme(t *testing.T) {
	f := newTestBodyFetcher()

	_, err := f.FetchBody(context.Background(), "ftp://example.com/article")
	if !errors.Is(err, backfill.ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL, got %v", err)
	}
}
