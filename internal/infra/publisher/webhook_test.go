package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"archivefeed/internal/usecase/publish"
)

func testConfig(url string) WebhookConfig {
	return WebhookConfig{
		Enabled:           true,
		WebhookURL:        url,
		Timeout:           5 * time.Second,
		RequestsPerSecond: 100, // tests should not wait on pacing
		Burst:             10,
	}
}

func TestWebhookChannel_Send_Success(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	ch := NewWebhookChannel(testConfig(server.URL))

	err := ch.Send(context.Background(), "Title", "Summary text", "https://example.com/a")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(got.Embeds))
	}
	if got.Embeds[0].Title != "Title" || got.Embeds[0].URL != "https://example.com/a" {
		t.Errorf("unexpected embed: %+v", got.Embeds[0])
	}
}

func TestWebhookChannel_Send_TruncatesLongFields(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := NewWebhookChannel(testConfig(server.URL))

	err := ch.Send(context.Background(),
		strings.Repeat("t", 300), strings.Repeat("s", 5000), "https://example.com/a")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(got.Embeds[0].Title) > maxTitleLength {
		t.Errorf("title not truncated: %d chars", len(got.Embeds[0].Title))
	}
	if len(got.Embeds[0].Description) > maxDescriptionLength {
		t.Errorf("description not truncated: %d chars", len(got.Embeds[0].Description))
	}
}

func TestWebhookChannel_Send_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	ch := NewWebhookChannel(cfg)
	// Shrink the retry backoff wait by canceling after the first pass.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := ch.Send(ctx, "Title", "Summary", "https://example.com/a")
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	var transient *publish.TransientError
	if !errors.As(err, &transient) {
		t.Errorf("expected TransientError, got %T: %v", err, err)
	}
}

func TestWebhookChannel_Send_ClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	ch := NewWebhookChannel(testConfig(server.URL))

	err := ch.Send(context.Background(), "Title", "Summary", "https://example.com/a")
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	var transient *publish.TransientError
	if errors.As(err, &transient) {
		t.Errorf("4xx must not be classified transient: %v", err)
	}
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Errorf("expected ClientError, got %T: %v", err, err)
	}
}

func TestExtractRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}

	// JSON body takes precedence.
	d := extractRetryAfter(resp, []byte(`{"message":"slow down","retry_after":2.5}`))
	if d != 2500*time.Millisecond {
		t.Errorf("expected 2.5s from body, got %v", d)
	}

	// Header fallback.
	resp.Header.Set("Retry-After", "7")
	d = extractRetryAfter(resp, nil)
	if d != 7*time.Second {
		t.Errorf("expected 7s from header, got %v", d)
	}

	// Default.
	resp.Header.Del("Retry-After")
	d = extractRetryAfter(resp, nil)
	if d != 5*time.Second {
		t.Errorf("expected 5s default, got %v", d)
	}
}

func TestIsRetryableError(t *testing.T) {
	if isRetryableError(&ClientError{StatusCode: 400}) {
		t.Error("client errors must not be retryable")
	}
	if !isRetryableError(&ServerError{StatusCode: 500}) {
		t.Error("server errors must be retryable")
	}
	if isRetryableError(&RateLimitError{RetryAfter: time.Second}) {
		t.Error("rate limit errors are handled separately")
	}
	if !isRetryableError(errors.New("connection reset")) {
		t.Error("network errors must be retryable")
	}
}
