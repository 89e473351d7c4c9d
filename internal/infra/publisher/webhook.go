package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"archivefeed/internal/usecase/publish"
)

// WebhookConfig contains configuration for the outbound webhook channel.
type WebhookConfig struct {
	// Enabled indicates whether outbound publishing is enabled.
	Enabled bool

	// WebhookURL is the destination webhook URL (includes the token).
	WebhookURL string

	// Timeout is the HTTP request timeout per send.
	Timeout time.Duration

	// RequestsPerSecond and Burst pace sends through a token bucket.
	RequestsPerSecond float64
	Burst             int
}

// LoadWebhookConfig reads the webhook settings from the environment.
//
// Environment variables:
//   - PUBLISH_WEBHOOK_URL: destination URL; empty disables publishing
//   - PUBLISH_TIMEOUT: duration string (default: 10s)
//   - PUBLISH_RATE_PER_SECOND: float (default: 0.5)
//   - PUBLISH_BURST: integer (default: 3)
func LoadWebhookConfig() WebhookConfig {
	cfg := WebhookConfig{
		WebhookURL:        os.Getenv("PUBLISH_WEBHOOK_URL"),
		Timeout:           10 * time.Second,
		RequestsPerSecond: 0.5,
		Burst:             3,
	}
	cfg.Enabled = cfg.WebhookURL != ""

	if val := os.Getenv("PUBLISH_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			cfg.Timeout = parsed
		}
	}
	if val := os.Getenv("PUBLISH_RATE_PER_SECOND"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed > 0 {
			cfg.RequestsPerSecond = parsed
		}
	}
	if val := os.Getenv("PUBLISH_BURST"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			cfg.Burst = parsed
		}
	}
	return cfg
}

// WebhookChannel sends publications to a webhook endpoint as embed
// payloads. Transient failures (429, 5xx, network) come back as
// *publish.TransientError so the caller can queue the item; 4xx
// responses are permanent.
type WebhookChannel struct {
	config      WebhookConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

var _ publish.OutboundChannel = (*WebhookChannel)(nil)

// NewWebhookChannel creates a WebhookChannel with the given configuration.
func NewWebhookChannel(config WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(config.RequestsPerSecond, config.Burst),
	}
}

// webhookPayload is the JSON body posted to the webhook endpoint.
type webhookPayload struct {
	Embeds []webhookEmbed `json:"embeds"`
}

type webhookEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

// errorResponse is the error body some webhook services return.
type errorResponse struct {
	Message    string  `json:"message"`
	Code       int     `json:"code"`
	RetryAfter float64 `json:"retry_after"` // seconds
}

const (
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	truncationSuffix     = "..."

	embedColor = 5793266
)

// Send delivers one publication. It paces through the rate limiter,
// retries once on retryable failures, and classifies the final error.
func (w *WebhookChannel) Send(ctx context.Context, title, summary, url string) error {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	slog.Info("Starting outbound publish",
		slog.String("request_id", requestID),
		slog.String("url", url))

	if err := w.rateLimiter.Allow(ctx); err != nil {
		return &publish.TransientError{Err: fmt.Errorf("rate limiter wait: %w", err)}
	}

	err := w.sendWithRetry(ctx, title, summary, url)
	if err == nil {
		return nil
	}

	// Permanent rejections surface as-is; everything else is transient.
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return err
	}
	return &publish.TransientError{Err: err}
}

func (w *WebhookChannel) sendWithRetry(ctx context.Context, title, summary, url string) error {
	const (
		maxAttempts = 2
		baseDelay   = 5 * time.Second
	)

	requestID, _ := ctx.Value(requestIDKey).(string)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := w.sendRequest(ctx, title, summary, url)
		if err == nil {
			slog.Info("Outbound publish successful",
				slog.String("request_id", requestID),
				slog.String("url", url),
				slog.Int("attempt", attempt))
			return nil
		}

		lastErr = err

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn("Webhook rate limit hit, backing off",
				slog.String("request_id", requestID),
				slog.Duration("retry_after", rateLimitErr.RetryAfter),
				slog.Int("attempt", attempt))
			select {
			case <-time.After(rateLimitErr.RetryAfter):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during rate limit backoff: %w", ctx.Err())
			}
		}

		if !isRetryableError(err) {
			slog.Error("Outbound publish failed with non-retryable error",
				slog.String("request_id", requestID),
				slog.String("url", url),
				slog.Any("error", err),
				slog.Int("attempt", attempt))
			return err
		}

		if attempt < maxAttempts {
			delay := baseDelay * time.Duration(attempt)
			slog.Warn("Webhook request failed, retrying",
				slog.String("request_id", requestID),
				slog.String("url", url),
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
			}
		}
	}

	return fmt.Errorf("outbound publish failed after %d attempts: %w", maxAttempts, lastErr)
}

func (w *WebhookChannel) sendRequest(ctx context.Context, title, summary, url string) error {
	payload := webhookPayload{
		Embeds: []webhookEmbed{{
			Title:       truncate(title, maxTitleLength, truncationSuffix),
			Description: truncate(summary, maxDescriptionLength, truncationSuffix),
			URL:         url,
			Color:       embedColor,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return &ClientError{Message: fmt.Sprintf("marshal webhook payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return &ClientError{Message: fmt.Sprintf("create http request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Message:    "webhook rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, body),
		}
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("webhook client error: %s", string(body)),
		}
	}

	if resp.StatusCode >= 500 {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("webhook server error: %s", string(body)),
		}
	}

	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// extractRetryAfter reads the retry delay from the JSON error body,
// then the Retry-After header, then falls back to 5s.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.RetryAfter > 0 {
		return time.Duration(errResp.RetryAfter * float64(time.Second))
	}

	if retryAfterHeader := resp.Header.Get("Retry-After"); retryAfterHeader != "" {
		if seconds, err := strconv.Atoi(retryAfterHeader); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return 5 * time.Second
}
