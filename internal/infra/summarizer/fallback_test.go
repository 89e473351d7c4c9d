package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubProvider struct {
	result    string
	err       error
	calls     int
	gotHint   string
	gotText   string
	failFirst bool
}

func (s *stubProvider) Summarize(_ context.Context, text, modelHint string) (string, error) {
	s.calls++
	s.gotText = text
	s.gotHint = modelHint
	return s.result, s.err
}

func TestFallback_PrimarySucceeds(t *testing.T) {
	primary := &stubProvider{result: "primary summary"}
	secondary := &stubProvider{result: "secondary summary"}
	f := NewFallback(primary, "claude", secondary, "openai")

	got, err := f.Summarize(context.Background(), "article text", "custom-model")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "primary summary" {
		t.Errorf("expected primary summary, got %q", got)
	}
	if secondary.calls != 0 {
		t.Error("secondary should not be called when primary succeeds")
	}
	if primary.gotHint != "custom-model" {
		t.Errorf("model hint not forwarded to primary: %q", primary.gotHint)
	}
}

func TestFallback_PrimaryFails(t *testing.T) {
	primary := &stubProvider{err: errors.New("rate limited")}
	secondary := &stubProvider{result: "secondary summary"}
	f := NewFallback(primary, "claude", secondary, "openai")

	got, err := f.Summarize(context.Background(), "article text", "custom-model")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "secondary summary" {
		t.Errorf("expected secondary summary, got %q", got)
	}

	// Hints are provider-specific and must not leak to the fallback.
	if secondary.gotHint != "" {
		t.Errorf("model hint leaked to secondary: %q", secondary.gotHint)
	}
}

func TestFallback_BothFail(t *testing.T) {
	primary := &stubProvider{err: errors.New("primary down")}
	secondary := &stubProvider{err: errors.New("secondary down")}
	f := NewFallback(primary, "claude", secondary, "openai")

	_, err := f.Summarize(context.Background(), "article text", "")
	if err == nil {
		t.Fatal("expected error when both providers fail")
	}
	if !strings.Contains(err.Error(), "primary down") || !strings.Contains(err.Error(), "secondary down") {
		t.Errorf("error should name both failures: %v", err)
	}
}

func TestFallback_NoSecondary(t *testing.T) {
	wantErr := errors.New("primary down")
	f := NewFallback(&stubProvider{err: wantErr}, "claude", nil, "")

	_, err := f.Summarize(context.Background(), "article text", "")
	if !errors.Is(err, wantErr) {
		t.Errorf("expected primary error passthrough, got %v", err)
	}
}

func TestNoOp_Summarize(t *testing.T) {
	n := NewNoOp()

	short, err := n.Summarize(context.Background(), "short text", "ignored-model")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if short != "short text" {
		t.Errorf("short text should pass through, got %q", short)
	}

	long, err := n.Summarize(context.Background(), strings.Repeat("a", 600), "")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(long) != 503 {
		t.Errorf("expected truncation to 500 chars plus ellipsis, got %d", len(long))
	}
}

func TestValidateCharacterLimit(t *testing.T) {
	if err := ValidateCharacterLimit(900); err != nil {
		t.Errorf("900 should be valid: %v", err)
	}
	if err := ValidateCharacterLimit(50); err == nil {
		t.Error("50 should be below minimum")
	}
	if err := ValidateCharacterLimit(6000); err == nil {
		t.Error("6000 should exceed maximum")
	}
}
