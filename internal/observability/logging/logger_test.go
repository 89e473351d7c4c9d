package logging

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"archivefeed/internal/handler/http/requestid"
)

func TestNewLogger_LevelFromEnv(t *testing.T) {
	tests := []struct {
		env     string
		enabled slog.Level
		muted   slog.Level
	}{
		{"", slog.LevelInfo, slog.LevelDebug},
		{"debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run("LOG_LEVEL="+tt.env, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.env)
			logger := NewLogger()

			if !logger.Enabled(context.Background(), tt.enabled) {
				t.Errorf("expected level %v to be enabled", tt.enabled)
			}
			if logger.Enabled(context.Background(), tt.muted) {
				t.Errorf("expected level %v to be muted", tt.muted)
			}
		})
	}
}

func TestNewLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	logger := NewLogger()

	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be muted for unknown level")
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be enabled for unknown level")
	}
}

func TestNewTextLogger(t *testing.T) {
	os.Unsetenv("LOG_LEVEL")
	logger := NewTextLogger()

	if logger == nil {
		t.Fatal("expected a logger")
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info enabled by default")
	}
}

func TestWithRequestID(t *testing.T) {
	base := NewLogger()

	ctx := requestid.WithRequestID(context.Background(), "req-42")
	withID := WithRequestID(ctx, base)
	if withID == base {
		t.Error("expected a derived logger when a request ID is present")
	}

	noID := WithRequestID(context.Background(), base)
	if noID != base {
		t.Error("expected the same logger when no request ID is present")
	}
}

func TestLoggerContext_RoundTrip(t *testing.T) {
	logger := NewLogger()
	ctx := WithLogger(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Error("expected stored logger back from context")
	}
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	if got := FromContext(context.Background()); got != slog.Default() {
		t.Error("expected default logger for bare context")
	}
}
