package summarizer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"archivefeed/internal/usecase/backfill"
)

var fallbackCounter = getOrCreateCounterVec(prometheus.CounterOpts{
	Name: "summarizer_fallbacks_total",
	Help: "Total number of times the secondary summarizer was used after a primary failure",
}, []string{"from", "to"})

// Fallback tries a primary provider first and falls back to a secondary
// when the primary errors out. Model hints are forwarded to the primary
// only; the secondary runs with its own default model since hints are
// provider-specific.
type Fallback struct {
	primary       backfill.SummarizerProvider
	secondary     backfill.SummarizerProvider
	primaryName   string
	secondaryName string
}

var _ backfill.SummarizerProvider = (*Fallback)(nil)

// NewFallback creates a Fallback over the two providers. The names are
// used in logs and metric labels.
func NewFallback(primary backfill.SummarizerProvider, primaryName string,
	secondary backfill.SummarizerProvider, secondaryName string) *Fallback {
	return &Fallback{
		primary:       primary,
		secondary:     secondary,
		primaryName:   primaryName,
		secondaryName: secondaryName,
	}
}

// Summarize runs the primary provider and, on failure, the secondary.
func (f *Fallback) Summarize(ctx context.Context, text, modelHint string) (string, error) {
	summary, primaryErr := f.primary.Summarize(ctx, text, modelHint)
	if primaryErr == nil {
		return summary, nil
	}

	if f.secondary == nil {
		return "", primaryErr
	}

	slog.Warn("primary summarizer failed, falling back",
		slog.String("primary", f.primaryName),
		slog.String("secondary", f.secondaryName),
		slog.String("error", primaryErr.Error()))
	fallbackCounter.WithLabelValues(f.primaryName, f.secondaryName).Inc()

	summary, secondaryErr := f.secondary.Summarize(ctx, text, "")
	if secondaryErr != nil {
		return "", fmt.Errorf("all summarizer providers failed: primary: %v, secondary: %w",
			primaryErr, secondaryErr)
	}
	return summary, nil
}
