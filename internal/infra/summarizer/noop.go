package summarizer

import (
	"context"

	"archivefeed/internal/utils/text"
)

// NoOp is a summarizer that returns the original text without calling
// any API. Useful for testing and development.
type NoOp struct{}

// NewNoOp creates a new NoOp summarizer.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Summarize returns the original text truncated to the first 500
// characters. The model hint is ignored.
func (n *NoOp) Summarize(_ context.Context, input, _ string) (string, error) {
	return text.TruncateRunes(input, 500), nil
}
