package publisher

import (
	"context"
	"log/slog"
)

// Noop is an outbound channel that logs and discards every send. Used
// when no webhook URL is configured.
type Noop struct{}

// NewNoop creates a new Noop channel.
func NewNoop() *Noop {
	return &Noop{}
}

// Send logs the publication and reports success.
func (n *Noop) Send(_ context.Context, title, _, url string) error {
	slog.Debug("noop publisher: discarding publication",
		slog.String("title", title),
		slog.String("url", url))
	return nil
}
