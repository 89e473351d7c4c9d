// Package logging configures structured logging on log/slog.
//
// Processes create one JSON logger at startup and install it as the
// slog default; request handlers derive per-request loggers with the
// request ID attached.
//
//	logger := logging.NewLogger()
//	slog.SetDefault(logger)
//
//	func handle(ctx context.Context) {
//	    log := logging.WithRequestID(ctx, slog.Default())
//	    log.Info("collect started", slog.String("day", day))
//	}
package logging
