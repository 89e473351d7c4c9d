package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	hhttp "archivefeed/internal/handler/http"
	hbackfill "archivefeed/internal/handler/http/backfill"
	"archivefeed/internal/handler/http/requestid"
	pgRepo "archivefeed/internal/infra/adapter/persistence/postgres"
	"archivefeed/internal/infra/db"
	"archivefeed/internal/infra/fetcher"
	"archivefeed/internal/infra/summarizer"
	"archivefeed/internal/observability/logging"
	"archivefeed/internal/observability/tracing"
	"archivefeed/internal/usecase/backfill"
)

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitTracer(ctx, "archivefeed-api", logger)
	if err != nil {
		logger.Error("failed to initialize tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown failed", slog.Any("error", err))
		}
	}()

	version := getVersion()
	ctrl := setupController(ctx, logger, database)
	handler := setupRoutes(logger, database, version, ctrl)

	runServer(logger, handler, ctrl, version)
}

// initLogger installs the process-wide JSON logger.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and applies the schema.
// The statements are idempotent, so every start runs them.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	var err error
	for i := 0; i < 10; i++ {
		if err = db.MigrateUp(database); err == nil {
			return database
		}
		logger.Info("migration failed, retrying in 3s",
			slog.Int("attempt", i+1), slog.Any("error", err))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete", slog.Any("error", err))
	os.Exit(1)
	return nil
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// setupController wires the backfill controller with its stores, the
// archive and body fetchers, and the summarization chain. The
// constructor also recovers persisted progress after a crash.
func setupController(ctx context.Context, logger *slog.Logger, database *sql.DB) *backfill.Controller {
	artRepo := pgRepo.NewArticleRepo(database)
	progRepo := pgRepo.NewProgressRepo(database)
	dlqRepo := pgRepo.NewDLQRepo(database)

	fetchConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load fetch configuration", slog.Any("error", err))
		os.Exit(1)
	}

	backfillConfig := backfill.DefaultConfig()
	backfillConfig.CollectParallelism = fetchConfig.Parallelism

	ctrl, err := backfill.NewController(
		ctx,
		backfillConfig,
		artRepo,
		progRepo,
		dlqRepo,
		fetcher.NewArchiveClient(fetchConfig),
		fetcher.NewBodyFetcher(fetchConfig),
		createSummarizer(logger),
		nil,
		logger,
	)
	if err != nil {
		logger.Error("failed to create backfill controller", slog.Any("error", err))
		os.Exit(1)
	}
	return ctrl
}

// createSummarizer builds the summarization chain from the
// SUMMARIZER_TYPE environment variable, same selection the worker
// process uses.
func createSummarizer(logger *slog.Logger) backfill.SummarizerProvider {
	summarizerType := os.Getenv("SUMMARIZER_TYPE")
	if summarizerType == "" {
		summarizerType = "claude"
	}

	switch summarizerType {
	case "claude":
		return summarizer.NewClaude(requireEnv(logger, "ANTHROPIC_API_KEY"))
	case "openai":
		config, err := summarizer.LoadOpenAIConfig()
		if err != nil {
			logger.Error("Failed to load OpenAI configuration", slog.Any("error", err))
			os.Exit(1)
		}
		return summarizer.NewOpenAI(requireEnv(logger, "OPENAI_API_KEY"), config)
	case "fallback":
		config, err := summarizer.LoadOpenAIConfig()
		if err != nil {
			logger.Error("Failed to load OpenAI configuration", slog.Any("error", err))
			os.Exit(1)
		}
		primary := summarizer.NewClaude(requireEnv(logger, "ANTHROPIC_API_KEY"))
		secondary := summarizer.NewOpenAI(requireEnv(logger, "OPENAI_API_KEY"), config)
		return summarizer.NewFallback(primary, "claude", secondary, "openai")
	case "noop":
		logger.Warn("Summarization disabled, storing truncated bodies", slog.String("type", "noop"))
		return summarizer.NewNoOp()
	default:
		logger.Error("Invalid SUMMARIZER_TYPE",
			slog.String("type", summarizerType),
			slog.String("expected", "claude, openai, fallback or noop"))
		os.Exit(1)
		return nil
	}
}

func requireEnv(logger *slog.Logger, key string) string {
	val := os.Getenv(key)
	if val == "" {
		logger.Error("required environment variable is not set", slog.String("key", key))
		os.Exit(1)
	}
	return val
}

// setupRoutes registers the admin endpoints and wraps them in the
// middleware chain.
func setupRoutes(logger *slog.Logger, database *sql.DB, version string, ctrl *backfill.Controller) http.Handler {
	artRepo := pgRepo.NewArticleRepo(database)
	dlqRepo := pgRepo.NewDLQRepo(database)

	mux := http.NewServeMux()
	hbackfill.Register(mux, ctrl, dlqRepo, artRepo, logger)

	mux.Handle("GET /health", &hhttp.HealthHandler{DB: database, Version: version, DLQ: dlqRepo})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("GET /live", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	return applyMiddleware(logger, mux)
}

// applyMiddleware wraps the handler with the admin middleware chain.
// Order, outermost first: request ID, rate limit, recovery, logging,
// tracing, body limit, metrics.
func applyMiddleware(logger *slog.Logger, handler http.Handler) http.Handler {
	rateLimiter := hhttp.NewRateLimiter(loadRateLimit(), time.Minute)

	chain := handler
	chain = hhttp.MetricsMiddleware(chain)
	chain = hhttp.LimitRequestBody(1 << 20)(chain)
	chain = tracing.Middleware(chain)
	chain = hhttp.Logging(logger)(chain)
	chain = hhttp.Recover(logger)(chain)
	chain = rateLimiter.Limit(chain)
	chain = requestid.Middleware(chain)
	return chain
}

// loadRateLimit reads the per-IP request budget per minute.
func loadRateLimit() int {
	const defaultLimit = 120
	val := os.Getenv("API_RATE_LIMIT")
	if val == "" {
		return defaultLimit
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit < 1 {
		return defaultLimit
	}
	return limit
}

// runServer starts the HTTP server and handles graceful shutdown.
// Shutdown stops the running backfill workers cooperatively before
// the process exits, so progress is persisted.
func runServer(logger *slog.Logger, handler http.Handler, ctrl *backfill.Controller, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := fmt.Sprintf(":%d", loadAPIPort())
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctrl.Close()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}

func loadAPIPort() int {
	const defaultPort = 8080
	val := os.Getenv("API_PORT")
	if val == "" {
		return defaultPort
	}
	port, err := strconv.Atoi(val)
	if err != nil || port < 1 || port > 65535 {
		return defaultPort
	}
	return port
}
