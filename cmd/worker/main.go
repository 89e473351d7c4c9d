package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	"archivefeed/internal/handler/http/respond"
	pgRepo "archivefeed/internal/infra/adapter/persistence/postgres"
	"archivefeed/internal/infra/db"
	"archivefeed/internal/infra/fetcher"
	"archivefeed/internal/infra/publisher"
	"archivefeed/internal/infra/summarizer"
	workerPkg "archivefeed/internal/infra/worker"
	"archivefeed/internal/observability/logging"
	"archivefeed/internal/observability/metrics"
	"archivefeed/internal/observability/tracing"
	"archivefeed/internal/repository"
	"archivefeed/internal/resilience/circuitbreaker"
	"archivefeed/internal/usecase/backfill"
	"archivefeed/internal/usecase/publish"
)

func waitForMigrations(logger *slog.Logger, db *sql.DB) {
	const probe = "SELECT 1 FROM articles LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := db.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracer(ctx, "archivefeed-worker", logger)
	if err != nil {
		logger.Error("failed to initialize tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown failed", slog.Any("error", err))
		}
	}()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("publish_cron_schedule", workerConfig.PublishCronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("flush_interval", workerConfig.FlushInterval),
		slog.Duration("job_timeout", workerConfig.JobTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	svc := setupPublishService(logger, database)

	startMetricsServer(ctx, logger)

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	startCronWorker(ctx, logger, svc, workerConfig, workerMetrics, healthServer)
}

// initLogger installs the process-wide JSON logger.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and waits for migrations to complete.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	return database
}

// publishDeps bundles the service with the stores the periodic jobs
// read for the queue depth and dead-letter gauges.
type publishDeps struct {
	service *publish.Service
	breaker *circuitbreaker.WindowBreaker
	queue   repository.PublicationQueue
	dlq     repository.DLQRepository
}

// setupPublishService wires the outbound publication pipeline: the
// live feed reader, the summarizer chain, the webhook channel behind
// its circuit breaker, and the pending-publication queue.
func setupPublishService(logger *slog.Logger, database *sql.DB) publishDeps {
	artRepo := pgRepo.NewArticleRepo(database)
	queueRepo := pgRepo.NewPublicationRepo(database)
	dlqRepo := pgRepo.NewDLQRepo(database)

	fetchConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load fetch configuration", slog.Any("error", err))
		os.Exit(1)
	}

	bodies := fetcher.NewBodyFetcher(fetchConfig)
	feed := fetcher.NewLiveFeedClient(createHTTPClient(), os.Getenv("FEED_URL"), fetchConfig.UserAgent)
	provider := createSummarizer(logger)
	channel := createOutboundChannel(logger)
	breaker := circuitbreaker.NewWindowBreaker(circuitbreaker.OutboundChannelConfig())

	svc := publish.NewService(
		publish.DefaultConfig(),
		breaker,
		channel,
		queueRepo,
		artRepo,
		dlqRepo,
		feed,
		bodies,
		provider,
		logger,
	)

	return publishDeps{service: svc, breaker: breaker, queue: queueRepo, dlq: dlqRepo}
}

// createSummarizer builds the summarization chain from the
// SUMMARIZER_TYPE environment variable. "claude" and "openai" select a
// single provider, "fallback" runs Claude first with OpenAI as the
// backup. An unset type defaults to claude.
func createSummarizer(logger *slog.Logger) backfill.SummarizerProvider {
	summarizerType := os.Getenv("SUMMARIZER_TYPE")
	if summarizerType == "" {
		summarizerType = "claude"
	}

	switch summarizerType {
	case "claude":
		logger.Info("Using Claude API for summarization", slog.String("type", "claude"))
		return summarizer.NewClaude(requireEnv(logger, "ANTHROPIC_API_KEY"))
	case "openai":
		config, err := summarizer.LoadOpenAIConfig()
		if err != nil {
			logger.Error("Failed to load OpenAI configuration", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Using OpenAI API for summarization", slog.String("type", "openai"))
		return summarizer.NewOpenAI(requireEnv(logger, "OPENAI_API_KEY"), config)
	case "fallback":
		config, err := summarizer.LoadOpenAIConfig()
		if err != nil {
			logger.Error("Failed to load OpenAI configuration", slog.Any("error", err))
			os.Exit(1)
		}
		primary := summarizer.NewClaude(requireEnv(logger, "ANTHROPIC_API_KEY"))
		secondary := summarizer.NewOpenAI(requireEnv(logger, "OPENAI_API_KEY"), config)
		logger.Info("Using Claude with OpenAI fallback for summarization", slog.String("type", "fallback"))
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

// createHTTPClient creates an HTTP client with timeouts and connection pooling.
// TLS 1.2+ is enforced.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
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

// createOutboundChannel builds the webhook channel, or a no-op sink
// when no webhook URL is configured.
func createOutboundChannel(logger *slog.Logger) publish.OutboundChannel {
	config := publisher.LoadWebhookConfig()
	if !config.Enabled {
		logger.Warn("outbound publishing disabled, sends are dropped")
		return publisher.NewNoop()
	}
	logger.Info("outbound webhook channel initialized",
		slog.Float64("requests_per_second", config.RequestsPerSecond),
		slog.Duration("timeout", config.Timeout))
	return publisher.NewWebhookChannel(config)
}

// startCronWorker schedules the live publish job, runs the queue flush
// loop, and blocks until the shutdown signal.
func startCronWorker(ctx context.Context, logger *slog.Logger, deps publishDeps, cfg *workerPkg.WorkerConfig, workerMetrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.PublishCronSchedule, func() {
		runPublishJob(logger, deps, cfg, workerMetrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.PublishCronSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.Duration("flush_interval", cfg.FlushInterval))

	ticker := time.NewTicker(cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			cronCtx := c.Stop()
			<-cronCtx.Done()
			return
		case <-ticker.C:
			runFlushJob(logger, deps, cfg, workerMetrics)
		}
	}
}

// runPublishJob executes one pass over the live feed with timeout and
// error handling.
func runPublishJob(logger *slog.Logger, deps publishDeps, cfg *workerPkg.WorkerConfig, workerMetrics *workerPkg.WorkerMetrics) {
	const job = "publish_latest"
	startTime := time.Now()
	workerMetrics.RecordJobRun(job, "started")
	logger.Info("live publish started")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.JobTimeout)
	defer cancel()

	published, err := deps.service.PublishLatest(ctx)
	workerMetrics.RecordJobDuration(job, time.Since(startTime).Seconds())
	if err != nil {
		logger.Error("live publish failed", slog.String("error", respond.SanitizeError(err)))
		workerMetrics.RecordJobRun(job, "failure")
		return
	}

	workerMetrics.RecordJobRun(job, "success")
	workerMetrics.RecordLastSuccess(job)
	updateGauges(ctx, deps)

	logger.Info("live publish completed",
		slog.Int("published", published),
		slog.Duration("duration", time.Since(startTime)))
}

// runFlushJob drains the pending-publication queue once.
func runFlushJob(logger *slog.Logger, deps publishDeps, cfg *workerPkg.WorkerConfig, workerMetrics *workerPkg.WorkerMetrics) {
	const job = "flush_pending"
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.JobTimeout)
	defer cancel()

	delivered, err := deps.service.FlushPending(ctx)
	workerMetrics.RecordJobDuration(job, time.Since(startTime).Seconds())
	if err != nil {
		logger.Error("queue flush failed", slog.String("error", respond.SanitizeError(err)))
		workerMetrics.RecordJobRun(job, "failure")
		return
	}

	workerMetrics.RecordJobRun(job, "success")
	workerMetrics.RecordLastSuccess(job)
	updateGauges(ctx, deps)

	if delivered > 0 {
		logger.Info("queue flush completed",
			slog.Int("delivered", delivered),
			slog.Duration("duration", time.Since(startTime)))
	}
}

// updateGauges refreshes the queue depth, dead-letter size and circuit
// state gauges after a job run. Read failures only cost a stale gauge.
func updateGauges(ctx context.Context, deps publishDeps) {
	if depth, err := deps.queue.Count(ctx); err == nil {
		metrics.UpdateQueueDepth(depth)
	}
	if size, err := deps.dlq.Size(ctx); err == nil {
		metrics.UpdateDLQEntries(size)
	}
	metrics.UpdateCircuitState("outbound-channel", int(deps.breaker.State()))
}
