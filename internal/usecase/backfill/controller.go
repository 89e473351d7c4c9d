package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"archivefeed/internal/domain/entity"
	"archivefeed/internal/repository"
)

// Config tunes the two worker loops.
type Config struct {
	// CollectParallelism is the width of the per-day body fetch pool.
	CollectParallelism int

	// CollectPacing is the pause between calendar days.
	CollectPacing time.Duration

	// SumBatchSize is how many unsummarized articles one batch pulls.
	SumBatchSize int

	// SumItemDelay is the pause between articles within a batch.
	SumItemDelay time.Duration

	// SumBatchDelay is the pause between batches.
	SumBatchDelay time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		CollectParallelism: 5,
		CollectPacing:      2 * time.Second,
		SumBatchSize:       5,
		SumItemDelay:       100 * time.Millisecond,
		SumBatchDelay:      500 * time.Millisecond,
	}
}

// Validate checks the configuration bounds.
func (c *Config) Validate() error {
	if c.CollectParallelism < 1 || c.CollectParallelism > 50 {
		return fmt.Errorf("collect parallelism must be between 1 and 50, got %d", c.CollectParallelism)
	}
	if c.SumBatchSize < 1 || c.SumBatchSize > 100 {
		return fmt.Errorf("summarize batch size must be between 1 and 100, got %d", c.SumBatchSize)
	}
	return nil
}

// Controller owns the persisted backfill progress singleton and the
// lifecycle of the collect and summarize workers. It is the only
// mutator of the shared progress state; workers report back through
// its methods, and status observers read consistent snapshots.
//
// Both workers are singletons: starting one that is already running is
// a no-op. Stop requests are cooperative and take effect at day or
// batch boundaries.
type Controller struct {
	cfg      Config
	articles repository.ArticleRepository
	progress repository.ProgressRepository
	dlq      repository.DLQRepository
	pages    PageFetcher
	bodies   BodyFetcher
	provider SummarizerProvider
	observer ProgressObserver
	logger   *slog.Logger

	mu            sync.Mutex
	state         *entity.BackfillProgress
	collectCancel context.CancelFunc
	sumCancel     context.CancelFunc
	wg            sync.WaitGroup

	// now is replaceable for tests.
	now func() time.Time
}

// NewController loads the progress singleton and returns a ready
// controller. Running flags left behind by a crashed process are
// cleared: a restart never resumes a worker on its own.
func NewController(
	ctx context.Context,
	cfg Config,
	articles repository.ArticleRepository,
	progress repository.ProgressRepository,
	dlq repository.DLQRepository,
	pages PageFetcher,
	bodies BodyFetcher,
	provider SummarizerProvider,
	observer ProgressObserver,
	logger *slog.Logger,
) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewController: %w", err)
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	state, err := progress.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewController: load progress: %w", err)
	}
	if state.CollectRunning || state.SumRunning {
		logger.Warn("clearing stale running flags from previous process",
			slog.Bool("collect_running", state.CollectRunning),
			slog.Bool("sum_running", state.SumRunning))
		state.CollectRunning = false
		state.SumRunning = false
		if err := progress.Save(ctx, state); err != nil {
			logger.Warn("failed to persist cleared running flags", slog.String("error", err.Error()))
		}
	}

	return &Controller{
		cfg:      cfg,
		articles: articles,
		progress: progress,
		dlq:      dlq,
		pages:    pages,
		bodies:   bodies,
		provider: provider,
		observer: observer,
		logger:   logger,
		state:    state,
		now:      time.Now,
	}, nil
}

// StartCollect launches the backward day-windowed collection worker
// down to lowerBound. A no-op when the worker is already running.
//
// When the persisted progress carries the same lower bound and an
// unfinished scan index, the run resumes from that index instead of
// day zero; a different lower bound always starts a fresh scan.
func (c *Controller) StartCollect(lowerBound time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.CollectRunning {
		c.logger.Info("collect already running, ignoring start request")
		return nil
	}

	today := startOfDay(c.now())
	lower := startOfDay(lowerBound)
	if lower.After(today) {
		return fmt.Errorf("StartCollect: lower bound %s is in the future", lower.Format("2006-01-02"))
	}
	totalDays := 0
	for d := lower; !d.After(today); d = d.AddDate(0, 0, 1) {
		totalDays++
	}

	resumeFrom := 0
	if c.state.CollectUntil.Equal(lower) &&
		c.state.CollectScanPage > 0 && c.state.CollectScanPage < totalDays {
		resumeFrom = c.state.CollectScanPage
	}

	c.state.CollectRunning = true
	c.state.CollectUntil = lower
	c.state.CollectScanPage = resumeFrom
	c.state.CollectGoalPages = totalDays
	if resumeFrom == 0 {
		c.state.CollectProcessed = 0
		c.state.CollectLastTS = nil
	}
	c.persistLocked(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	c.collectCancel = cancel
	c.wg.Add(1)
	go c.runCollect(ctx)

	c.logger.Info("collect started",
		slog.String("lower_bound", lower.Format("2006-01-02")),
		slog.Int("goal_days", totalDays),
		slog.Int("resume_from", resumeFrom))
	return nil
}

// StopCollect requests a cooperative stop of the collection worker.
// In-flight per-item fetches run to completion; the loop exits at the
// next day boundary.
func (c *Controller) StopCollect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.collectCancel != nil {
		c.collectCancel()
		c.collectCancel = nil
	}
	if c.state.CollectRunning {
		c.state.CollectRunning = false
		c.persistLocked(context.Background())
		c.logger.Info("collect stop requested")
	}
}

// StartSummarize launches the summary backfill worker for articles
// published at or after lowerBound. The goal is computed once at
// start; model selects the provider model, empty means the provider
// default. A no-op when the worker is already running.
func (c *Controller) StartSummarize(ctx context.Context, lowerBound time.Time, model string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.SumRunning {
		c.logger.Info("summarize already running, ignoring start request")
		return nil
	}

	goal, err := c.articles.CountUnsummarized(ctx, lowerBound)
	if err != nil {
		c.logger.Warn("failed to compute summarization goal", slog.String("error", err.Error()))
		goal = 0
	}

	c.state.SumRunning = true
	c.state.SumUntil = lowerBound
	c.state.SumModel = model
	c.state.SumGoalTotal = goal
	c.state.SumProcessed = 0
	c.persistLocked(context.Background())

	runCtx, cancel := context.WithCancel(context.Background())
	c.sumCancel = cancel
	c.wg.Add(1)
	go c.runSummarize(runCtx)

	c.logger.Info("summarize started",
		slog.String("lower_bound", lowerBound.Format("2006-01-02")),
		slog.String("model", model),
		slog.Int("goal_total", goal))
	return nil
}

// StopSummarize requests a cooperative stop of the summary worker.
func (c *Controller) StopSummarize() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sumCancel != nil {
		c.sumCancel()
		c.sumCancel = nil
	}
	if c.state.SumRunning {
		c.state.SumRunning = false
		c.persistLocked(context.Background())
		c.logger.Info("summarize stop requested")
	}
}

// Status returns the current progress snapshot. The snapshot is
// advisory: it may trail in-flight counter updates by one unit.
func (c *Controller) Status() *entity.ProgressSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops both workers and waits for their loops to exit.
func (c *Controller) Close() {
	c.StopCollect()
	c.StopSummarize()
	c.wg.Wait()
}

func (c *Controller) snapshotLocked() *entity.ProgressSnapshot {
	s := c.state
	snap := &entity.ProgressSnapshot{
		CollectRunning:   s.CollectRunning,
		CollectUntil:     s.CollectUntil,
		CollectScanPage:  s.CollectScanPage,
		CollectGoalPages: s.CollectGoalPages,
		CollectProcessed: s.CollectProcessed,
		CollectLastTS:    s.CollectLastTS,
		SumRunning:       s.SumRunning,
		SumUntil:         s.SumUntil,
		SumProcessed:     s.SumProcessed,
		SumGoalTotal:     s.SumGoalTotal,
		SumModel:         s.SumModel,
		SumLastArticleID: s.SumLastArticleID,
	}
	if !s.CollectUntil.IsZero() {
		snap.CollectPeriod = fmt.Sprintf("%s-%s",
			c.now().Format("02.01.2006"), s.CollectUntil.Format("02.01.2006"))
	}
	if s.CollectRunning {
		snap.CollectProgressPct = entity.ProgressPct(s.CollectScanPage, s.CollectGoalPages)
	}
	if s.SumRunning {
		snap.SumProgressPct = entity.ProgressPct(s.SumProcessed, s.SumGoalTotal)
	}
	return snap
}

// persistLocked saves the progress row best-effort. A failed save is
// logged and ignored; the in-memory state stays authoritative for the
// rest of the run. Callers must hold c.mu.
func (c *Controller) persistLocked(ctx context.Context) {
	if err := c.progress.Save(ctx, c.state); err != nil {
		c.logger.Warn("failed to persist backfill progress", slog.String("error", err.Error()))
	}
}

// notifyLocked emits a fire-and-forget progress snapshot. Observer
// errors never affect the worker. Callers must hold c.mu.
func (c *Controller) notifyLocked(ctx context.Context) {
	snap := c.snapshotLocked()
	if err := c.observer.Notify(ctx, snap); err != nil {
		c.logger.Debug("progress observer error", slog.String("error", err.Error()))
	}
}

// startOfDay truncates t to local midnight.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// sleepCtx pauses for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
