package backfill

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"archivefeed/internal/domain/entity"
	"archivefeed/internal/observability/metrics"
)

// runCollect walks calendar days backward from today to the lower
// bound, one day per iteration. Days the storage already covers are
// skipped without network work, so re-running over a collected range
// is cheap and idempotent.
func (c *Controller) runCollect(ctx context.Context) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("collect worker panicked", slog.Any("panic", r))
		}
		c.mu.Lock()
		c.state.CollectRunning = false
		c.persistLocked(context.Background())
		c.notifyLocked(context.Background())
		c.mu.Unlock()
	}()

	c.mu.Lock()
	goalDays := c.state.CollectGoalPages
	startAt := c.state.CollectScanPage
	c.mu.Unlock()

	today := startOfDay(c.now())
	for i := startAt; i < goalDays; i++ {
		if ctx.Err() != nil {
			c.logger.Info("collect stopped", slog.Int("days_scanned", i))
			return
		}

		day := today.AddDate(0, 0, -i)
		stored, err := c.collectDay(ctx, day)
		if err != nil && !errors.Is(err, context.Canceled) {
			// A day-level failure (listing fetch, coverage probe) is
			// logged and the day skipped; re-running over the same
			// range is the recovery path.
			c.logger.Error("collect day failed",
				slog.String("day", day.Format("2006-01-02")),
				slog.String("error", err.Error()))
		}

		c.mu.Lock()
		c.state.CollectScanPage = i + 1
		c.state.CollectProcessed += stored
		now := c.now()
		c.state.CollectLastTS = &now
		c.persistLocked(ctx)
		c.notifyLocked(ctx)
		c.mu.Unlock()

		if i < goalDays-1 {
			sleepCtx(ctx, c.cfg.CollectPacing)
		}
	}
	c.logger.Info("collect finished", slog.Int("days_scanned", goalDays))
}

// collectDay covers one calendar day: probes storage for existing
// coverage, lists the day's articles page by page, then fetches bodies
// through a bounded pool. Returns the number of articles stored.
func (c *Controller) collectDay(ctx context.Context, day time.Time) (int, error) {
	dayUTC := day.UTC()

	count, err := c.articles.CountForDay(ctx, dayUTC)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		c.logger.Debug("day already covered, skipping",
			slog.String("day", day.Format("2006-01-02")),
			slog.Int("existing", count))
		metrics.RecordDayScanned(true)
		return 0, nil
	}
	metrics.RecordDayScanned(false)

	items, err := c.listDay(ctx, day)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		c.logger.Debug("no articles listed for day", slog.String("day", day.Format("2006-01-02")))
		return 0, nil
	}

	publishedAt := dayUTC.Truncate(24 * time.Hour)

	var (
		mu     sync.Mutex
		stored int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.CollectParallelism)
	for _, item := range items {
		item := item
		g.Go(func() error {
			if err := c.collectItem(gctx, item, publishedAt); err != nil {
				// Per-item failures are isolated: logged, recorded to
				// the DLQ, and the rest of the day continues.
				c.logger.Warn("article fetch failed",
					slog.String("url", item.URL),
					slog.String("error", err.Error()))
				metrics.RecordCollectError(errorCode(err))
				c.recordDLQ(gctx, entity.DLQEntityArticle, item.URL, err)
				return nil
			}
			mu.Lock()
			stored++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	metrics.RecordArticlesCollected(stored)
	c.logger.Info("day collected",
		slog.String("day", day.Format("2006-01-02")),
		slog.Int("listed", len(items)),
		slog.Int("stored", stored))
	return stored, nil
}

// listDay pages through the day's search results until the reported
// last page, deduplicating by URL across pages.
func (c *Controller) listDay(ctx context.Context, day time.Time) ([]PageItem, error) {
	seen := make(map[string]struct{})
	var items []PageItem

	page := 1
	totalPages := 1
	for page <= totalPages {
		if ctx.Err() != nil {
			return items, ctx.Err()
		}
		listing, err := c.pages.ListArticlesForDay(ctx, day, page)
		if err != nil {
			if errors.Is(err, ErrPageParse) {
				// A malformed page is skipped, never retried.
				c.logger.Warn("listing page parse failed, skipping",
					slog.String("day", day.Format("2006-01-02")),
					slog.Int("page", page))
				page++
				continue
			}
			return items, err
		}
		if listing.TotalPages > totalPages {
			totalPages = listing.TotalPages
		}
		for _, it := range listing.Items {
			if _, ok := seen[it.URL]; ok {
				continue
			}
			seen[it.URL] = struct{}{}
			items = append(items, it)
		}
		page++
	}
	return items, nil
}

// collectItem fetches one article body and upserts the row. The upsert
// keys on the canonical link, so a URL spelling already stored just
// refreshes the existing row.
func (c *Controller) collectItem(ctx context.Context, item PageItem, publishedAt time.Time) error {
	body, err := c.bodies.FetchBody(ctx, item.URL)
	if err != nil {
		return err
	}

	article := &entity.Article{
		URL:            item.URL,
		Title:          item.Title,
		PublishedAt:    publishedAt,
		Content:        body,
		BackfillStatus: entity.BackfillSuccess,
	}
	if _, err := c.articles.UpsertRaw(ctx, article); err != nil {
		return err
	}
	return nil
}

// recordDLQ writes a dead-letter entry best-effort. DLQ write failures
// are logged and swallowed so they cannot take down the worker.
func (c *Controller) recordDLQ(ctx context.Context, entityType entity.DLQEntityType, ref string, cause error) {
	if c.dlq == nil {
		return
	}
	payload := cause.Error()
	if len(payload) > 500 {
		payload = payload[:500]
	}
	if err := c.dlq.Record(ctx, entityType, ref, errorCode(cause), payload); err != nil {
		c.logger.Warn("dlq record failed", slog.String("ref", ref), slog.String("error", err.Error()))
	}
}

// errorCode maps known sentinels to stable DLQ codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, ErrPrivateIP):
		return "private_ip"
	case errors.Is(err, ErrTooManyRedirects):
		return "too_many_redirects"
	case errors.Is(err, ErrBodyTooLarge):
		return "body_too_large"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrExtractFailed):
		return "extract_failed"
	case errors.Is(err, ErrPageParse):
		return "page_parse"
	default:
		return "fetch_error"
	}
}
