package backfill

import (
	"context"
	"log/slog"
	"time"

	"archivefeed/internal/domain/entity"
	"archivefeed/internal/observability/metrics"
)

// runSummarize backfills missing summaries newest first, one small
// batch at a time. The loop exits when a batch comes back empty, when
// a stop is requested, or when a full batch yields no progress (the
// remaining candidates keep failing and would otherwise spin).
func (c *Controller) runSummarize(ctx context.Context) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("summarize worker panicked", slog.Any("panic", r))
		}
		c.mu.Lock()
		c.state.SumRunning = false
		c.persistLocked(context.Background())
		c.notifyLocked(context.Background())
		c.mu.Unlock()
	}()

	c.mu.Lock()
	until := c.state.SumUntil
	model := c.state.SumModel
	c.mu.Unlock()

	for {
		if ctx.Err() != nil {
			c.logger.Info("summarize stopped")
			return
		}

		batch, err := c.articles.ListUnsummarized(ctx, until, c.cfg.SumBatchSize)
		if err != nil {
			c.logger.Error("failed to list unsummarized articles", slog.String("error", err.Error()))
			return
		}
		if len(batch) == 0 {
			c.logger.Info("summarize finished, no candidates left")
			return
		}

		succeeded := 0
		for _, article := range batch {
			if ctx.Err() != nil {
				return
			}
			start := c.now()
			err := c.summarizeOne(ctx, article, model)
			metrics.RecordSummarizationDuration(time.Since(start))
			metrics.RecordArticleSummarized(err == nil)
			if err != nil {
				c.logger.Warn("summarization failed",
					slog.Int64("article_id", article.ID),
					slog.String("error", err.Error()))
				c.markSummarizeFailed(ctx, article, err)
			} else {
				succeeded++
			}

			c.mu.Lock()
			c.state.SumLastArticleID = article.ID
			if err == nil {
				c.state.SumProcessed++
			}
			c.mu.Unlock()

			sleepCtx(ctx, c.cfg.SumItemDelay)
		}

		c.mu.Lock()
		c.persistLocked(ctx)
		c.notifyLocked(ctx)
		processed := c.state.SumProcessed
		c.mu.Unlock()

		c.logger.Debug("summarize batch done",
			slog.Int("succeeded", succeeded),
			slog.Int("batch_size", len(batch)),
			slog.Int("total_processed", processed))

		if succeeded == 0 {
			c.logger.Warn("summarize made no progress over a full batch, stopping")
			return
		}

		sleepCtx(ctx, c.cfg.SumBatchDelay)
	}
}

// markSummarizeFailed records a failed article as failed and surfaces
// it on the dead-letter queue. Failed rows leave the candidate set, so
// one poisoned article cannot re-enter every later batch; an operator
// clears its DLQ entry and status to retry it.
func (c *Controller) markSummarizeFailed(ctx context.Context, article *entity.Article, cause error) {
	if ctx.Err() != nil {
		// A stop request, not an article problem.
		return
	}
	if err := c.articles.SetBackfillStatus(ctx, article.ID, entity.BackfillFailed); err != nil {
		c.logger.Warn("failed to mark article as failed",
			slog.Int64("article_id", article.ID),
			slog.String("error", err.Error()))
	}
	c.recordDLQ(ctx, entity.DLQEntityArticle, article.URL, cause)
}

// summarizeOne produces and stores the summary for one article,
// fetching the body on demand when the stored content is empty. A
// body fetched here is persisted so the next pass will not refetch.
func (c *Controller) summarizeOne(ctx context.Context, article *entity.Article, model string) error {
	text := article.Content
	if text == "" {
		body, err := c.bodies.FetchBody(ctx, article.URL)
		if err != nil {
			return err
		}
		text = body
		article.Content = body
		if _, err := c.articles.UpsertRaw(ctx, article); err != nil {
			c.logger.Warn("failed to persist fetched body",
				slog.Int64("article_id", article.ID),
				slog.String("error", err.Error()))
		}
	}

	summary, err := c.provider.Summarize(ctx, text, model)
	if err != nil {
		return err
	}
	if err := c.articles.SetSummary(ctx, article.ID, summary); err != nil {
		return err
	}
	return nil
}
