package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"archivefeed/internal/domain/entity"
	"archivefeed/internal/observability/metrics"
	"archivefeed/internal/pkg/urlcanon"
	"archivefeed/internal/repository"
	"archivefeed/internal/resilience/circuitbreaker"
	"archivefeed/internal/usecase/backfill"
)

// ErrChannelBlocked reports that the circuit breaker rejected the send
// before any network attempt. The item has been queued, not dropped.
var ErrChannelBlocked = errors.New("outbound channel blocked by circuit breaker")

// Config tunes the publish service.
type Config struct {
	// FlushBatchSize caps how many pending rows one flush cycle reads.
	FlushBatchSize int

	// MaxAttempts is the attempt count at which a pending publication
	// is surfaced on the dead-letter queue for operator attention.
	MaxAttempts int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FlushBatchSize: 20,
		MaxAttempts:    10,
	}
}

// Service sends summarized articles to the outbound channel. Every
// send passes through the circuit breaker; failures route the item to
// the pending-publication queue, and a periodic flush drains the queue
// through the same gated path. Delivery is at-least-once: the queue
// row outlives the send until an explicit delete, and the article
// upsert downstream is idempotent by canonical link.
type Service struct {
	cfg      Config
	breaker  *circuitbreaker.WindowBreaker
	channel  OutboundChannel
	queue    repository.PublicationQueue
	articles repository.ArticleRepository
	dlq      repository.DLQRepository
	feed     FeedSource
	bodies   backfill.BodyFetcher
	provider backfill.SummarizerProvider
	logger   *slog.Logger
}

// NewService creates the publish service. feed, bodies and provider
// are only required when PublishLatest is used.
func NewService(
	cfg Config,
	breaker *circuitbreaker.WindowBreaker,
	channel OutboundChannel,
	queue repository.PublicationQueue,
	articles repository.ArticleRepository,
	dlq repository.DLQRepository,
	feed FeedSource,
	bodies backfill.BodyFetcher,
	provider backfill.SummarizerProvider,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		breaker:  breaker,
		channel:  channel,
		queue:    queue,
		articles: articles,
		dlq:      dlq,
		feed:     feed,
		bodies:   bodies,
		provider: provider,
		logger:   logger,
	}
}

// Publish sends one summarized article through the breaker-gated path.
// When the breaker blocks or the send fails transiently, the item is
// queued for the next flush and ErrChannelBlocked or the send error is
// returned. A non-transient channel rejection goes to the dead-letter
// queue instead; retrying it would never succeed.
func (s *Service) Publish(ctx context.Context, p *entity.PendingPublication) error {
	if !s.breaker.Permit() {
		s.logger.Warn("send blocked by circuit breaker, queueing", slog.String("url", p.URL))
		metrics.RecordPublication("blocked")
		if err := s.queue.Enqueue(ctx, p); err != nil {
			return fmt.Errorf("Publish: enqueue while blocked: %w", err)
		}
		return ErrChannelBlocked
	}

	err := s.channel.Send(ctx, p.Title, p.SummaryText, p.URL)
	if err == nil {
		s.breaker.NoteSuccess()
		metrics.RecordPublication("delivered")
		if err := s.persistDelivered(ctx, p); err != nil {
			s.logger.Warn("failed to persist delivered article",
				slog.String("url", p.URL), slog.String("error", err.Error()))
		}
		return nil
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		s.breaker.NoteFailure()
		metrics.RecordPublication("queued")
		s.logger.Warn("transient send failure, queueing",
			slog.String("url", p.URL), slog.String("error", err.Error()))
		if qErr := s.queue.Enqueue(ctx, p); qErr != nil {
			return fmt.Errorf("Publish: enqueue after failure: %w", qErr)
		}
		return fmt.Errorf("Publish: %w", err)
	}

	// The channel rejected the payload itself: the channel answered,
	// so the call resolves as a breaker success. Without this a
	// permanent rejection during the half-open trial would leave the
	// trial unresolved forever.
	s.breaker.NoteSuccess()
	s.logger.Error("permanent send failure",
		slog.String("url", p.URL), slog.String("error", err.Error()))
	metrics.RecordPublication("failed")
	s.recordDLQ(ctx, p.URL, err)
	return fmt.Errorf("Publish: %w", err)
}

// FlushPending drains up to one batch of queued publications through
// the breaker-gated path. A blocked breaker skips the whole cycle
// without touching the queue. Returns the number delivered.
func (s *Service) FlushPending(ctx context.Context) (int, error) {
	if s.breaker.Blocked() {
		s.logger.Info("circuit breaker blocked, skipping flush cycle")
		return 0, nil
	}

	batch, err := s.queue.DequeueBatch(ctx, s.cfg.FlushBatchSize)
	if err != nil {
		return 0, fmt.Errorf("FlushPending: dequeue: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	delivered := 0
	for _, p := range batch {
		if ctx.Err() != nil {
			break
		}
		if !s.breaker.Permit() {
			s.logger.Info("circuit breaker blocked mid-flush, leaving remainder",
				slog.Int("delivered", delivered), slog.Int("remaining", len(batch)-delivered))
			break
		}
		if err := s.flushOne(ctx, p); err == nil {
			delivered++
		}
	}

	if delivered > 0 {
		s.logger.Info("flush cycle complete",
			slog.Int("delivered", delivered), slog.Int("batch", len(batch)))
	}
	return delivered, nil
}

// flushOne sends one queued publication. The caller already holds a
// breaker permit for this attempt.
func (s *Service) flushOne(ctx context.Context, p *entity.PendingPublication) error {
	err := s.channel.Send(ctx, p.Title, p.SummaryText, p.URL)
	if err == nil {
		s.breaker.NoteSuccess()
		metrics.RecordPublication("delivered")
		if err := s.queue.Delete(ctx, p.ID); err != nil {
			s.logger.Warn("failed to delete delivered queue row",
				slog.Int64("id", p.ID), slog.String("error", err.Error()))
		}
		if err := s.persistDelivered(ctx, p); err != nil {
			s.logger.Warn("failed to persist delivered article",
				slog.String("url", p.URL), slog.String("error", err.Error()))
		}
		return nil
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		s.breaker.NoteFailure()
		metrics.RecordPublication("failed")
		if mErr := s.queue.MarkFailed(ctx, p.ID, err.Error()); mErr != nil {
			s.logger.Warn("failed to mark queue row",
				slog.Int64("id", p.ID), slog.String("error", mErr.Error()))
		}
		if p.Attempts+1 >= s.cfg.MaxAttempts {
			s.recordDLQ(ctx, p.URL, err)
		}
		return err
	}

	// Permanent rejection: the channel answered, so the call resolves
	// as a breaker success, and the row moves to the dead-letter queue
	// so it stops occupying flush cycles.
	s.breaker.NoteSuccess()
	metrics.RecordPublication("failed")
	s.recordDLQ(ctx, p.URL, err)
	if dErr := s.queue.Delete(ctx, p.ID); dErr != nil {
		s.logger.Warn("failed to delete permanently failed queue row",
			slog.Int64("id", p.ID), slog.String("error", dErr.Error()))
	}
	return err
}

// PublishLatest walks the live feed newest first and publishes items
// not yet delivered, summarizing on the fly. Items already stored with
// a summary are skipped.
func (s *Service) PublishLatest(ctx context.Context) (int, error) {
	if s.feed == nil {
		return 0, errors.New("PublishLatest: no feed source configured")
	}
	items, err := s.feed.Latest(ctx)
	if err != nil {
		return 0, fmt.Errorf("PublishLatest: %w", err)
	}

	published := 0
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		canonical := urlcanon.Canonicalize(item.URL)
		done, err := s.alreadyPublished(ctx, canonical, item)
		if err != nil {
			s.logger.Warn("publish check failed",
				slog.String("url", item.URL), slog.String("error", err.Error()))
			continue
		}
		if done {
			continue
		}

		p, err := s.preparePublication(ctx, item)
		if err != nil {
			s.logger.Warn("failed to prepare publication",
				slog.String("url", item.URL), slog.String("error", err.Error()))
			continue
		}
		if err := s.Publish(ctx, p); err != nil {
			if errors.Is(err, ErrChannelBlocked) {
				// The rest of the feed would hit the same wall; this
				// item is queued already, the flush picks it up later.
				break
			}
			continue
		}
		published++
	}
	return published, nil
}

// preparePublication builds the sendable pair for a feed item,
// fetching the body and producing a summary when the feed entry
// carries no usable text.
func (s *Service) preparePublication(ctx context.Context, item FeedItem) (*entity.PendingPublication, error) {
	text := item.Content
	if text == "" && s.bodies != nil {
		body, err := s.bodies.FetchBody(ctx, item.URL)
		if err != nil {
			return nil, err
		}
		text = body
	}
	if text == "" {
		return nil, errors.New("empty article body")
	}
	if s.provider == nil {
		return nil, errors.New("no summarizer configured")
	}
	summary, err := s.provider.Summarize(ctx, text, "")
	if err != nil {
		return nil, err
	}
	return &entity.PendingPublication{
		URL:         item.URL,
		Title:       item.Title,
		PublishedAt: item.PublishedAt,
		SummaryText: summary,
	}, nil
}

// alreadyPublished reports whether a summarized article with the same
// canonical link is already stored for the item's day.
func (s *Service) alreadyPublished(ctx context.Context, canonical string, item FeedItem) (bool, error) {
	existing, err := s.articles.ListSummarizedForDay(ctx, item.PublishedAt.UTC())
	if err != nil {
		return false, err
	}
	for _, a := range existing {
		if a.CanonicalLink == canonical {
			return true, nil
		}
	}
	return false, nil
}

// persistDelivered writes the permanent article row for a delivered
// publication and stores its summary. The publication carries no body,
// so the write is insert-if-absent: an article the collector already
// stored keeps its content and hash, and redelivery after a crash
// lands on the same row.
func (s *Service) persistDelivered(ctx context.Context, p *entity.PendingPublication) error {
	id, err := s.articles.InsertIfAbsent(ctx, &entity.Article{
		URL:         p.URL,
		Title:       p.Title,
		PublishedAt: p.PublishedAt,
	})
	if err != nil {
		return err
	}
	if p.SummaryText == "" {
		return nil
	}
	return s.articles.SetSummary(ctx, id, p.SummaryText)
}

func (s *Service) recordDLQ(ctx context.Context, url string, cause error) {
	if s.dlq == nil {
		return
	}
	payload := cause.Error()
	if len(payload) > 500 {
		payload = payload[:500]
	}
	if err := s.dlq.Record(ctx, entity.DLQEntityPublication, url, "send_failed", payload); err != nil {
		s.logger.Warn("dlq record failed", slog.String("url", url), slog.String("error", err.Error()))
	}
}
