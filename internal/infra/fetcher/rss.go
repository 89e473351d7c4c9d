package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"

	"archivefeed/internal/pkg/urlcanon"
	"archivefeed/internal/resilience/circuitbreaker"
	"archivefeed/internal/resilience/retry"
	"archivefeed/internal/usecase/publish"
)

// LiveFeedClient discovers the source's newest articles from its RSS
// feed. It backs the live publish path, which must not wait for an
// archive backfill run to notice fresh items.
type LiveFeedClient struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryCfg       retry.Config
	feedURL        string
	userAgent      string
}

var _ publish.FeedSource = (*LiveFeedClient)(nil)

// NewLiveFeedClient creates a LiveFeedClient for the given feed URL.
func NewLiveFeedClient(client *http.Client, feedURL, userAgent string) *LiveFeedClient {
	return &LiveFeedClient{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.ArchiveFetchConfig()),
		retryCfg:       retry.ArchiveFetchConfig(),
		feedURL:        feedURL,
		userAgent:      userAgent,
	}
}

// Latest fetches and parses the live feed, newest first. Links are
// canonicalized so downstream dedup sees the same identity the archive
// path produces.
func (c *LiveFeedClient) Latest(ctx context.Context) ([]publish.FeedItem, error) {
	var items []publish.FeedItem

	retryErr := retry.WithBackoff(ctx, c.retryCfg, func() error {
		result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doFetch(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("live feed circuit breaker open, request rejected",
					slog.String("url", c.feedURL),
					slog.String("state", c.circuitBreaker.State().String()))
			}
			return err
		}
		items = result.([]publish.FeedItem)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return items, nil
}

func (c *LiveFeedClient) doFetch(ctx context.Context) ([]publish.FeedItem, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = c.userAgent
	fp.Client = c.client

	feed, err := fp.ParseURLWithContext(c.feedURL, ctx)
	if err != nil {
		return nil, err
	}

	items := make([]publish.FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		pubAt := time.Now()
		if it.PublishedParsed != nil {
			pubAt = *it.PublishedParsed
		}

		content := it.Content
		if content == "" {
			content = it.Description
		}

		items = append(items, publish.FeedItem{
			Title:       it.Title,
			URL:         urlcanon.Canonicalize(it.Link),
			Content:     content,
			PublishedAt: pubAt,
		})
	}
	return items, nil
}
