package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"archivefeed/internal/pkg/urlcanon"
	"archivefeed/internal/resilience/circuitbreaker"
	"archivefeed/internal/resilience/retry"
	"archivefeed/internal/usecase/backfill"
)

// listingTableSelector matches the news tables on an archive search
// page. The first match is the page chrome and is skipped.
const listingTableSelector = `table[border="0"][align="center"][cellspacing="0"][width="100%"]`

// totalPagesRe extracts the page total from the source's pagination
// marker ("Страница N из M").
var totalPagesRe = regexp.MustCompile(`из\s+(\d+)`)

// ArchiveClient lists articles for a calendar day by paging through the
// source's date-filtered archive search. Transient failures are retried
// with backoff and the whole endpoint sits behind a circuit breaker.
//
// Thread safety: ArchiveClient is safe for concurrent use.
type ArchiveClient struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryCfg       retry.Config
	config         Config
}

var _ backfill.PageFetcher = (*ArchiveClient)(nil)

// NewArchiveClient creates an ArchiveClient with the given configuration.
func NewArchiveClient(config Config) *ArchiveClient {
	return &ArchiveClient{
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		},
		circuitBreaker: circuitbreaker.New(circuitbreaker.ArchiveFetchConfig()),
		retryCfg:       retry.ArchiveFetchConfig(),
		config:         config,
	}
}

// ListArticlesForDay fetches one archive search page for the given day
// and returns the article references on it plus the reported page total.
// The caller pages from 1 until that total.
func (c *ArchiveClient) ListArticlesForDay(ctx context.Context, day time.Time, page int) (*backfill.DayListing, error) {
	searchURL := c.searchURL(day, page)

	var body []byte
	err := retry.WithBackoff(ctx, c.retryCfg, func() error {
		result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.fetchPage(ctx, searchURL)
		})
		if err != nil {
			return err
		}
		body = result.([]byte)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ListArticlesForDay: %w", err)
	}

	listing, err := c.parseListing(body)
	if err != nil {
		return nil, fmt.Errorf("ListArticlesForDay: %w", err)
	}
	return listing, nil
}

// searchURL builds the date-filtered search URL. The source expects the
// same dd.mm.yyyy date as both range bounds to pin a single day.
func (c *ArchiveClient) searchURL(day time.Time, page int) string {
	dateStr := day.Format("02.01.2006")
	return fmt.Sprintf(
		"%spage=%d/?text_header=&author=&topic=&date_st=%s&sselect=0&date_en=%s&archive_sort=",
		c.config.ArchiveBaseURL, page, dateStr, dateStr)
}

func (c *ArchiveClient) fetchPage(ctx context.Context, searchURL string) (interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", backfill.ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("archive request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	// The source serves windows-1251; decode by the declared charset.
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: charset detection: %v", backfill.ErrPageParse, err)
	}

	body, err := io.ReadAll(io.LimitReader(reader, c.config.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive page: %w", err)
	}
	return body, nil
}

// parseListing extracts article references and the pagination total from
// one archive search page.
func (c *ArchiveClient) parseListing(body []byte) (*backfill.DayListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backfill.ErrPageParse, err)
	}

	listing := &backfill.DayListing{TotalPages: 1}

	doc.Find(listingTableSelector).Each(func(i int, table *goquery.Selection) {
		if i == 0 {
			return
		}
		link := table.Find(".topic_caption a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		resolved, err := c.resolveLink(href)
		if err != nil {
			slog.Warn("skipping unresolvable article link",
				slog.String("href", href),
				slog.String("error", err.Error()))
			return
		}
		listing.Items = append(listing.Items, backfill.PageItem{
			Title: strings.TrimSpace(link.Text()),
			URL:   urlcanon.Canonicalize(resolved),
		})
	})

	doc.Find("span.menu_1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "Страница") {
			return true
		}
		if m := totalPagesRe.FindStringSubmatch(text); m != nil {
			if total, err := strconv.Atoi(m[1]); err == nil && total > 0 {
				listing.TotalPages = total
			}
		}
		return false
	})

	return listing, nil
}

// resolveLink makes a listing href absolute against the site base URL.
func (c *ArchiveClient) resolveLink(href string) (string, error) {
	base, err := url.Parse(c.config.SiteBaseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
