package crawler

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/travel-insight/backend/internal/config"
	"github.com/travel-insight/backend/internal/dataset"
	"github.com/travel-insight/backend/internal/fetcher"
	"github.com/travel-insight/backend/internal/metrics"
)

// PageFetcher downloads and parses one listing page
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*fetcher.FetchResult, error)
}

// Gatekeeper decides whether and when a page may be requested
type Gatekeeper interface {
	Wait(ctx context.Context) error
	IsURLAllowed(ctx context.Context, rawURL string) (bool, error)
}

// Progress is reported after every visited page
type Progress struct {
	Page    int
	Records int
	Err     error
}

// Crawler walks the paginated travelbook listing
type Crawler struct {
	listURL  string
	fetcher  PageFetcher
	gate     Gatekeeper
	logger   *logrus.Entry
	progress func(Progress)
}

func New(cfg config.CrawlerConfig, f PageFetcher, gate Gatekeeper, logger *logrus.Entry) *Crawler {
	if logger == nil {
		logger = logrus.WithField("component", "crawler")
	}
	return &Crawler{
		listURL: cfg.ListURL,
		fetcher: f,
		gate:    gate,
		logger:  logger,
	}
}

// OnProgress registers a callback invoked after each page
func (c *Crawler) OnProgress(fn func(Progress)) {
	c.progress = fn
}

// PageURL returns the listing URL of page n
func (c *Crawler) PageURL(n int) string {
	return fmt.Sprintf(c.listURL, n)
}

// Crawl visits pages 1..pages in order. Failing pages are logged and
// skipped. On cancellation the records gathered so far are returned
// together with the context error.
func (c *Crawler) Crawl(ctx context.Context, pages int) ([]dataset.Record, error) {
	var records []dataset.Record

	for page := 1; page <= pages; page++ {
		if err := c.gate.Wait(ctx); err != nil {
			return records, err
		}

		n, err := c.crawlPage(ctx, page)
		if ctx.Err() != nil {
			return records, ctx.Err()
		}
		if err != nil {
			c.logger.WithError(err).WithField("page", page).Warn("Failed to crawl listing page")
		}
		if c.progress != nil {
			c.progress(Progress{Page: page, Records: len(n), Err: err})
		}
		records = append(records, n...)
	}

	c.logger.WithFields(logrus.Fields{
		"pages":   pages,
		"records": len(records),
	}).Info("Crawl finished")
	return records, nil
}

func (c *Crawler) crawlPage(ctx context.Context, page int) ([]dataset.Record, error) {
	pageURL := c.PageURL(page)

	allowed, err := c.gate.IsURLAllowed(ctx, pageURL)
	if err != nil {
		metrics.RecordCrawlPage("error", 0)
		return nil, err
	}
	if !allowed {
		metrics.RecordCrawlPage("disallowed", 0)
		return nil, fmt.Errorf("disallowed by robots.txt: %s", pageURL)
	}

	res, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		metrics.RecordCrawlPage("error", 0)
		return nil, err
	}

	metrics.RecordCrawlPage("ok", len(res.Records))
	c.logger.WithFields(logrus.Fields{
		"page":    page,
		"records": len(res.Records),
	}).Debug("Crawled listing page")
	return res.Records, nil
}
