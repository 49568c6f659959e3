// Package scraper walks the pages of a product-review listing and collects
// the reviews extracted from each one.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
)

// Controller runs the pagination loop over a single fetcher session.
type Controller struct {
	cfg       *config.Config
	open      Opener
	selectors parser.Selectors
	dates     parser.DateResolver
	retry     *retryManager
	Metrics   *Metrics
}

// NewController builds a controller that acquires fetchers through open and
// resolves first-pass dates with dates.
func NewController(cfg *config.Config, open Opener, sel parser.Selectors, dates parser.DateResolver) *Controller {
	metrics := NewMetrics()
	return &Controller{
		cfg:       cfg,
		open:      open,
		selectors: sel,
		dates:     dates,
		retry:     newRetryManager(cfg, metrics),
		Metrics:   metrics,
	}
}

// Run scrapes up to pageLimit pages starting at targetURL. Reviews collected
// before a failure are returned together with a *PageFetchError. An invalid
// target returns *InvalidTargetError and no result.
func (c *Controller) Run(ctx context.Context, targetURL string, pageLimit int) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ValidateTarget(targetURL, pageLimit); err != nil {
		return nil, err
	}

	product := ProductName(targetURL)
	session := models.NewScrapeSession(targetURL, product, pageLimit)
	result := &models.ScrapeResult{Product: product, StartTime: time.Now()}

	reason, err := c.walk(ctx, session)
	c.Metrics.IncStop(reason)

	result.Reviews = session.Reviews
	result.TotalPages = session.TotalPages
	result.PagesVisited = session.PagesVisited
	result.StopReason = reason
	result.RetryCount = c.retry.TotalRetries()
	result.EndTime = time.Now()

	var pageErr *PageFetchError
	if errors.As(err, &pageErr) {
		result.FailedPage = pageErr.Page
	}

	slog.Info("scrape finished",
		slog.String("product", product),
		slog.Int("pages", session.PagesVisited),
		slog.Int("reviews", len(session.Reviews)),
		slog.String("total_pages", session.TotalPages.String()),
		slog.String("stop_reason", reason.String()),
	)
	return result, err
}

func (c *Controller) walk(ctx context.Context, session *models.ScrapeSession) (models.StopReason, error) {
	if err := ctx.Err(); err != nil {
		return models.Cancelled, nil
	}

	fetcher, err := c.open(ctx)
	if err != nil {
		return c.fail(ctx, 1, fmt.Errorf("open fetcher: %w", err))
	}
	defer func() {
		if cerr := fetcher.Close(); cerr != nil {
			slog.Warn("close fetcher", slog.Any("error", cerr))
		}
	}()

	if err := c.retry.Do(ctx, "load", func() error {
		return fetcher.Load(ctx, session.TargetURL)
	}); err != nil {
		return c.fail(ctx, 1, err)
	}

	extractor := parser.NewExtractor(c.selectors, c.dates, session.Product)
	for session.PagesVisited < session.PageLimit {
		page := session.PagesVisited + 1
		if ctx.Err() != nil {
			return models.Cancelled, nil
		}

		start := time.Now()
		var doc *goquery.Document
		if err := c.retry.Do(ctx, "render", func() error {
			var rerr error
			doc, rerr = fetcher.Render(ctx)
			return rerr
		}); err != nil {
			return c.fail(ctx, page, err)
		}

		res := extractor.Extract(doc)
		c.Metrics.ObserveDuration(time.Since(start))
		c.Metrics.AddReviews(len(res.Reviews), res.Dropped)
		if len(res.Reviews) == 0 {
			// The page count indicator may still be present on an empty page.
			session.Append(res)
			c.Metrics.IncPage("empty")
			return models.EndOfResults, nil
		}

		session.Append(res)
		session.PagesVisited = page
		c.Metrics.IncPage("ok")
		slog.Debug("page extracted",
			slog.Int("page", page),
			slog.Int("reviews", len(res.Reviews)),
			slog.Int("dropped", res.Dropped),
		)

		if session.PagesVisited >= session.PageLimit {
			return models.PageLimit, nil
		}

		if err := fetcher.Advance(ctx); err != nil {
			if ctx.Err() != nil {
				return models.Cancelled, nil
			}
			if !errors.Is(err, ErrNoNextPage) {
				slog.Warn("advance failed", slog.Int("page", page), slog.Any("error", err))
			}
			return models.NoNextPage, nil
		}
		if err := sleepCtx(ctx, c.cfg.SettleDelay); err != nil {
			return models.Cancelled, nil
		}
	}
	return models.PageLimit, nil
}

func (c *Controller) fail(ctx context.Context, page int, err error) (models.StopReason, error) {
	if ctx.Err() != nil {
		return models.Cancelled, nil
	}
	category := errorTypeLabel(err)
	c.Metrics.IncError(category)
	c.Metrics.IncPage("failed")
	slog.Error("page fetch failed",
		slog.Int("page", page),
		slog.String("category", category),
		slog.Any("error", err),
	)
	return models.FetchFailed, &PageFetchError{Page: page, Err: err}
}
