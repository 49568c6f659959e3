package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/parser"
)

// ChromeFetcher renders review pages in a headless Chrome session.
type ChromeFetcher struct {
	cfg       *config.Config
	selectors parser.Selectors

	browserCtx   context.Context
	cancelAlloc  context.CancelFunc
	cancelBrowse context.CancelFunc
}

// NewChromeFetcher starts a browser session bound to ctx.
func NewChromeFetcher(ctx context.Context, cfg *config.Config, sel parser.Selectors) (*ChromeFetcher, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.UserAgent(cfg.UserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowse := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		slog.Debug("chromedp", slog.String("msg", fmt.Sprintf(format, args...)))
	}))

	// Run with no actions launches the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowse()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &ChromeFetcher{
		cfg:          cfg,
		selectors:    sel,
		browserCtx:   browserCtx,
		cancelAlloc:  cancelAlloc,
		cancelBrowse: cancelBrowse,
	}, nil
}

// ChromeOpener returns an Opener that launches a ChromeFetcher.
func ChromeOpener(cfg *config.Config, sel parser.Selectors) Opener {
	return func(ctx context.Context) (Fetcher, error) {
		return NewChromeFetcher(ctx, cfg, sel)
	}
}

// stepContext bounds a single browser step by the configured timeout.
func (f *ChromeFetcher) stepContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(f.browserCtx, f.cfg.Timeout)
}

func (f *ChromeFetcher) Load(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	navCtx, cancel := f.stepContext()
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return classifyError(fmt.Errorf("navigate: %w", err), 0)
	}
	return nil
}

func (f *ChromeFetcher) Render(ctx context.Context) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	waitCtx, cancel := f.stepContext()
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(f.selectors.Marker, chromedp.ByQuery)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s not visible after %s", ErrMarkerMissing, f.selectors.Marker, f.cfg.Timeout)
		}
		return nil, classifyError(err, 0)
	}

	readCtx, cancelRead := f.stepContext()
	defer cancelRead()
	var html string
	if err := chromedp.Run(readCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read page html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	return doc, nil
}

// nextScript clicks the first span whose text is the next-button label.
const nextScript = `(() => {
	const label = %s;
	const el = Array.from(document.querySelectorAll('span')).find(s => s.textContent.trim() === label);
	if (!el) { return false; }
	el.click();
	return true;
})()`

func (f *ChromeFetcher) Advance(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var clicked bool
	script := fmt.Sprintf(nextScript, strconv.Quote(f.selectors.NextButton))
	clickCtx, cancel := f.stepContext()
	defer cancel()
	if err := chromedp.Run(clickCtx, chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("click next: %w", err)
	}
	if !clicked {
		return ErrNoNextPage
	}
	return nil
}

func (f *ChromeFetcher) Close() error {
	f.cancelBrowse()
	f.cancelAlloc()
	return nil
}
