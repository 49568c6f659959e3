package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/parser"
)

// StaticFetcher fetches server-rendered review pages over plain HTTP. It
// follows the anchor labelled with the next-button text instead of
// clicking it. The page body is requested by Render, so a failed request
// for any page surfaces there and a retried Render requests it again.
type StaticFetcher struct {
	selectors parser.Selectors
	collector *colly.Collector

	pageURL string
	last    *colly.Response
	lastErr error
	status  int
}

// NewStaticFetcher builds a synchronous collector for cfg.
func NewStaticFetcher(cfg *config.Config, sel parser.Selectors) *StaticFetcher {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	f := &StaticFetcher{selectors: sel, collector: collector}
	collector.OnResponse(func(r *colly.Response) {
		f.last = r
	})
	collector.OnError(func(r *colly.Response, err error) {
		f.lastErr = err
		if r != nil {
			f.status = r.StatusCode
		}
	})
	return f
}

// StaticOpener returns an Opener that builds a StaticFetcher. transport
// replaces the HTTP transport when non-nil.
func StaticOpener(cfg *config.Config, sel parser.Selectors, transport http.RoundTripper) Opener {
	return func(ctx context.Context) (Fetcher, error) {
		f := NewStaticFetcher(cfg, sel)
		if transport != nil {
			f.WithTransport(transport)
		}
		return f, nil
	}
}

// WithTransport swaps the collector's transport.
func (f *StaticFetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

func (f *StaticFetcher) Load(ctx context.Context, url string) error {
	f.pageURL = url
	return f.visit(ctx, url)
}

func (f *StaticFetcher) Render(ctx context.Context) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.pageURL == "" {
		return nil, errors.New("render before load")
	}
	if f.last == nil {
		if err := f.visit(ctx, f.pageURL); err != nil {
			return nil, err
		}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(f.last.Body))
	if err != nil {
		f.last = nil
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	if !f.selectors.HasMarker(doc) {
		// Drop the body so a retry requests the page again.
		f.last = nil
		return nil, fmt.Errorf("%w: %s not present", ErrMarkerMissing, f.selectors.Marker)
	}
	return doc, nil
}

// Advance records the next page URL. The request itself is made by the
// following Render.
func (f *StaticFetcher) Advance(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.last == nil {
		return ErrNoNextPage
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(f.last.Body))
	if err != nil {
		return fmt.Errorf("parse page html: %w", err)
	}

	href := ""
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.TrimSpace(a.Text()) != f.selectors.NextButton {
			return true
		}
		href, _ = a.Attr("href")
		return false
	})
	if href == "" {
		return ErrNoNextPage
	}
	next := f.last.Request.AbsoluteURL(href)
	if next == "" {
		return ErrNoNextPage
	}
	f.pageURL, f.last = next, nil
	return nil
}

func (f *StaticFetcher) Close() error {
	return nil
}

func (f *StaticFetcher) visit(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.last, f.lastErr, f.status = nil, nil, 0

	err := f.collector.Visit(url)
	if err == nil {
		err = f.lastErr
	}
	if err != nil || f.status >= http.StatusBadRequest {
		return classifyError(err, f.status)
	}
	if f.last == nil {
		return fmt.Errorf("no response for %s", url)
	}
	return nil
}
