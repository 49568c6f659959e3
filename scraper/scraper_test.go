package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/dates"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
)

const (
	testPath = "/apple-iphone-15-black-128-gb/product-reviews/itm6ac6485515ae4"
	testURL  = "https://www.flipkart.com" + testPath
)

var testClock = time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)

func TestRetryManagerDoRespectsLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = time.Millisecond

	rm := newRetryManager(cfg, NewMetrics())
	calls := 0
	err := rm.Do(context.Background(), "load", func() error {
		calls++
		return ErrConnection{Err: errors.New("refused")}
	})
	if err == nil {
		t.Fatalf("expected error after retries")
	}
	if calls != 3 {
		t.Fatalf("calls=%d, want 3", calls)
	}
	if got := rm.TotalRetries(); got != 2 {
		t.Fatalf("total retries = %d, want 2", got)
	}
}

func TestRetryManagerSingleAttemptByDefault(t *testing.T) {
	rm := newRetryManager(config.DefaultConfig(), nil)
	calls := 0
	_ = rm.Do(context.Background(), "render", func() error {
		calls++
		return ErrMarkerMissing
	})
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
}

func TestRetryManagerSkipsNotFound(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxRetries = 3
	cfg.RetryBackoff = time.Millisecond

	rm := newRetryManager(cfg, nil)
	calls := 0
	_ = rm.Do(context.Background(), "load", func() error {
		calls++
		return classifyError(nil, http.StatusNotFound)
	})
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
}

func TestRetryManagerBackoffCapped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RetryBackoff = 200 * time.Millisecond
	cfg.RetryBackoffMax = 500 * time.Millisecond

	rm := newRetryManager(cfg, NewMetrics())

	if got := rm.backoff(2); got != 400*time.Millisecond {
		t.Fatalf("backoff(2)=%v, want 400ms", got)
	}
	delay := rm.backoff(4)
	if delay > cfg.RetryBackoffMax {
		t.Fatalf("delay %v exceeds max %v", delay, cfg.RetryBackoffMax)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: nil, statusCode: http.StatusInternalServerError, expected: "other"},
		{name: "marker", err: fmt.Errorf("%w: gone", ErrMarkerMissing), statusCode: 0, expected: "marker_missing"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestProductName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: testURL, want: "Apple Iphone 15 Black 128 Gb"},
		{url: "https://www.flipkart.com/samsung-galaxy-a35-5g-awesome-navy-256-gb/product-reviews/itm2d2e398127998", want: "Samsung Galaxy A35 5G Awesome Navy 256 Gb"},
		{url: "https://www.flipkart.com/product-reviews/x", want: UnknownProduct},
		{url: "https://example.com/foo", want: UnknownProduct},
	}
	for _, tt := range tests {
		if got := ProductName(tt.url); got != tt.want {
			t.Fatalf("ProductName(%q)=%q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		limit   int
		wantErr bool
	}{
		{name: "valid", url: testURL, limit: 1},
		{name: "max limit", url: testURL, limit: config.MaxPages},
		{name: "http scheme", url: "http://www.flipkart.com" + testPath, limit: 1, wantErr: true},
		{name: "product page", url: "https://www.flipkart.com/apple-iphone-15/p/itm6ac6485515ae4", limit: 1, wantErr: true},
		{name: "other host", url: "https://www.amazon.in" + testPath, limit: 1, wantErr: true},
		{name: "zero limit", url: testURL, limit: 0, wantErr: true},
		{name: "limit too large", url: testURL, limit: config.MaxPages + 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTarget(tt.url, tt.limit)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var invalid *InvalidTargetError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidTargetError, got %v", err)
			}
		})
	}
}

func TestControllerInvalidTargetNeverOpens(t *testing.T) {
	opened := false
	open := func(ctx context.Context) (Fetcher, error) {
		opened = true
		return &fakeFetcher{}, nil
	}
	c := NewController(testConfig(), open, parser.FlipkartSelectors(), dates.Fixed(testClock))

	result, err := c.Run(context.Background(), "https://example.com/reviews", 5)
	var invalid *InvalidTargetError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTargetError, got %v", err)
	}
	if result != nil {
		t.Fatalf("invalid target should return no result")
	}
	if opened {
		t.Fatalf("fetcher opened for an invalid target")
	}
}

func TestController_Integration(t *testing.T) {
	tests := []struct {
		name      string
		pages     map[string]string
		reviews   int
		visited   int
		lastAuthor string
	}{
		{
			name: "five reviews then an empty page",
			pages: map[string]string{
				testURL:             buildReviewPage(5, 2),
				testURL + "?page=2": buildReviewPage(0, 0),
			},
			reviews:   5,
			visited:   1,
			lastAuthor: "Author 1.4",
		},
		{
			name: "two pages then an empty page",
			pages: map[string]string{
				testURL:             buildReviewPage(3, 2),
				testURL + "?page=2": buildReviewPage(2, 3),
				testURL + "?page=3": buildReviewPage(0, 0),
			},
			reviews:   5,
			visited:   2,
			lastAuthor: "Author 2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := httpmock.NewMockTransport()
			for u, body := range tt.pages {
				transport.RegisterResponder("GET", u, htmlResponder(body))
			}

			cfg := testConfig()
			c := NewController(cfg, StaticOpener(cfg, parser.FlipkartSelectors(), transport), parser.FlipkartSelectors(), dates.Fixed(testClock))

			result, err := c.Run(context.Background(), testURL, 10)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if result.StopReason != models.EndOfResults {
				t.Fatalf("stop reason=%s, want end_of_results", result.StopReason)
			}
			if len(result.Reviews) != tt.reviews {
				t.Fatalf("reviews=%d, want %d", len(result.Reviews), tt.reviews)
			}
			if result.PagesVisited != tt.visited {
				t.Fatalf("pages visited=%d, want %d", result.PagesVisited, tt.visited)
			}
			if !result.TotalPages.Resolved || result.TotalPages.Value != 1169 {
				t.Fatalf("total pages=%+v, want 1169", result.TotalPages)
			}

			first := result.Reviews[0]
			if first.Product != "Apple Iphone 15 Black 128 Gb" {
				t.Fatalf("product=%q", first.Product)
			}
			if first.Author != "Author 1.0" || first.Rating != "5" {
				t.Fatalf("unexpected first review: %+v", first)
			}
			if first.Date != "Jan, 2024" {
				t.Fatalf("date=%q, want Jan, 2024", first.Date)
			}
			if last := result.Reviews[len(result.Reviews)-1]; last.Author != tt.lastAuthor {
				t.Fatalf("last author=%q, want %q", last.Author, tt.lastAuthor)
			}
		})
	}
}

func TestControllerNextPageHTTPFailure(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusForbidden, expected: "forbidden"},
		{status: http.StatusBadGateway, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder("GET", testURL, htmlResponder(buildReviewPage(3, 2)))
			transport.RegisterResponder("GET", testURL+"?page=2", httpmock.NewStringResponder(tt.status, ""))

			cfg := testConfig()
			c := NewController(cfg, StaticOpener(cfg, parser.FlipkartSelectors(), transport), parser.FlipkartSelectors(), dates.Fixed(testClock))

			result, err := c.Run(context.Background(), testURL, 5)
			var pageErr *PageFetchError
			if !errors.As(err, &pageErr) || pageErr.Page != 2 {
				t.Fatalf("expected page 2 failure, got %v", err)
			}
			if got := errorTypeLabel(pageErr.Err); got != tt.expected {
				t.Fatalf("category=%q, want %q", got, tt.expected)
			}
			if result.StopReason != models.FetchFailed || result.FailedPage != 2 {
				t.Fatalf("reason=%s failed page=%d", result.StopReason, result.FailedPage)
			}
			if len(result.Reviews) != 3 {
				t.Fatalf("partial reviews=%d, want 3", len(result.Reviews))
			}
			if got := testutil.ToFloat64(c.Metrics.ErrorsTotal.WithLabelValues(tt.expected)); got != 1 {
				t.Fatalf("errors_total{%s}=%v, want 1", tt.expected, got)
			}
		})
	}
}

func TestControllerRetriesNextPage(t *testing.T) {
	tests := []struct {
		name  string
		first httpmock.Responder
	}{
		{name: "rate limited", first: httpmock.NewStringResponder(http.StatusTooManyRequests, "")},
		{name: "marker missing", first: htmlResponder("<html><body><p>captcha</p></body></html>")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			page2 := htmlResponder(buildReviewPage(2, 0))
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder("GET", testURL, htmlResponder(buildReviewPage(3, 2)))
			transport.RegisterResponder("GET", testURL+"?page=2", func(req *http.Request) (*http.Response, error) {
				calls++
				if calls == 1 {
					return tt.first(req)
				}
				return page2(req)
			})

			cfg := testConfig()
			cfg.MaxRetries = 1
			cfg.RetryBackoff = time.Millisecond
			cfg.RetryBackoffMax = time.Millisecond
			c := NewController(cfg, StaticOpener(cfg, parser.FlipkartSelectors(), transport), parser.FlipkartSelectors(), dates.Fixed(testClock))

			result, err := c.Run(context.Background(), testURL, 5)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if calls != 2 {
				t.Fatalf("page 2 requested %d times, want 2", calls)
			}
			if result.StopReason != models.NoNextPage || len(result.Reviews) != 5 {
				t.Fatalf("got reason=%s reviews=%d", result.StopReason, len(result.Reviews))
			}
			if result.RetryCount != 1 {
				t.Fatalf("retries=%d, want 1", result.RetryCount)
			}
		})
	}
}

func TestChromeStepContextBounded(t *testing.T) {
	cfg := testConfig()
	f := &ChromeFetcher{cfg: cfg, browserCtx: context.Background()}

	ctx, cancel := f.stepContext()
	defer cancel()
	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatalf("browser step has no deadline")
	}
	if remaining := time.Until(deadline); remaining > cfg.Timeout {
		t.Fatalf("deadline in %v, want at most %v", remaining, cfg.Timeout)
	}
}

func TestControllerPageLimit(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testURL, htmlResponder(buildReviewPage(3, 2)))
	transport.RegisterResponder("GET", testURL+"?page=2", htmlResponder(buildReviewPage(2, 3)))

	cfg := testConfig()
	c := NewController(cfg, StaticOpener(cfg, parser.FlipkartSelectors(), transport), parser.FlipkartSelectors(), dates.Fixed(testClock))

	result, err := c.Run(context.Background(), testURL, 1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.StopReason != models.PageLimit || len(result.Reviews) != 3 || result.PagesVisited != 1 {
		t.Fatalf("got reason=%s reviews=%d pages=%d", result.StopReason, len(result.Reviews), result.PagesVisited)
	}
	if n := transport.GetCallCountInfo()["GET "+testURL+"?page=2"]; n != 0 {
		t.Fatalf("page 2 fetched %d times after reaching the limit", n)
	}
}

func TestControllerNoNextPage(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testURL, htmlResponder(buildReviewPage(4, 0)))

	cfg := testConfig()
	c := NewController(cfg, StaticOpener(cfg, parser.FlipkartSelectors(), transport), parser.FlipkartSelectors(), dates.Fixed(testClock))

	result, err := c.Run(context.Background(), testURL, 5)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.StopReason != models.NoNextPage || len(result.Reviews) != 4 {
		t.Fatalf("got reason=%s reviews=%d", result.StopReason, len(result.Reviews))
	}
}

func TestControllerFetchFailureKeepsPartialResults(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testURL, htmlResponder(buildReviewPage(3, 2)))
	transport.RegisterResponder("GET", testURL+"?page=2", htmlResponder("<html><body><p>captcha</p></body></html>"))

	cfg := testConfig()
	c := NewController(cfg, StaticOpener(cfg, parser.FlipkartSelectors(), transport), parser.FlipkartSelectors(), dates.Fixed(testClock))

	result, err := c.Run(context.Background(), testURL, 5)
	var pageErr *PageFetchError
	if !errors.As(err, &pageErr) {
		t.Fatalf("expected PageFetchError, got %v", err)
	}
	if pageErr.Page != 2 || !errors.Is(err, ErrMarkerMissing) {
		t.Fatalf("unexpected page error: %v", pageErr)
	}
	if result == nil || result.StopReason != models.FetchFailed || result.FailedPage != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Reviews) != 3 {
		t.Fatalf("partial reviews=%d, want 3", len(result.Reviews))
	}
}

func TestControllerHTTPStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusForbidden, expected: "forbidden"},
		{status: http.StatusNotFound, expected: "not_found"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder("GET", testURL, httpmock.NewStringResponder(tt.status, ""))

			cfg := testConfig()
			c := NewController(cfg, StaticOpener(cfg, parser.FlipkartSelectors(), transport), parser.FlipkartSelectors(), dates.Fixed(testClock))

			result, err := c.Run(context.Background(), testURL, 1)
			var pageErr *PageFetchError
			if !errors.As(err, &pageErr) || pageErr.Page != 1 {
				t.Fatalf("expected page 1 failure, got %v", err)
			}
			if got := errorTypeLabel(pageErr.Err); got != tt.expected {
				t.Fatalf("category=%q, want %q", got, tt.expected)
			}
			if result.StopReason != models.FetchFailed || len(result.Reviews) != 0 {
				t.Fatalf("unexpected result: %+v", result)
			}
		})
	}
}

func TestControllerCancelledDuringSettle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeFetcher{
		pages: []string{buildReviewPage(2, 2), buildReviewPage(2, 3)},
		onAdvance: func() {
			cancel()
		},
	}
	cfg := testConfig()
	cfg.SettleDelay = time.Hour
	c := NewController(cfg, f.open, parser.FlipkartSelectors(), dates.Fixed(testClock))

	result, err := c.Run(ctx, testURL, 5)
	if err != nil {
		t.Fatalf("cancellation is not an error, got %v", err)
	}
	if result.StopReason != models.Cancelled || len(result.Reviews) != 2 {
		t.Fatalf("got reason=%s reviews=%d", result.StopReason, len(result.Reviews))
	}
	if !f.closed {
		t.Fatalf("fetcher not closed")
	}
}

func TestControllerClosesFetcherOnFailure(t *testing.T) {
	f := &fakeFetcher{renderErr: ErrTimeout{Err: context.DeadlineExceeded}}
	c := NewController(testConfig(), f.open, parser.FlipkartSelectors(), dates.Fixed(testClock))

	result, err := c.Run(context.Background(), testURL, 3)
	var timeout ErrTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if result.StopReason != models.FetchFailed || !f.closed {
		t.Fatalf("reason=%s closed=%v", result.StopReason, f.closed)
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Fetcher = "static"
	cfg.Timeout = 2 * time.Second
	cfg.SettleDelay = 0
	return cfg
}

type fakeFetcher struct {
	pages     []string
	current   int
	renderErr error
	onAdvance func()
	closed    bool
}

func (f *fakeFetcher) open(context.Context) (Fetcher, error) {
	return f, nil
}

func (f *fakeFetcher) Load(ctx context.Context, url string) error {
	return ctx.Err()
}

func (f *fakeFetcher) Render(ctx context.Context) (*goquery.Document, error) {
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	if f.current >= len(f.pages) {
		return nil, ErrMarkerMissing
	}
	return goquery.NewDocumentFromReader(strings.NewReader(f.pages[f.current]))
}

func (f *fakeFetcher) Advance(ctx context.Context) error {
	if f.onAdvance != nil {
		f.onAdvance()
	}
	if f.current+1 >= len(f.pages) {
		return ErrNoNextPage
	}
	f.current++
	return nil
}

func (f *fakeFetcher) Close() error {
	f.closed = true
	return nil
}

func htmlResponder(body string) httpmock.Responder {
	return func(*http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(http.StatusOK, body)
		resp.Header.Set("Content-Type", "text/html")
		return resp, nil
	}
}

// buildReviewPage renders n review columns; next > 0 adds a link to that
// page number.
func buildReviewPage(n, next int) string {
	page := 1
	if next > 0 {
		page = next - 1
	}
	var b strings.Builder
	b.WriteString(`<html><body><div class="z9E0IG">`)
	b.WriteString(`<div class="_1G0WLw mpIySA"><span>Page 1 of 1,169</span></div>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<div class="col"><div class="XQDdHH">%d</div>`, 5-i%5)
		fmt.Fprintf(&b, `<div class="ZmyHeo"><div>Review %d.%d is great</div></div>`, page, i)
		fmt.Fprintf(&b, `<p class="_2NsDsF AwS1CA">Author %d.%d</p>`, page, i)
		fmt.Fprintf(&b, `<p class="_2NsDsF">%d days ago</p></div>`, i+1)
	}
	if next > 0 {
		fmt.Fprintf(&b, `<nav><a href="%s?page=%d"><span>Next</span></a></nav>`, testPath, next)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}
