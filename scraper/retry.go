package scraper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/config"
)

type retryManager struct {
	cfg     *config.Config
	metrics *Metrics

	mu           sync.Mutex
	totalRetries int
}

func newRetryManager(cfg *config.Config, metrics *Metrics) *retryManager {
	return &retryManager{cfg: cfg, metrics: metrics}
}

// Do runs op until it succeeds, MaxRetries is exhausted or ctx ends.
// Missing markers are retried like transport errors; cancellation is not.
func (rm *retryManager) Do(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !rm.retryable(ctx, err) || attempt >= rm.cfg.MaxRetries {
			return err
		}

		rm.mu.Lock()
		rm.totalRetries++
		rm.mu.Unlock()
		rm.metrics.IncRetries()

		delay := rm.backoff(attempt + 1)
		slog.Warn("retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
		if werr := sleepCtx(ctx, delay); werr != nil {
			return werr
		}
	}
}

func (rm *retryManager) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	var notFound ErrNotFound
	return !errors.As(err, &notFound)
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rm.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := rm.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}

// sleepCtx waits d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
