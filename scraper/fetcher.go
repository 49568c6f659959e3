package scraper

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher drives one review listing through its pages. Implementations hold
// a single navigation session and are not safe for concurrent use.
type Fetcher interface {
	// Load navigates to the first page of a listing.
	Load(ctx context.Context, url string) error
	// Render waits for review blocks to appear and returns the current page.
	// It returns an error wrapping ErrMarkerMissing when they never do.
	Render(ctx context.Context) (*goquery.Document, error)
	// Advance activates the "next" control. It returns ErrNoNextPage when
	// the current page has none.
	Advance(ctx context.Context) error
	Close() error
}

// Opener acquires a Fetcher. The controller calls it only after the target
// has been validated and closes the result when the run ends.
type Opener func(ctx context.Context) (Fetcher, error)
