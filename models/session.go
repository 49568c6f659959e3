package models

import "time"

// StopReason says why the pagination loop ended.
type StopReason int

const (
	Continue StopReason = iota
	EndOfResults
	NoNextPage
	PageLimit
	Cancelled
	FetchFailed
)

func (r StopReason) String() string {
	switch r {
	case Continue:
		return "continue"
	case EndOfResults:
		return "end_of_results"
	case NoNextPage:
		return "no_next_page"
	case PageLimit:
		return "page_limit"
	case Cancelled:
		return "cancelled"
	case FetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

// ScrapeSession is the run-scoped state of one pagination loop.
type ScrapeSession struct {
	TargetURL    string
	Product      string
	PageLimit    int
	PagesVisited int
	Reviews      []Review
	TotalPages   PageCount
}

// NewScrapeSession starts an empty session for url.
func NewScrapeSession(url, product string, limit int) *ScrapeSession {
	return &ScrapeSession{
		TargetURL: url,
		Product:   product,
		PageLimit: limit,
	}
}

// Append records the reviews of one page.
func (s *ScrapeSession) Append(res PageResult) {
	s.Reviews = append(s.Reviews, res.Reviews...)
	if res.TotalPages != nil {
		s.TotalPages = Pages(*res.TotalPages)
	}
}

// ScrapeResult holds the overall result of a scraping run.
type ScrapeResult struct {
	Product      string
	Reviews      []Review
	TotalPages   PageCount
	PagesVisited int
	StopReason   StopReason
	// FailedPage is the 1-based page index that aborted the run, 0 otherwise.
	FailedPage int
	StartTime  time.Time
	EndTime    time.Time
	RetryCount int
}

// Dataset is the ordered, enriched collection handed to reporting.
type Dataset struct {
	Product    string
	Reviews    []Review
	TotalPages PageCount
	StopReason StopReason
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Reviews)
}
