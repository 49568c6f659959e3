package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry          *prometheus.Registry
	PagesTotal        *prometheus.CounterVec
	PageDuration      prometheus.Histogram
	ReviewsTotal      prometheus.Counter
	DroppedTotal      prometheus.Counter
	RetriesTotal      prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
	StopsTotal        *prometheus.CounterVec
	SentimentTotal    *prometheus.CounterVec
	CompoundHistogram prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_pages_total",
			Help: "Review pages processed, by outcome.",
		},
		[]string{"outcome"},
	)
	pageDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reviews_page_render_seconds",
			Help:    "Time spent rendering and extracting a review page.",
			Buckets: prometheus.DefBuckets,
		},
	)
	reviews := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reviews_extracted_total",
			Help: "Total number of reviews extracted.",
		},
	)
	dropped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reviews_dropped_total",
			Help: "Reviews discarded because page substreams had unequal lengths.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reviews_retries_total",
			Help: "Total number of page retry attempts.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_errors_total",
			Help: "Total number of page errors by type.",
		},
		[]string{"error_type"},
	)
	stops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_runs_total",
			Help: "Completed scrape runs by stop reason.",
		},
		[]string{"reason"},
	)
	sentiment := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_sentiment_total",
			Help: "Enriched reviews by sentiment label.",
		},
		[]string{"label"},
	)
	compound := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reviews_compound_score",
			Help:    "Distribution of compound sentiment scores.",
			Buckets: prometheus.LinearBuckets(-1, 0.25, 9),
		},
	)

	registry.MustRegister(pages, pageDuration, reviews, dropped, retries, errorsTotal, stops, sentiment, compound)

	return &Metrics{
		Registry:          registry,
		PagesTotal:        pages,
		PageDuration:      pageDuration,
		ReviewsTotal:      reviews,
		DroppedTotal:      dropped,
		RetriesTotal:      retries,
		ErrorsTotal:       errorsTotal,
		StopsTotal:        stops,
		SentimentTotal:    sentiment,
		CompoundHistogram: compound,
	}
}

// IncPage increments the pages counter for an outcome.
func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records a page render duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.PageDuration.Observe(d.Seconds())
}

// AddReviews counts extracted and dropped reviews of one page.
func (m *Metrics) AddReviews(extracted, dropped int) {
	if m == nil {
		return
	}
	m.ReviewsTotal.Add(float64(extracted))
	m.DroppedTotal.Add(float64(dropped))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncStop records the stop reason of a finished run.
func (m *Metrics) IncStop(reason models.StopReason) {
	if m == nil {
		return
	}
	m.StopsTotal.WithLabelValues(reason.String()).Inc()
}

// ObserveSentiment records the label and score of an enriched review.
func (m *Metrics) ObserveSentiment(label models.Sentiment, compound float64) {
	if m == nil {
		return
	}
	m.SentimentTotal.WithLabelValues(string(label)).Inc()
	m.CompoundHistogram.Observe(compound)
}
