// Package pipeline enriches scraped reviews into an ordered dataset and
// exports it.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aluiziolira/go-scrape-reviews/dates"
	"github.com/aluiziolira/go-scrape-reviews/models"
)

var (
	// ErrNoDataset is returned when exporting a nil dataset.
	ErrNoDataset = errors.New("pipeline: no dataset")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(reviews []models.Review) error
	Close() error
	Validate() error
}

// Normalizer cleans review text.
type Normalizer interface {
	Clean(text string) string
}

// Scorer assigns a compound score and label to cleaned text.
type Scorer interface {
	Score(cleaned string) (float64, models.Sentiment)
}

// DateResolver maps a period string to its normalized form.
type DateResolver interface {
	Resolve(raw string) string
}

// Observer is notified of every enriched review.
type Observer func(label models.Sentiment, compound float64)

// Pipeline runs clean, score and the second date pass over each record.
type Pipeline struct {
	normalizer Normalizer
	scorer     Scorer
	dates      DateResolver
	observer   Observer
	batchSize  int

	metrics metrics
}

// NewPipeline wires the enrichment stages.
func NewPipeline(n Normalizer, s Scorer, d DateResolver) *Pipeline {
	return &Pipeline{
		normalizer: n,
		scorer:     s,
		dates:      d,
		batchSize:  64,
		metrics:    newMetrics(),
	}
}

// WithObserver registers fn to receive every label and score.
func (p *Pipeline) WithObserver(fn Observer) *Pipeline {
	p.observer = fn
	return p
}

// Enrich returns r with its cleaned text, sentiment and normalized date set.
func (p *Pipeline) Enrich(r models.Review) models.Review {
	cleaned := p.normalizer.Clean(r.Text)
	score, label := p.scorer.Score(cleaned)
	r = r.Enrich(models.Enrichment{
		CleanedText:   cleaned,
		CompoundScore: score,
		Sentiment:     label,
	})
	r.NormalizedDate = p.dates.Resolve(r.Date)

	p.metrics.add(label, r.NormalizedDate == dates.Unknown)
	if p.observer != nil {
		p.observer(label, score)
	}
	return r
}

// Build enriches the reviews of res in order and sorts them by period.
func (p *Pipeline) Build(res *models.ScrapeResult) *models.Dataset {
	if res == nil {
		return &models.Dataset{}
	}

	reviews := make([]models.Review, len(res.Reviews))
	for i, r := range res.Reviews {
		reviews[i] = p.Enrich(r)
	}
	SortByPeriod(reviews)

	slog.Debug("dataset built",
		slog.Int("reviews", len(reviews)),
		slog.String("total_pages", res.TotalPages.String()),
	)
	return &models.Dataset{
		Product:    res.Product,
		Reviews:    reviews,
		TotalPages: res.TotalPages,
		StopReason: res.StopReason,
	}
}

// SortByPeriod orders reviews by normalized period ascending. Records whose
// period cannot be parsed keep their relative order after all others.
func SortByPeriod(reviews []models.Review) {
	type key struct {
		unix int64
		ok   bool
	}
	keys := make(map[string]key, 8)
	lookup := func(period string) key {
		if k, ok := keys[period]; ok {
			return k
		}
		t, ok := dates.Parse(period)
		k := key{unix: t.Unix(), ok: ok}
		keys[period] = k
		return k
	}

	sort.SliceStable(reviews, func(i, j int) bool {
		a, b := lookup(reviews[i].NormalizedDate), lookup(reviews[j].NormalizedDate)
		if a.ok != b.ok {
			return a.ok
		}
		return a.ok && a.unix < b.unix
	})
}

// Export writes ds to w in batches.
func (p *Pipeline) Export(ds *models.Dataset, w OutputWriter) error {
	if ds == nil {
		return ErrNoDataset
	}
	size := p.batchSize
	if size <= 0 {
		size = len(ds.Reviews)
	}
	for start := 0; start < len(ds.Reviews); start += size {
		end := min(start+size, len(ds.Reviews))
		if err := w.Write(ds.Reviews[start:end]); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
	}
	return nil
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

type metrics struct {
	mu           sync.Mutex
	processed    int64
	unknownDates int64
	labels       map[models.Sentiment]int
}

func newMetrics() metrics {
	return metrics{
		labels: make(map[models.Sentiment]int),
	}
}

func (m *metrics) add(label models.Sentiment, unknownDate bool) {
	m.mu.Lock()
	m.processed++
	m.labels[label]++
	if unknownDate {
		m.unknownDates++
	}
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	labels := make(map[string]int, len(m.labels))
	for k, v := range m.labels {
		labels[string(k)] = v
	}

	return map[string]interface{}{
		"processed_reviews": m.processed,
		"unknown_dates":     m.unknownDates,
		"sentiment":         labels,
	}
}
