// Package report summarises an enriched review dataset as terminal tables.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aluiziolira/go-scrape-reviews/dates"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/textnorm"
)

// Labels is the display order of sentiment labels.
var Labels = []models.Sentiment{models.Positive, models.Neutral, models.Negative}

// LabelCount is the share of one sentiment label.
type LabelCount struct {
	Label   models.Sentiment
	Count   int
	Percent float64
}

// WordCount is a token frequency.
type WordCount struct {
	Word  string
	Count int
}

// MonthTrend aggregates the reviews of one period.
type MonthTrend struct {
	Period       string
	Counts       map[models.Sentiment]int
	MeanCompound float64
}

// Summary is the reporting view of a dataset.
type Summary struct {
	Product    string
	Total      int
	TotalPages models.PageCount
	StopReason models.StopReason
	Labels     []LabelCount
	TopWords   map[models.Sentiment][]WordCount
	Trend      []MonthTrend
}

// Summarize computes label shares, the topN cleaned tokens per label and a
// per-period trend. Trend periods follow dataset order; "Unknown" is kept.
func Summarize(ds *models.Dataset, topN int) Summary {
	s := Summary{TopWords: make(map[models.Sentiment][]WordCount, len(Labels))}
	if ds == nil {
		return s
	}
	s.Product = ds.Product
	s.Total = ds.Len()
	s.TotalPages = ds.TotalPages
	s.StopReason = ds.StopReason

	counts := make(map[models.Sentiment]int, len(Labels))
	words := make(map[models.Sentiment]map[string]int, len(Labels))
	trendIdx := make(map[string]int)
	sums := make([]float64, 0)

	for _, r := range ds.Reviews {
		counts[r.Sentiment]++

		if words[r.Sentiment] == nil {
			words[r.Sentiment] = make(map[string]int)
		}
		for _, tok := range textnorm.Tokens(r.CleanedText) {
			words[r.Sentiment][tok]++
		}

		period := r.NormalizedDate
		if period == "" {
			period = dates.Unknown
		}
		i, ok := trendIdx[period]
		if !ok {
			i = len(s.Trend)
			trendIdx[period] = i
			s.Trend = append(s.Trend, MonthTrend{Period: period, Counts: make(map[models.Sentiment]int, len(Labels))})
			sums = append(sums, 0)
		}
		s.Trend[i].Counts[r.Sentiment]++
		sums[i] += r.CompoundScore
	}

	for i := range s.Trend {
		n := 0
		for _, c := range s.Trend[i].Counts {
			n += c
		}
		s.Trend[i].MeanCompound = round4(sums[i] / float64(n))
	}

	for _, label := range Labels {
		lc := LabelCount{Label: label, Count: counts[label]}
		if s.Total > 0 {
			lc.Percent = math.Round(float64(lc.Count)/float64(s.Total)*1000) / 10
		}
		s.Labels = append(s.Labels, lc)
		s.TopWords[label] = topWords(words[label], topN)
	}
	return s
}

func topWords(freq map[string]int, n int) []WordCount {
	out := make([]WordCount, 0, len(freq))
	for w, c := range freq {
		out = append(out, WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

// Render writes the summary tables to w.
func Render(w io.Writer, s Summary) {
	fmt.Fprintf(w, "Product: %s\n", s.Product)
	fmt.Fprintf(w, "total_review_pages: %s\n", s.TotalPages)
	fmt.Fprintf(w, "Reviews: %d (stopped: %s)\n", s.Total, s.StopReason)

	dist := newTable(w)
	dist.SetTitle("Sentiment distribution")
	dist.AppendHeader(table.Row{"Sentiment", "Reviews", "Share"})
	for _, lc := range s.Labels {
		dist.AppendRow(table.Row{lc.Label, lc.Count, fmt.Sprintf("%.1f%%", lc.Percent)})
	}
	dist.AppendFooter(table.Row{"Total", s.Total, ""})
	dist.Render()

	top := newTable(w)
	top.SetTitle("Top words")
	top.AppendHeader(table.Row{"Sentiment", "Word", "Count"})
	for _, label := range Labels {
		for _, wc := range s.TopWords[label] {
			top.AppendRow(table.Row{label, wc.Word, wc.Count})
		}
		top.AppendSeparator()
	}
	top.Render()

	trend := newTable(w)
	trend.SetTitle("Monthly trend")
	trend.AppendHeader(table.Row{"Period", "Positive", "Neutral", "Negative", "Mean compound"})
	for _, m := range s.Trend {
		trend.AppendRow(table.Row{
			m.Period,
			m.Counts[models.Positive],
			m.Counts[models.Neutral],
			m.Counts[models.Negative],
			fmt.Sprintf("%.4f", m.MeanCompound),
		})
	}
	trend.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}
