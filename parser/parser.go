// Package parser extracts review records from rendered review-listing pages.
package parser

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// WrapWidth is the column width review bodies are wrapped to.
const WrapWidth = 50

// Selectors are the CSS selectors of one review-listing layout.
type Selectors struct {
	// Marker is present once review blocks have rendered.
	Marker     string
	Author     string
	Rating     string
	Body       string
	Date       string
	PageCount  string
	NextButton string
}

// FlipkartSelectors returns the selectors for Flipkart product-review pages.
func FlipkartSelectors() Selectors {
	return Selectors{
		Marker:     ".z9E0IG",
		Author:     "._2NsDsF.AwS1CA",
		Rating:     ".XQDdHH",
		Body:       ".ZmyHeo",
		Date:       "p._2NsDsF:not(.AwS1CA)",
		PageCount:  "._1G0WLw.mpIySA",
		NextButton: "Next",
	}
}

// HasMarker reports whether doc has rendered its review blocks.
func (s Selectors) HasMarker(doc *goquery.Document) bool {
	return doc.Find(s.Marker).Length() > 0
}

// DateResolver produces a first-pass period for a raw date string.
type DateResolver interface {
	Resolve(raw string) string
}

// Extractor reads review records from a rendered page.
type Extractor struct {
	selectors Selectors
	dates     DateResolver
	product   string
}

// NewExtractor builds an extractor that stamps product on every record.
func NewExtractor(sel Selectors, dates DateResolver, product string) *Extractor {
	return &Extractor{selectors: sel, dates: dates, product: product}
}

// Extract reads the author, rating, body and date substreams of doc and
// zips them into reviews. Streams of unequal length are truncated to the
// shortest; the discarded count is reported in PageResult.Dropped.
func (x *Extractor) Extract(doc *goquery.Document) models.PageResult {
	authors := texts(doc.Find(x.selectors.Author))
	ratings := texts(doc.Find(x.selectors.Rating))
	bodies := texts(doc.Find(x.selectors.Body))
	rawDates := texts(doc.Find(x.selectors.Date))

	res := models.PageResult{TotalPages: x.totalPages(doc)}
	if len(bodies) == 0 {
		return res
	}

	n, dropped := ZipShortest(len(authors), len(ratings), len(bodies), len(rawDates))
	if dropped > 0 {
		slog.Debug("review substreams unequal, truncating",
			slog.Int("authors", len(authors)),
			slog.Int("ratings", len(ratings)),
			slog.Int("bodies", len(bodies)),
			slog.Int("dates", len(rawDates)),
			slog.Int("kept", n),
		)
	}

	res.Dropped = dropped
	res.Reviews = make([]models.Review, 0, n)
	for i := 0; i < n; i++ {
		res.Reviews = append(res.Reviews, models.Review{
			Product: x.product,
			Author:  authors[i],
			Rating:  ratings[i],
			Text:    Wrap(bodies[i], WrapWidth),
			RawDate: rawDates[i],
			Date:    x.dates.Resolve(rawDates[i]),
		})
	}
	return res
}

// ZipShortest returns the common prefix length of parallel streams with
// the given lengths and how many records the longest stream loses.
func ZipShortest(lengths ...int) (n, dropped int) {
	if len(lengths) == 0 {
		return 0, 0
	}
	n, longest := lengths[0], lengths[0]
	for _, l := range lengths[1:] {
		if l < n {
			n = l
		}
		if l > longest {
			longest = l
		}
	}
	return n, longest - n
}

var pageCountPattern = regexp.MustCompile(`of\s+([\d,]+)`)

func (x *Extractor) totalPages(doc *goquery.Document) *int {
	if x.selectors.PageCount == "" {
		return nil
	}
	sel := doc.Find(x.selectors.PageCount).First()
	if sel.Length() == 0 {
		return nil
	}
	return ParseTotalPages(sel.Text())
}

// ParseTotalPages reads N from an indicator such as "Page 1 of 1,169".
func ParseTotalPages(text string) *int {
	m := pageCountPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

func texts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}
