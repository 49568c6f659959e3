// Package models defines data structures for the review scraper.
package models

import "strconv"

// Sentiment is the discrete label assigned to a review.
type Sentiment string

const (
	Positive Sentiment = "Positive"
	Neutral  Sentiment = "Neutral"
	Negative Sentiment = "Negative"
)

// Review is one row of the dataset.
type Review struct {
	Product        string    `csv:"Product" json:"product"`
	Author         string    `csv:"Author" json:"author"`
	Rating         string    `csv:"Rating" json:"rating"`
	Text           string    `csv:"Review" json:"review"`
	RawDate        string    `csv:"-" json:"raw_date"`
	Date           string    `csv:"Date" json:"date"`
	NormalizedDate string    `csv:"date_review" json:"date_review"`
	CleanedText    string    `csv:"cleaned reviews" json:"cleaned_reviews"`
	CompoundScore  float64   `csv:"Compound Score" json:"compound_score"`
	Sentiment      Sentiment `csv:"Sentiment" json:"sentiment"`
}

// Enrichment holds the derived text and sentiment fields of a review.
// They are always computed and assigned as one unit.
type Enrichment struct {
	CleanedText   string
	CompoundScore float64
	Sentiment     Sentiment
}

// Enrich returns a copy of r carrying e.
func (r Review) Enrich(e Enrichment) Review {
	r.CleanedText = e.CleanedText
	r.CompoundScore = e.CompoundScore
	r.Sentiment = e.Sentiment
	return r
}

// PageCount is a best-effort total page count that may be unresolved.
type PageCount struct {
	Value    int
	Resolved bool
}

// Pages returns a resolved page count.
func Pages(n int) PageCount {
	return PageCount{Value: n, Resolved: true}
}

func (p PageCount) String() string {
	if !p.Resolved {
		return "unresolved"
	}
	return strconv.Itoa(p.Value)
}

// PageResult is what the extractor found on a single rendered page.
type PageResult struct {
	Reviews    []Review
	TotalPages *int
	// Dropped counts records discarded because the substreams had unequal lengths.
	Dropped int
}
