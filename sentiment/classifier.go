// Package sentiment scores cleaned review text with the VADER analyzer and
// applies the business labelling to its compound score.
package sentiment

import (
	"math"

	"github.com/jonreiter/govader"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// Label thresholds on the compound score. Everything from zero up to but
// excluding PositiveThreshold is Neutral, while any negative score is
// Negative.
const (
	PositiveThreshold = 0.5
	NegativeThreshold = 0.0
)

// Label maps a compound score to a sentiment label.
func Label(compound float64) models.Sentiment {
	switch {
	case compound >= PositiveThreshold:
		return models.Positive
	case compound < NegativeThreshold:
		return models.Negative
	default:
		return models.Neutral
	}
}

// Classifier labels cleaned review text.
type Classifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewClassifier builds a classifier over analyzer. A nil analyzer loads
// the full VADER lexicon.
func NewClassifier(analyzer *govader.SentimentIntensityAnalyzer) *Classifier {
	if analyzer == nil {
		analyzer = govader.NewSentimentIntensityAnalyzer()
	}
	return &Classifier{analyzer: analyzer}
}

// PolarityScores returns the VADER proportions and compound score of text.
func (c *Classifier) PolarityScores(text string) govader.Sentiment {
	return c.analyzer.PolarityScores(text)
}

// Score returns the compound score of cleaned, rounded to four decimals,
// and its label.
func (c *Classifier) Score(cleaned string) (float64, models.Sentiment) {
	compound := math.Round(c.analyzer.PolarityScores(cleaned).Compound*1e4) / 1e4
	return compound, Label(compound)
}
