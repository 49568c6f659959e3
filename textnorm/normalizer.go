// Package textnorm cleans raw review text into space-joined base-form tokens.
package textnorm

import (
	"regexp"
	"strings"
)

// DefaultCacheSize bounds the lemma cache of a default Normalizer.
const DefaultCacheSize = 4096

var nonAlpha = regexp.MustCompile(`[^A-Za-z]+`)

// Normalizer runs the cleaning pipeline: strip non-letters, lowercase,
// tokenize, drop stop words, lemmatize, rejoin.
type Normalizer struct {
	lemmatizer *Lemmatizer
}

// New builds a normalizer whose lemma cache holds cacheSize entries.
func New(cacheSize int) (*Normalizer, error) {
	lem, err := NewLemmatizer(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Normalizer{lemmatizer: lem}, nil
}

// Clean returns the normalized token string for text. Empty input gives
// empty output.
func (n *Normalizer) Clean(text string) string {
	if text == "" {
		return ""
	}

	lowered := strings.ToLower(nonAlpha.ReplaceAllString(text, " "))
	tokens := strings.Fields(lowered)

	kept := tokens[:0]
	for _, tok := range tokens {
		if IsStopword(tok) {
			continue
		}
		kept = append(kept, n.lemmatizer.Lemmatize(tok))
	}
	return strings.Join(kept, " ")
}

// Tokens splits a cleaned string back into tokens.
func Tokens(cleaned string) []string {
	return strings.Fields(cleaned)
}
