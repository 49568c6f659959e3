package textnorm

import (
	"fmt"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Nouns the dictionary reduces to an unrelated or non-word base.
var nounOverrides = map[string]string{
	"clothes": "clothes",
	"lenses":  "lens",
	"well":    "well",
}

var (
	dictOnce sync.Once
	dict     *golem.Lemmatizer
	dictErr  error
)

// englishDictionary loads the embedded English lemma dictionary once per
// process.
func englishDictionary() (*golem.Lemmatizer, error) {
	dictOnce.Do(func() {
		dict, dictErr = golem.New(en.New())
		if dictErr != nil {
			dictErr = fmt.Errorf("load english lemma dictionary: %w", dictErr)
		}
	})
	return dict, dictErr
}

// Lemmatizer reduces lowercase tokens to their dictionary base form.
// Results are memoised in a bounded cache.
type Lemmatizer struct {
	dict  *golem.Lemmatizer
	cache *lru.Cache[string, string]
}

// NewLemmatizer builds a lemmatizer caching up to size lookups. A
// non-positive size disables the cache.
func NewLemmatizer(size int) (*Lemmatizer, error) {
	d, err := englishDictionary()
	if err != nil {
		return nil, err
	}
	l := &Lemmatizer{dict: d}
	if size <= 0 {
		return l, nil
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	l.cache = cache
	return l, nil
}

// Lemmatize returns the base form of a lowercase token. Words missing from
// the dictionary are returned unchanged.
func (l *Lemmatizer) Lemmatize(word string) string {
	if l.cache == nil {
		return l.lookup(word)
	}
	if v, ok := l.cache.Get(word); ok {
		return v
	}
	v := l.lookup(word)
	l.cache.Add(word, v)
	return v
}

func (l *Lemmatizer) lookup(word string) string {
	if base, ok := nounOverrides[word]; ok {
		return base
	}
	return l.dict.LemmaLower(word)
}
