package scraper

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/aluiziolira/go-scrape-reviews/config"
)

// UnknownProduct labels reviews whose URL carries no product slug.
const UnknownProduct = "Unknown Product"

var (
	reviewURLPattern   = regexp.MustCompile(`^https://www\.flipkart\.com/.+/product-reviews/`)
	productSlugPattern = regexp.MustCompile(`flipkart\.com/([^/]+)/product-reviews`)
)

// ValidateTarget checks the URL shape and page limit of a run.
func ValidateTarget(targetURL string, pageLimit int) error {
	if !reviewURLPattern.MatchString(targetURL) {
		return &InvalidTargetError{URL: targetURL, Reason: "not a Flipkart product-review URL"}
	}
	if pageLimit < config.MinPages || pageLimit > config.MaxPages {
		return &InvalidTargetError{
			URL:    targetURL,
			Reason: fmt.Sprintf("page limit %d outside [%d, %d]", pageLimit, config.MinPages, config.MaxPages),
		}
	}
	return nil
}

// ProductName derives a display name from the URL slug, e.g.
// "apple-iphone-15-black-128-gb" becomes "Apple Iphone 15 Black 128 Gb".
func ProductName(targetURL string) string {
	m := productSlugPattern.FindStringSubmatch(targetURL)
	if m == nil {
		return UnknownProduct
	}
	return titleCase(strings.ReplaceAll(m[1], "-", " "))
}

// titleCase upper-cases a letter that follows a non-letter and lower-cases
// the rest, so "5g" becomes "5G".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
