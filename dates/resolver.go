// Package dates resolves scraped review dates to "Month, Year" periods.
//
// Relative strings such as "3 days ago" are resolved against a resolution
// time, so the same input yields different periods on different run dates.
// Months are approximated as 30 days.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Unknown is returned for inputs no rule recognises.
const Unknown = "Unknown"

// Layout is the normalized period format, e.g. "Oct, 2023".
const Layout = "Jan, 2006"

const daysPerMonth = 30

var (
	periodPattern    = regexp.MustCompile(`^[A-Za-z]+, \d{4}$`)
	daysAgoPattern   = regexp.MustCompile(`^(\d+)\s+days?\s+ago`)
	monthsAgoPattern = regexp.MustCompile(`^(\d+)\s+months?\s+ago`)
)

// Resolver maps raw date strings to periods relative to its clock.
type Resolver struct {
	now func() time.Time
}

// New builds a resolver. A nil clock means time.Now.
func New(clock func() time.Time) *Resolver {
	if clock == nil {
		clock = time.Now
	}
	return &Resolver{now: clock}
}

// Fixed builds a resolver pinned to at.
func Fixed(at time.Time) *Resolver {
	return New(func() time.Time { return at })
}

// Resolve normalizes raw against the resolver's clock.
func (r *Resolver) Resolve(raw string) string {
	now := time.Now
	if r != nil && r.now != nil {
		now = r.now
	}
	return ResolveAt(raw, now())
}

// ResolveAt normalizes raw using at as the resolution time. It never
// returns an empty string.
func ResolveAt(raw string, at time.Time) string {
	s := strings.TrimSpace(raw)

	if periodPattern.MatchString(s) {
		return s
	}
	if m := daysAgoPattern.FindStringSubmatch(s); m != nil {
		if n, ok := atoi(m[1]); ok {
			return format(at.AddDate(0, 0, -n))
		}
	}
	if m := monthsAgoPattern.FindStringSubmatch(s); m != nil {
		if n, ok := atoi(m[1]); ok {
			return format(at.AddDate(0, 0, -n*daysPerMonth))
		}
	}
	if strings.Contains(s, "month ago") {
		return format(at.AddDate(0, 0, -daysPerMonth))
	}
	if strings.Contains(s, "day ago") {
		return format(at.AddDate(0, 0, -1))
	}
	return Unknown
}

// Parse reads a resolved period back into the first day of its month.
// Full month names are accepted too. Unknown and malformed values report false.
func Parse(period string) (time.Time, bool) {
	s := strings.TrimSpace(period)
	if !periodPattern.MatchString(s) {
		return time.Time{}, false
	}
	for _, layout := range []string{Layout, "January, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func format(t time.Time) string {
	return t.Format(Layout)
}

// atoi rejects values large enough to overflow the day arithmetic.
func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n > 1_000_000 {
		return 0, false
	}
	return n, true
}
