package openlibrary

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order against the cleaned date string.
// OL dates are free text typed by librarians; these cover the common shapes.
var dateLayouts = []string{
	"2006-01-02",
	"2 January 2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2006",
	"Jan 2006",
}

// circaRe strips approximation markers: "c. 1819", "ca. 1819", "circa 1819".
var circaRe = regexp.MustCompile(`(?i)^(?:c\.?|ca\.?|circa)\s+`)

// yearRe finds a standalone 3-4 digit year anywhere in the string.
var yearRe = regexp.MustCompile(`\b(\d{3,4})\b`)

// ParseDate parses a free-text date from a dump record. Exact layouts are
// tried first; otherwise the first plausible year in the string is used with
// January 1. Returns (zero, false) when no year can be recovered.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	s = circaRe.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, "?")
	s = strings.TrimSpace(s)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	if m := yearRe.FindStringSubmatch(s); m != nil {
		year, err := strconv.Atoi(m[1])
		if err == nil && year >= 100 && year <= time.Now().Year()+1 {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
	}

	return time.Time{}, false
}

// ParseYear returns just the year of a free-text date.
func ParseYear(s string) (int, bool) {
	t, ok := ParseDate(s)
	if !ok {
		return 0, false
	}
	return t.Year(), true
}
