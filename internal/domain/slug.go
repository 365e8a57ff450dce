package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugLen caps slugs so they fit the indexed columns.
const maxSlugLen = 200

// asciiFold decomposes text (NFKD) and drops combining marks, turning
// "Café" into "Cafe". Characters with no ASCII decomposition are removed
// later by Slugify's filter.
var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Slugify derives the URL-safe unique key used for authors, books, genres
// and series: diacritics folded to ASCII, lowercased, anything outside
// [a-z0-9_] collapsed into single hyphens, trimmed, capped at 200 chars.
func Slugify(text string) string {
	if text == "" {
		return ""
	}

	folded, _, err := transform.String(asciiFold, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '\t' || r == '\n':
			pendingHyphen = true
		default:
			// Other punctuation is dropped without acting as a separator,
			// so "don't" becomes "dont", not "don-t".
		}
	}

	slug := b.String()
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	return slug
}
