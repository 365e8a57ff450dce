package openlibrary

import (
	"regexp"
	"strings"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	wikiLinkRe   = regexp.MustCompile(`\[\[([^|\]]*\|)?([^\]]*)\]\]`)
	mdLinkRe     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	sourceNoteRe = regexp.MustCompile(`\(\s*[Ss]ource[^)]*\)`)
	multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)
	multiNLRe    = regexp.MustCompile(`\n{3,}`)
)

// CleanDescription normalizes the free-form descriptions found in OL dumps:
// HTML tags and wiki links are stripped, markdown links reduced to their
// text, trailing "(source: ...)"" attributions removed, and whitespace
// collapsed. Paragraph breaks survive as single blank lines.
func CleanDescription(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = htmlTagRe.ReplaceAllString(s, "")
	s = wikiLinkRe.ReplaceAllString(s, "$2")
	s = mdLinkRe.ReplaceAllString(s, "$1")
	s = sourceNoteRe.ReplaceAllString(s, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = multiNLRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
