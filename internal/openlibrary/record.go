package openlibrary

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	coverURLFormat = "https://covers.openlibrary.org/b/id/%d-L.jpg"
	photoURLFormat = "https://covers.openlibrary.org/a/id/%d-L.jpg"
)

// TextValue unwraps the two shapes OL uses for rich-text fields: a bare
// string, or {"type": "/type/text", "value": "..."}. Returns "" otherwise.
func TextValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Value
	}
	return ""
}

// Description unwraps and cleans a description/bio field.
// Returns nil when nothing usable remains.
func Description(raw json.RawMessage) *string {
	cleaned := CleanDescription(TextValue(raw))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// CoverURL returns the large-cover URL for the first positive cover id.
// OL uses -1 as a tombstone for removed covers; those are skipped.
func CoverURL(covers []int) *string {
	for _, id := range covers {
		if id > 0 {
			u := fmt.Sprintf(coverURLFormat, id)
			return &u
		}
	}
	return nil
}

// PhotoURL returns the author-photo URL for the first positive photo id.
func PhotoURL(photos []int) *string {
	for _, id := range photos {
		if id > 0 {
			u := fmt.Sprintf(photoURLFormat, id)
			return &u
		}
	}
	return nil
}

// OLID strips the key prefix from an Open Library key:
// "/authors/OL23919A" -> "OL23919A", "/works/OL45883W" -> "OL45883W".
func OLID(key string) string {
	if idx := strings.LastIndexByte(key, '/'); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

// RemoteIDs filters an author's remote_ids map down to non-empty string values.
func RemoteIDs(raw map[string]any) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	ids := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			ids[k] = s
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}

// seriesRe matches "Name #3.5" and "Name, 3"; the position part is optional.
var seriesRe = regexp.MustCompile(`^(.+?)(?:\s*[#,]\s*(\d+(?:\.\d+)?))?$`)

// ParseSeries extracts a series membership from the free-form series strings
// on an edition record. The first parseable string wins.
func ParseSeries(series []string) *SeriesMembership {
	for _, s := range series {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		m := seriesRe.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		membership := &SeriesMembership{Name: strings.TrimSpace(m[1])}
		if m[2] != "" {
			if pos, err := strconv.ParseFloat(m[2], 64); err == nil {
				membership.Position = &pos
			}
		}
		return membership
	}
	return nil
}

// SeriesMembership is a parsed series string: name plus optional position.
type SeriesMembership struct {
	Name     string
	Position *float64
}
