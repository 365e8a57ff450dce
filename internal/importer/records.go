package importer

import (
	"encoding/json"
	"unicode/utf8"
)

// Dump record shapes. Fields that real dump lines carry in more than one
// form (bare strings vs. {"key": ...} objects, ints that are sometimes
// garbage) are typed loosely and normalized by the helpers below, so one
// odd field does not discard the whole record.

type authorRecord struct {
	Key            string          `json:"key"`
	Name           string          `json:"name"`
	Bio            json.RawMessage `json:"bio"`
	BirthDate      string          `json:"birth_date"`
	DeathDate      string          `json:"death_date"`
	Photos         []any           `json:"photos"`
	RemoteIDs      map[string]any  `json:"remote_ids"`
	Wikipedia      string          `json:"wikipedia"`
	AlternateNames []any           `json:"alternate_names"`
}

type workRecord struct {
	Key              string          `json:"key"`
	Title            string          `json:"title"`
	Authors          []workAuthorRef `json:"authors"`
	Subjects         []any           `json:"subjects"`
	Description      json.RawMessage `json:"description"`
	FirstPublishDate string          `json:"first_publish_date"`
	Covers           []int           `json:"covers"`
}

type workAuthorRef struct {
	Author json.RawMessage `json:"author"`
}

type editionRecord struct {
	Key            string            `json:"key"`
	Works          []json.RawMessage `json:"works"`
	Languages      []json.RawMessage `json:"languages"`
	ISBN10         []any             `json:"isbn_10"`
	ISBN13         []any             `json:"isbn_13"`
	NumberOfPages  any               `json:"number_of_pages"`
	Publishers     []any             `json:"publishers"`
	Covers         []int             `json:"covers"`
	PhysicalFormat string            `json:"physical_format"`
	Description    json.RawMessage   `json:"description"`
	Identifiers    map[string]any    `json:"identifiers"`
	Series         []any             `json:"series"`
}

// refKey extracts an OL key from a reference that is either a bare string
// ("/authors/OL1A") or an object ({"key": "/authors/OL1A"}).
func refKey(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Key != "" {
		return obj.Key
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// strsOf keeps the non-empty string elements of a loosely-typed JSON array.
func strsOf(vals []any) []string {
	var out []string
	for _, v := range vals {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// intsOf keeps the integral numeric elements of a loosely-typed JSON array.
func intsOf(vals []any) []int {
	var out []int
	for _, v := range vals {
		if f, ok := v.(float64); ok && f == float64(int(f)) {
			out = append(out, int(f))
		}
	}
	return out
}

// intOf converts a loosely-typed JSON value to a positive int, if it is one.
func intOf(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) || f <= 0 {
		return 0, false
	}
	return int(f), true
}

// stringIdentifiers flattens an edition's identifiers map
// ({"goodreads": ["123", ...]}) to its first string value per scheme.
func stringIdentifiers(raw map[string]any) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	ids := make(map[string]string, len(raw))
	for scheme, vals := range raw {
		list, ok := vals.([]any)
		if !ok || len(list) == 0 {
			continue
		}
		if s, ok := list[0].(string); ok && s != "" {
			ids[scheme] = s
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}

// truncate caps s at max bytes without splitting a multi-byte rune: the
// cut backs up over continuation bytes so the result stays valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
