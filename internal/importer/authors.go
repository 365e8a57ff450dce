package importer

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/JakubTuta/minsik-ingestion/internal/domain"
	"github.com/JakubTuta/minsik-ingestion/internal/dump"
	"github.com/JakubTuta/minsik-ingestion/internal/openlibrary"
)

const (
	maxAuthorNameLen  = 300
	maxAlternateNames = 20
	authorRecordType  = "/type/author"
)

// runAuthors is Phase 1: stream the authors dump, normalize records, dedup
// within each batch by slug, and upsert by slug on the commit interval.
func (p *Pipeline) runAuthors(ctx context.Context, path string) PhaseResult {
	r, err := dump.Open(path, authorRecordType, p.cfg.BatchSize)
	if err != nil {
		return PhaseResult{Err: err}
	}

	var res PhaseResult
	var pending []domain.Author
	flushedAt := 0

	flush := func() {
		if len(pending) == 0 {
			return
		}
		n, err := p.authors.UpsertBulk(ctx, pending)
		if err != nil {
			p.log.Warn("author flush failed",
				slog.Int("records", len(pending)),
				slog.String("error", err.Error()),
			)
			res.Errors += len(pending)
		} else {
			res.Applied += n
		}
		pending = pending[:0]
		flushedAt = res.Processed
	}

	for batch := range r.Batches() {
		parsed := make([]domain.Author, 0, len(batch))
		for _, raw := range batch {
			res.Processed++
			a, ok := parseAuthor(raw)
			if !ok {
				res.Skipped++
				continue
			}
			parsed = append(parsed, a)
		}

		pending = append(pending, dedupeBySlug(parsed)...)

		if res.Processed-flushedAt >= p.cfg.CommitInterval {
			flush()
			p.log.Info("authors progress",
				slog.Int("processed", res.Processed),
				slog.Int("applied", res.Applied),
				slog.Int("skipped", res.Skipped),
			)
		}
	}
	if err := r.Err(); err != nil {
		return PhaseResult{Processed: res.Processed, Err: err}
	}

	flush()
	return res
}

// parseAuthor normalizes one raw author record. Records without a usable
// name are skipped.
func parseAuthor(raw []byte) (domain.Author, bool) {
	var rec authorRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Author{}, false
	}

	name := truncate(strings.TrimSpace(rec.Name), maxAuthorNameLen)
	if name == "" {
		return domain.Author{}, false
	}
	slug := domain.Slugify(name)
	if slug == "" {
		return domain.Author{}, false
	}

	a := domain.Author{
		Name:      name,
		Slug:      slug,
		Bio:       openlibrary.Description(rec.Bio),
		PhotoURL:  openlibrary.PhotoURL(intsOf(rec.Photos)),
		RemoteIDs: openlibrary.RemoteIDs(rec.RemoteIDs),
	}

	if t, ok := openlibrary.ParseDate(rec.BirthDate); ok {
		a.BirthDate = &t
	}
	if t, ok := openlibrary.ParseDate(rec.DeathDate); ok {
		a.DeathDate = &t
	}

	if id := openlibrary.OLID(rec.Key); id != "" {
		a.OpenLibraryID = &id
	}
	if wd := a.RemoteIDs["wikidata"]; wd != "" {
		a.WikidataID = &wd
	}
	if strings.HasPrefix(rec.Wikipedia, "http") {
		url := rec.Wikipedia
		a.WikipediaURL = &url
	}

	alt := strsOf(rec.AlternateNames)
	if len(alt) > maxAlternateNames {
		alt = alt[:maxAlternateNames]
	}
	a.AlternateNames = alt

	return a, true
}

// dedupeBySlug keeps, per slug, only the last occurrence, at its original
// relative position. Earlier duplicates are discarded whole; their fields
// are not merged into the survivor.
func dedupeBySlug(authors []domain.Author) []domain.Author {
	last := make(map[string]int, len(authors))
	for i, a := range authors {
		last[a.Slug] = i
	}
	if len(last) == len(authors) {
		return authors
	}

	out := authors[:0]
	for i, a := range authors {
		if last[a.Slug] == i {
			out = append(out, a)
		}
	}
	return out
}
