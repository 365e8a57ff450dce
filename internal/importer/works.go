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
	maxTitleLen     = 500
	maxGenreNameLen = 100
	maxGenreSlugLen = 150
	maxGenreTags    = 5
	workRecordType  = "/type/work"
)

// runWorks is Phase 3: stream the works dump, resolve author references
// through the author map, and insert-or-merge every work as its "en"
// baseline row. Unresolved author references are dropped, not fatal.
func (p *Pipeline) runWorks(ctx context.Context, path string, authorMap map[string]domain.AuthorMapEntry) PhaseResult {
	r, err := dump.Open(path, workRecordType, p.cfg.BatchSize)
	if err != nil {
		return PhaseResult{Err: err}
	}

	var res PhaseResult
	var pending []domain.BookInput
	flushedAt := 0

	flush := func() {
		if len(pending) == 0 {
			return
		}
		mr, err := p.books.InsertOrMerge(ctx, pending)
		if err != nil {
			p.log.Warn("work flush failed",
				slog.Int("records", len(pending)),
				slog.String("error", err.Error()),
			)
			res.Errors += len(pending)
		} else {
			res.Applied += mr.Successful
			res.Errors += mr.Failed
		}
		pending = pending[:0]
		flushedAt = res.Processed
	}

	for batch := range r.Batches() {
		for _, raw := range batch {
			res.Processed++
			in, ok := parseWork(raw, authorMap)
			if !ok {
				res.Skipped++
				continue
			}
			pending = append(pending, in)
		}

		if res.Processed-flushedAt >= p.cfg.CommitInterval {
			flush()
			p.log.Info("works progress",
				slog.Int("processed", res.Processed),
				slog.Int("applied", res.Applied),
				slog.Int("errors", res.Errors),
			)
		}
	}
	if err := r.Err(); err != nil {
		return PhaseResult{Processed: res.Processed, Err: err}
	}

	flush()
	return res
}

// parseWork normalizes one raw work record into a BookInput. Works without
// a usable title are skipped; author references that do not resolve through
// the author map are silently dropped.
func parseWork(raw []byte, authorMap map[string]domain.AuthorMapEntry) (domain.BookInput, bool) {
	var rec workRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.BookInput{}, false
	}

	title := truncate(strings.TrimSpace(rec.Title), maxTitleLen)
	if title == "" {
		return domain.BookInput{}, false
	}
	slug := domain.Slugify(title)
	if slug == "" {
		return domain.BookInput{}, false
	}

	in := domain.BookInput{
		Title:         title,
		Language:      "en",
		Slug:          slug,
		Description:   openlibrary.Description(rec.Description),
		CoverURL:      openlibrary.CoverURL(rec.Covers),
		OpenLibraryID: openlibrary.OLID(rec.Key),
	}

	if year, ok := openlibrary.ParseYear(rec.FirstPublishDate); ok {
		in.PublicationYear = &year
	}

	for _, ref := range rec.Authors {
		id := openlibrary.OLID(refKey(ref.Author))
		if id == "" {
			continue
		}
		entry, ok := authorMap[id]
		if !ok {
			continue
		}
		in.Authors = append(in.Authors, domain.AuthorTag{
			Name:          entry.Name,
			Slug:          entry.Slug,
			OpenLibraryID: id,
		})
	}

	subjects := strsOf(rec.Subjects)
	if len(subjects) > maxGenreTags {
		subjects = subjects[:maxGenreTags]
	}
	for _, subject := range subjects {
		name := truncate(strings.ToLower(subject), maxGenreNameLen)
		genreSlug := truncate(domain.Slugify(name), maxGenreSlugLen)
		if genreSlug == "" {
			continue
		}
		in.Genres = append(in.Genres, domain.GenreTag{Name: name, Slug: genreSlug})
	}

	return in, true
}
