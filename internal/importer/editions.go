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
	maxISBNs          = 20
	maxPublisherLen   = 500
	editionRecordType = "/type/edition"
)

// editionCandidate is the running best edition for one (work, language)
// pair. isbns accumulates the union across ALL editions of the pair, not
// just the winner's.
type editionCandidate struct {
	workID      string
	language    string
	score       int
	isbns       []string
	pageCount   *int
	publisher   *string
	format      *string
	externalIDs map[string]string
	coverURL    *string
	description *string
	series      *domain.SeriesInfo
}

// runEditions is Phase 4: fold the editions dump into one best candidate
// per (work, language), then merge candidates into existing rows or clone
// new language rows off the work's English row.
func (p *Pipeline) runEditions(ctx context.Context, path string) PhaseResult {
	r, err := dump.Open(path, editionRecordType, p.cfg.BatchSize)
	if err != nil {
		return PhaseResult{Err: err}
	}

	var res PhaseResult
	best := make(map[string]*editionCandidate)
	loggedAt := 0

	for batch := range r.Batches() {
		for _, raw := range batch {
			res.Processed++
			cand, ok := parseEdition(raw)
			if !ok {
				res.Skipped++
				continue
			}
			if _, known := p.bookMap[cand.workID]; !known {
				res.Skipped++
				continue
			}

			key := cand.workID + ":" + cand.language
			cur := best[key]
			switch {
			case cur == nil:
				best[key] = cand
			case cand.score > cur.score:
				// The new winner inherits the ISBN union gathered so far.
				cand.isbns = unionISBNs(cur.isbns, cand.isbns)
				best[key] = cand
			default:
				// Ties keep the earlier candidate; losers still contribute ISBNs.
				cur.isbns = unionISBNs(cur.isbns, cand.isbns)
			}
		}

		if res.Processed-loggedAt >= p.cfg.CommitInterval {
			loggedAt = res.Processed
			p.log.Info("editions progress",
				slog.Int("scanned", res.Processed),
				slog.Int("candidates", len(best)),
				slog.Int("skipped", res.Skipped),
			)
		}
	}
	if err := r.Err(); err != nil {
		return PhaseResult{Processed: res.Processed, Err: err}
	}

	p.log.Info("edition scan complete",
		slog.Int("scanned", res.Processed),
		slog.Int("candidates", len(best)),
	)

	return p.applyEditionCandidates(ctx, best, res)
}

// applyEditionCandidates resolves each surviving candidate against the book
// map: an existing row for the candidate's language is merged; otherwise a
// new language row is cloned from the work's English row; with no English
// row the candidate is dropped.
func (p *Pipeline) applyEditionCandidates(ctx context.Context, best map[string]*editionCandidate, res PhaseResult) PhaseResult {
	var merges []domain.EditionMerge
	var clones []domain.LanguageClone

	for _, cand := range best {
		rows := p.bookMap[cand.workID]

		var match, en *domain.BookMapEntry
		for i := range rows {
			if rows[i].Language == cand.language {
				match = &rows[i]
				break
			}
			if rows[i].Language == "en" {
				en = &rows[i]
			}
		}

		switch {
		case match != nil:
			merges = append(merges, domain.EditionMerge{
				BookID:      match.ID,
				ISBNs:       capISBNs(cand.isbns),
				PageCount:   cand.pageCount,
				Publisher:   cand.publisher,
				Format:      cand.format,
				ExternalIDs: cand.externalIDs,
				CoverURL:    cand.coverURL,
				Description: cand.description,
				Series:      cand.series,
			})
		case cand.language != "en" && en != nil:
			clones = append(clones, domain.LanguageClone{
				SourceBookID:  en.ID,
				OpenLibraryID: cand.workID,
				Language:      cand.language,
				ISBNs:         capISBNs(cand.isbns),
				PageCount:     cand.pageCount,
				Publisher:     cand.publisher,
				Format:        cand.format,
				ExternalIDs:   cand.externalIDs,
				CoverURL:      cand.coverURL,
				Description:   cand.description,
				Series:        cand.series,
			})
		default:
			res.Skipped++
		}
	}

	n, err := p.books.ApplyEditionMerges(ctx, merges)
	res.Applied = n
	if err != nil {
		res.Err = err
		return res
	}

	entries, err := p.books.CloneLanguageRows(ctx, clones)
	for i, entry := range entries {
		workID := clones[i].OpenLibraryID
		p.bookMap[workID] = append(p.bookMap[workID], entry)
	}
	res.Cloned = len(entries)
	if err != nil {
		res.Err = err
	}
	return res
}

// parseEdition normalizes one raw edition record into a scored candidate.
// Editions without a work reference are skipped.
func parseEdition(raw []byte) (*editionCandidate, bool) {
	var rec editionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	if len(rec.Works) == 0 {
		return nil, false
	}
	workID := openlibrary.OLID(refKey(rec.Works[0]))
	if workID == "" {
		return nil, false
	}

	cand := &editionCandidate{
		workID:      workID,
		language:    "en",
		externalIDs: stringIdentifiers(rec.Identifiers),
		coverURL:    openlibrary.CoverURL(rec.Covers),
		description: openlibrary.Description(rec.Description),
	}

	if len(rec.Languages) > 0 {
		if iso, ok := openlibrary.LanguageFromRef(rec.Languages[0]); ok {
			cand.language = iso
		}
	}

	cand.isbns = append(cand.isbns, strsOf(rec.ISBN10)...)
	cand.isbns = append(cand.isbns, strsOf(rec.ISBN13)...)

	if pages, ok := intOf(rec.NumberOfPages); ok {
		cand.pageCount = &pages
	}
	if publishers := strsOf(rec.Publishers); len(publishers) > 0 {
		publisher := truncate(publishers[0], maxPublisherLen)
		cand.publisher = &publisher
	}
	if format := strings.TrimSpace(strings.ToLower(rec.PhysicalFormat)); format != "" {
		cand.format = &format
	}
	if m := openlibrary.ParseSeries(strsOf(rec.Series)); m != nil {
		cand.series = &domain.SeriesInfo{Name: m.Name, Position: m.Position}
	}

	cand.score = scoreEdition(cand)
	return cand, true
}

// scoreEdition counts the populated fields among isbn, pages, publisher,
// cover, description, and physical format (0-6).
func scoreEdition(cand *editionCandidate) int {
	score := 0
	if len(cand.isbns) > 0 {
		score++
	}
	if cand.pageCount != nil {
		score++
	}
	if cand.publisher != nil {
		score++
	}
	if cand.coverURL != nil {
		score++
	}
	if cand.description != nil {
		score++
	}
	if cand.format != nil {
		score++
	}
	return score
}

// unionISBNs appends the elements of extra not already present in base,
// preserving first-seen order.
func unionISBNs(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	for _, isbn := range base {
		seen[isbn] = true
	}
	for _, isbn := range extra {
		if !seen[isbn] {
			seen[isbn] = true
			base = append(base, isbn)
		}
	}
	return base
}

func capISBNs(isbns []string) []string {
	if len(isbns) > maxISBNs {
		return isbns[:maxISBNs]
	}
	return isbns
}
