package importer

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/JakubTuta/minsik-ingestion/internal/domain"
	"github.com/JakubTuta/minsik-ingestion/internal/dump"
)

const (
	maxNationalityLen = 200
	maxBirthPlaceLen  = 500
	maxURLLen         = 1000

	nationalityProperty = "P27"
	birthPlaceProperty  = "P19"
)

// bareQIDRe matches claim values that are raw entity ids rather than labels.
var bareQIDRe = regexp.MustCompile(`^Q\d+$`)

type wikidataEntity struct {
	Claims    map[string][]json.RawMessage `json:"claims"`
	Sitelinks map[string]struct {
		Title string `json:"title"`
	} `json:"sitelinks"`
}

// runWikidata is Phase 2: scan the QID<TAB>entity-JSON dump and fill author
// nationality, birth place, and Wikipedia URL where still null, matched by
// wikidata id. No rows are created.
func (p *Pipeline) runWikidata(ctx context.Context, path string) PhaseResult {
	var res PhaseResult
	var pending []domain.WikidataUpdate

	flush := func() {
		if len(pending) == 0 {
			return
		}
		n, err := p.authors.ApplyWikidataUpdates(ctx, pending)
		if err != nil {
			p.log.Warn("wikidata flush failed",
				slog.Int("records", len(pending)),
				slog.String("error", err.Error()),
			)
			res.Errors += len(pending)
		} else {
			res.Applied += n
		}
		pending = pending[:0]
	}

	err := dump.ReadTSV(path, 2, func(cols []string) error {
		res.Processed++
		upd, ok := parseWikidataEntity(cols[0], cols[1])
		if !ok {
			res.Skipped++
			return nil
		}
		pending = append(pending, upd)
		if len(pending) >= p.cfg.BatchSize {
			flush()
		}
		return nil
	})
	if err != nil {
		return PhaseResult{Processed: res.Processed, Err: err}
	}

	flush()
	return res
}

// parseWikidataEntity extracts the three enrichment values from one entity.
// Lines carrying none of them are skipped.
func parseWikidataEntity(qid, entityJSON string) (domain.WikidataUpdate, bool) {
	qid = strings.TrimSpace(qid)
	if qid == "" {
		return domain.WikidataUpdate{}, false
	}

	var ent wikidataEntity
	if err := json.Unmarshal([]byte(entityJSON), &ent); err != nil {
		return domain.WikidataUpdate{}, false
	}

	upd := domain.WikidataUpdate{WikidataID: qid}

	if label, ok := claimLabel(ent.Claims[nationalityProperty]); ok {
		nat := truncate(label, maxNationalityLen)
		upd.Nationality = &nat
	}
	if label, ok := claimLabel(ent.Claims[birthPlaceProperty]); ok {
		bp := truncate(label, maxBirthPlaceLen)
		upd.BirthPlace = &bp
	}
	if link, ok := ent.Sitelinks["enwiki"]; ok && link.Title != "" {
		url := truncate("https://en.wikipedia.org/wiki/"+strings.ReplaceAll(link.Title, " ", "_"), maxURLLen)
		upd.WikipediaURL = &url
	}

	if upd.Nationality == nil && upd.BirthPlace == nil && upd.WikipediaURL == nil {
		return domain.WikidataUpdate{}, false
	}
	return upd, true
}

// claimLabel returns the first human-readable label among a property's
// claims. Claim values appear either as bare strings or as objects with a
// "label" field; bare QIDs are not labels and are skipped.
func claimLabel(claims []json.RawMessage) (string, bool) {
	for _, raw := range claims {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			var obj struct {
				Label string `json:"label"`
			}
			if err := json.Unmarshal(raw, &obj); err != nil {
				continue
			}
			s = obj.Label
		}
		s = strings.TrimSpace(s)
		if s == "" || bareQIDRe.MatchString(s) {
			continue
		}
		return s, true
	}
	return "", false
}
