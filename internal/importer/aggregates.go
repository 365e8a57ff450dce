package importer

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/JakubTuta/minsik-ingestion/internal/domain"
	"github.com/JakubTuta/minsik-ingestion/internal/dump"
	"github.com/JakubTuta/minsik-ingestion/internal/openlibrary"
)

// Shelf names as they appear in the reading-log dump.
const (
	shelfWantToRead       = "Want to Read"
	shelfCurrentlyReading = "Currently Reading"
	shelfAlreadyRead      = "Already Read"
)

type ratingAgg struct {
	count int
	sum   int
}

type shelfAgg struct {
	want    int
	reading int
	read    int
}

// runRatings is Phase 5: one full in-memory pass over the ratings TSV, then
// the per-work aggregate applied to every language row of the work, in
// committed chunks.
func (p *Pipeline) runRatings(ctx context.Context, path string) PhaseResult {
	var res PhaseResult
	aggs := make(map[string]*ratingAgg)

	err := dump.ReadTSV(path, 3, func(cols []string) error {
		res.Processed++
		workID := openlibrary.OLID(strings.TrimSpace(cols[0]))
		value, convErr := strconv.Atoi(strings.TrimSpace(cols[2]))
		if workID == "" || convErr != nil || value < 1 || value > 5 {
			res.Skipped++
			return nil
		}
		a := aggs[workID]
		if a == nil {
			a = &ratingAgg{}
			aggs[workID] = a
		}
		a.count++
		a.sum += value
		return nil
	})
	if err != nil {
		return PhaseResult{Processed: res.Processed, Err: err}
	}

	var updates []domain.RatingUpdate
	for workID, a := range aggs {
		rows := p.bookMap[workID]
		if len(rows) == 0 {
			res.Skipped++
			continue
		}
		avg := math.Round(float64(a.sum)/float64(a.count)*100) / 100
		for _, row := range rows {
			updates = append(updates, domain.RatingUpdate{BookID: row.ID, Count: a.count, Avg: avg})
		}
	}

	n, err := p.books.ApplyRatingUpdates(ctx, updates, p.cfg.ChunkSize)
	res.Applied = n
	if err != nil {
		res.Err = err
	}
	return res
}

// runReadingLog is Phase 6: same shape as Phase 5, aggregating shelf
// counters instead of ratings.
func (p *Pipeline) runReadingLog(ctx context.Context, path string) PhaseResult {
	var res PhaseResult
	aggs := make(map[string]*shelfAgg)

	err := dump.ReadTSV(path, 3, func(cols []string) error {
		res.Processed++
		workID := openlibrary.OLID(strings.TrimSpace(cols[0]))
		shelf := strings.TrimSpace(cols[2])
		if workID == "" {
			res.Skipped++
			return nil
		}

		a := aggs[workID]
		if a == nil {
			a = &shelfAgg{}
			aggs[workID] = a
		}
		switch shelf {
		case shelfWantToRead:
			a.want++
		case shelfCurrentlyReading:
			a.reading++
		case shelfAlreadyRead:
			a.read++
		default:
			res.Skipped++
		}
		return nil
	})
	if err != nil {
		return PhaseResult{Processed: res.Processed, Err: err}
	}

	var updates []domain.ReadingLogUpdate
	for workID, a := range aggs {
		rows := p.bookMap[workID]
		if len(rows) == 0 {
			res.Skipped++
			continue
		}
		for _, row := range rows {
			updates = append(updates, domain.ReadingLogUpdate{
				BookID:  row.ID,
				Want:    a.want,
				Reading: a.reading,
				Read:    a.read,
			})
		}
	}

	n, err := p.books.ApplyReadingLogUpdates(ctx, updates, p.cfg.ChunkSize)
	res.Applied = n
	if err != nil {
		res.Err = err
	}
	return res
}
