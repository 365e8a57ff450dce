package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JakubTuta/minsik-ingestion/internal/config"
	"github.com/JakubTuta/minsik-ingestion/internal/domain"
)

// MarkerName is the run-level mutual-exclusion marker shared with the
// background workers: while it is held, cleanup cycles skip themselves.
const MarkerName = "dump_import"

// markerTTL bounds how long a crashed run can block the next one.
const markerTTL = 24 * time.Hour

// PhaseResult holds the outcome of a single pipeline phase.
type PhaseResult struct {
	Processed int
	Applied   int
	Cloned    int
	Skipped   int
	Errors    int
	Duration  time.Duration
	Err       error
}

type phaseSpec struct {
	num     int
	name    string
	kind    string
	enabled bool
}

// Pipeline orchestrates the six-phase dump import: download, stream-parse,
// reconcile, merge. Phases run strictly sequentially; at most one run exists
// system-wide, enforced by the run marker.
type Pipeline struct {
	log     *slog.Logger
	authors AuthorRepo
	books   BookRepo
	runs    RunStateRepo
	dl      *Downloader
	cfg     config.DumpConfig
	results map[int]PhaseResult

	// bookMap resolves work OL ids to catalog rows. Built once before the
	// first phase that needs it, appended to when Phase 4 clones new
	// language rows.
	bookMap map[string][]domain.BookMapEntry
}

// NewPipeline creates a Pipeline.
func NewPipeline(log *slog.Logger, authors AuthorRepo, books BookRepo, runs RunStateRepo, dl *Downloader, cfg config.DumpConfig) *Pipeline {
	return &Pipeline{
		log:     log.With("component", "importer"),
		authors: authors,
		books:   books,
		runs:    runs,
		dl:      dl,
		cfg:     cfg,
		results: make(map[int]PhaseResult),
	}
}

// Results returns phase results after Run completes.
func (p *Pipeline) Results() map[int]PhaseResult {
	return p.results
}

// Run executes the import under jobID. If phases is non-empty, only the
// listed phase numbers run (config-disabled phases stay skipped either way).
// Returns domain.ErrAlreadyRunning when another run holds the marker.
// Temp files of every phase are removed and the marker is released on all
// exit paths.
func (p *Pipeline) Run(ctx context.Context, jobID uuid.UUID, phases []int) error {
	if err := p.runs.AcquireMarker(ctx, MarkerName, markerTTL); err != nil {
		return err
	}

	defer func() {
		p.dl.Cleanup()
		cleanupCtx := context.WithoutCancel(ctx)
		if err := p.runs.ReleaseMarker(cleanupCtx, MarkerName); err != nil {
			p.log.Warn("marker release failed", slog.String("error", err.Error()))
		}
	}()

	p.log.Info("import started", slog.String("job_id", jobID.String()))

	if err := p.runPhases(ctx, jobID, phases); err != nil {
		p.log.Error("import failed", slog.String("job_id", jobID.String()), slog.String("error", err.Error()))
		p.setStatus(context.WithoutCancel(ctx), jobID, "Failed: "+err.Error())
		return err
	}

	summary := p.summary()
	p.log.Info("import complete", slog.String("job_id", jobID.String()), slog.String("summary", summary))
	p.setStatus(ctx, jobID, summary)
	return nil
}

func (p *Pipeline) runPhases(ctx context.Context, jobID uuid.UUID, only []int) error {
	specs := []phaseSpec{
		{1, "authors", "authors", true},
		{2, "wikidata", "wikidata", p.cfg.WikidataEnabled},
		{3, "works", "works", true},
		{4, "editions", "editions", p.cfg.EditionsEnabled},
		{5, "ratings", "ratings", p.cfg.RatingsEnabled},
		{6, "reading log", "reading-log", p.cfg.ReadingLogEnabled},
	}

	filter := make(map[int]bool, len(only))
	for _, n := range only {
		filter[n] = true
	}

	for _, spec := range specs {
		if !spec.enabled || (len(only) > 0 && !filter[spec.num]) {
			p.log.Info("phase skipped",
				slog.Int("phase", spec.num),
				slog.String("name", spec.name),
				slog.Bool("disabled", !spec.enabled),
			)
			continue
		}

		if err := p.runPhase(ctx, jobID, spec); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runPhase(ctx context.Context, jobID uuid.UUID, spec phaseSpec) error {
	p.setStatus(ctx, jobID, fmt.Sprintf("Phase %d/6: downloading %s dump", spec.num, spec.name))

	path, err := p.dl.Fetch(ctx, spec.kind)
	if err != nil {
		return fmt.Errorf("phase %d (%s): %w", spec.num, spec.name, err)
	}

	p.setStatus(ctx, jobID, fmt.Sprintf("Phase %d/6: processing %s", spec.num, spec.name))

	start := time.Now()
	var result PhaseResult
	switch spec.num {
	case 1:
		result = p.runAuthors(ctx, path)
	case 2:
		result = p.runWikidata(ctx, path)
	case 3:
		authorMap, err := p.authors.Map(ctx)
		if err != nil {
			return fmt.Errorf("phase 3: build author map: %w", err)
		}
		p.log.Info("author map built", slog.Int("authors", len(authorMap)))
		result = p.runWorks(ctx, path, authorMap)
	case 4:
		if err := p.ensureBookMap(ctx); err != nil {
			return fmt.Errorf("phase 4: %w", err)
		}
		result = p.runEditions(ctx, path)
	case 5:
		if err := p.ensureBookMap(ctx); err != nil {
			return fmt.Errorf("phase 5: %w", err)
		}
		result = p.runRatings(ctx, path)
	case 6:
		if err := p.ensureBookMap(ctx); err != nil {
			return fmt.Errorf("phase 6: %w", err)
		}
		result = p.runReadingLog(ctx, path)
	}
	result.Duration = time.Since(start)
	p.results[spec.num] = result

	if result.Err != nil {
		return fmt.Errorf("phase %d (%s): %w", spec.num, spec.name, result.Err)
	}

	p.log.Info("phase completed",
		slog.Int("phase", spec.num),
		slog.String("name", spec.name),
		slog.Int("processed", result.Processed),
		slog.Int("applied", result.Applied),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	// The dump is consumed; free the disk before the next multi-GB download.
	p.dl.removePhaseFile(path)
	return nil
}

// ensureBookMap builds the work-id lookup once; Phase 4 appends to it as it
// clones new language rows, so Phases 5/6 see those rows too.
func (p *Pipeline) ensureBookMap(ctx context.Context) error {
	if p.bookMap != nil {
		return nil
	}
	m, err := p.books.Map(ctx)
	if err != nil {
		return fmt.Errorf("build book map: %w", err)
	}
	p.bookMap = m
	p.log.Info("book map built", slog.Int("works", len(m)))
	return nil
}

// summary enumerates counts from the phases that did run.
func (p *Pipeline) summary() string {
	var parts []string
	if r, ok := p.results[1]; ok {
		parts = append(parts, fmt.Sprintf("%d authors", r.Applied))
	}
	if r, ok := p.results[2]; ok {
		parts = append(parts, fmt.Sprintf("%d wikidata enriched", r.Applied))
	}
	if r, ok := p.results[3]; ok {
		parts = append(parts, fmt.Sprintf("%d works", r.Applied))
	}
	if r, ok := p.results[4]; ok {
		parts = append(parts, fmt.Sprintf("%d editions enriched", r.Applied))
		parts = append(parts, fmt.Sprintf("%d new language rows", r.Cloned))
	}
	if r, ok := p.results[5]; ok {
		parts = append(parts, fmt.Sprintf("%d ratings applied", r.Applied))
	}
	if r, ok := p.results[6]; ok {
		parts = append(parts, fmt.Sprintf("%d reading log applied", r.Applied))
	}
	if len(parts) == 0 {
		return "Complete: no phases run"
	}
	return "Complete: " + strings.Join(parts, ", ")
}

func (p *Pipeline) setStatus(ctx context.Context, jobID uuid.UUID, msg string) {
	if err := p.runs.SetStatus(ctx, jobID, "dump_import", msg); err != nil {
		p.log.Warn("status update failed", slog.String("status", msg), slog.String("error", err.Error()))
	}
}
