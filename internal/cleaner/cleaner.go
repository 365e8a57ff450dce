// Package cleaner implements the periodic catalog cleanup worker: it drops
// low-quality book rows, then the authors, genres, and series left without
// any book relation, and prunes expired import state. A cycle is skipped
// while a dump import holds the run marker, so cleanup never races the
// importer's partially-written rows.
package cleaner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JakubTuta/minsik-ingestion/internal/config"
	"github.com/JakubTuta/minsik-ingestion/internal/importer"
)

// BookRepo is the book-side cleanup contract. Implemented by book.Repo.
type BookRepo interface {
	DeleteLowQuality(ctx context.Context, minScore, limit int) (int64, error)
	DeleteOrphanGenres(ctx context.Context) (int64, error)
	DeleteOrphanSeries(ctx context.Context) (int64, error)
}

// AuthorRepo is the author-side cleanup contract. Implemented by author.Repo.
type AuthorRepo interface {
	DeleteOrphans(ctx context.Context, limit int) (int64, error)
}

// RunStateRepo exposes the shared import marker and expired-state pruning.
type RunStateRepo interface {
	MarkerHeld(ctx context.Context, name string) (bool, error)
	PruneExpired(ctx context.Context) (int64, error)
}

// CycleResult reports what one cleanup cycle removed.
type CycleResult struct {
	Skipped       bool
	Books         int64
	Authors       int64
	Genres        int64
	Series        int64
	ExpiredStates int64
	Duration      time.Duration
}

// Cleaner runs cleanup cycles against the catalog.
type Cleaner struct {
	log     *slog.Logger
	books   BookRepo
	authors AuthorRepo
	runs    RunStateRepo
	cfg     config.CleanupConfig
}

// New creates a Cleaner.
func New(log *slog.Logger, books BookRepo, authors AuthorRepo, runs RunStateRepo, cfg config.CleanupConfig) *Cleaner {
	return &Cleaner{
		log:     log.With("component", "cleaner"),
		books:   books,
		authors: authors,
		runs:    runs,
		cfg:     cfg,
	}
}

// RunCycle executes one cleanup cycle. When an import run holds the marker
// the cycle is skipped whole; deleting rows the importer is about to enrich
// would undo its work.
func (c *Cleaner) RunCycle(ctx context.Context) (CycleResult, error) {
	start := time.Now()

	held, err := c.runs.MarkerHeld(ctx, importer.MarkerName)
	if err != nil {
		return CycleResult{}, fmt.Errorf("check run marker: %w", err)
	}
	if held {
		c.log.Info("cleanup cycle skipped, import in progress")
		return CycleResult{Skipped: true}, nil
	}

	var res CycleResult

	res.Books, err = c.books.DeleteLowQuality(ctx, c.cfg.MinBookScore, c.cfg.DeleteBatchLimit)
	if err != nil {
		return res, fmt.Errorf("delete low-quality books: %w", err)
	}

	res.Authors, err = c.authors.DeleteOrphans(ctx, c.cfg.DeleteBatchLimit)
	if err != nil {
		return res, fmt.Errorf("delete orphan authors: %w", err)
	}

	res.Genres, err = c.books.DeleteOrphanGenres(ctx)
	if err != nil {
		return res, fmt.Errorf("delete orphan genres: %w", err)
	}

	res.Series, err = c.books.DeleteOrphanSeries(ctx)
	if err != nil {
		return res, fmt.Errorf("delete orphan series: %w", err)
	}

	res.ExpiredStates, err = c.runs.PruneExpired(ctx)
	if err != nil {
		return res, fmt.Errorf("prune expired import state: %w", err)
	}

	res.Duration = time.Since(start)
	c.log.Info("cleanup cycle complete",
		slog.Int64("books", res.Books),
		slog.Int64("authors", res.Authors),
		slog.Int64("genres", res.Genres),
		slog.Int64("series", res.Series),
		slog.Int64("expired_states", res.ExpiredStates),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// Run executes cycles on the configured interval until ctx is canceled.
// The first cycle runs immediately.
func (c *Cleaner) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := c.RunCycle(ctx); err != nil {
			c.log.Error("cleanup cycle failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
