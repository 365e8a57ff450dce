// Package importer implements the Open Library bulk dump import pipeline:
// download, streaming parse, reconciliation, and merge into the catalog.
package importer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JakubTuta/minsik-ingestion/internal/domain"
)

// AuthorRepo is the author persistence contract consumed by the pipeline.
// All methods use only domain types — no adapter imports.
// Implemented by author.Repo.
type AuthorRepo interface {
	// Bulk upsert by slug — COALESCE-preserve, external ids overwritten.
	UpsertBulk(ctx context.Context, authors []domain.Author) (int, error)

	// Fill-if-null enrichment matched by wikidata id.
	ApplyWikidataUpdates(ctx context.Context, updates []domain.WikidataUpdate) (int, error)

	// Lookup map — open_library_id → catalog identity.
	Map(ctx context.Context) (map[string]domain.AuthorMapEntry, error)
}

// BookRepo is the book persistence contract consumed by the pipeline.
// Implemented by book.Repo.
type BookRepo interface {
	// Create-or-merge by (language, slug); never fails per record.
	InsertOrMerge(ctx context.Context, inputs []domain.BookInput) (domain.MergeResult, error)

	// Lookup map — work open_library_id → per-language rows.
	Map(ctx context.Context) (map[string][]domain.BookMapEntry, error)

	// Edition reconciliation.
	ApplyEditionMerges(ctx context.Context, merges []domain.EditionMerge) (int, error)
	CloneLanguageRows(ctx context.Context, clones []domain.LanguageClone) ([]domain.BookMapEntry, error)

	// Aggregate flushes — chunked, one commit per chunk.
	ApplyRatingUpdates(ctx context.Context, updates []domain.RatingUpdate, chunkSize int) (int, error)
	ApplyReadingLogUpdates(ctx context.Context, updates []domain.ReadingLogUpdate, chunkSize int) (int, error)
}

// RunStateRepo is the shared run-state contract: the run-level mutex marker
// and the polled job status rows. Implemented by runstate.Repo.
type RunStateRepo interface {
	AcquireMarker(ctx context.Context, name string, ttl time.Duration) error
	ReleaseMarker(ctx context.Context, name string) error
	MarkerHeld(ctx context.Context, name string) (bool, error)

	SetStatus(ctx context.Context, jobID uuid.UUID, job, status string) error
	GetStatus(ctx context.Context, jobID uuid.UUID) (string, error)
}
