// Package domain defines the catalog entities shared by the import pipeline,
// the cleanup worker, and the PostgreSQL repositories.
package domain

import "time"

// Author is a catalog author row. Slug is globally unique; enrichment fields
// (Bio, BirthDate, Nationality, ...) are filled once and never regress to null.
type Author struct {
	ID             int64
	Name           string
	Slug           string
	Bio            *string
	BirthDate      *time.Time
	DeathDate      *time.Time
	PhotoURL       *string
	Nationality    *string
	BirthPlace     *string
	OpenLibraryID  *string
	WikidataID     *string
	WikipediaURL   *string
	RemoteIDs      map[string]string
	AlternateNames []string
}

// Book is a catalog book row. One row exists per (work, language) pair;
// (Language, Slug) is the composite unique key.
type Book struct {
	ID              int64
	Title           string
	Language        string
	Slug            string
	Description     *string
	PublicationYear *int
	CoverURL        *string
	ISBNs           []string
	Publisher       *string
	PageCount       *int
	Formats         []string
	ExternalIDs     map[string]string
	OpenLibraryID   *string

	OLRatingCount       int
	OLAvgRating         *float64
	OLWantToReadCount   int
	OLCurrentlyReading  int
	OLAlreadyReadCount  int

	SeriesID       *int64
	SeriesPosition *float64
}

// AuthorTag is the author reference attached to a BookInput.
type AuthorTag struct {
	Name          string
	Slug          string
	OpenLibraryID string
}

// GenreTag is a genre attached to a BookInput.
type GenreTag struct {
	Name string
	Slug string
}

// SeriesInfo is a parsed series membership ("Dune Chronicles #2").
type SeriesInfo struct {
	Name     string
	Position *float64
}

// BookInput is the normalized payload consumed by the book repository's
// insert-or-merge operation. Rows are matched by (Language, Slug).
type BookInput struct {
	Title           string
	Language        string
	Slug            string
	Description     *string
	PublicationYear *int
	CoverURL        *string
	OpenLibraryID   string
	ISBNs           []string
	Publisher       *string
	PageCount       *int
	ExternalIDs     map[string]string
	Formats         []string
	Authors         []AuthorTag
	Genres          []GenreTag
	Series          *SeriesInfo
}

// MergeResult reports per-record outcomes of a bulk insert-or-merge.
// The operation never fails on a single record; bad records count as Failed.
type MergeResult struct {
	Successful int
	Failed     int
}

// AuthorMapEntry resolves an Open Library author id to catalog identity.
// The map is rebuilt once after the author phase and read-only afterward.
type AuthorMapEntry struct {
	ID   int64
	Name string
	Slug string
}

// BookMapEntry resolves an Open Library work id to one language row of the
// catalog. A single work maps to a list of entries, one per language.
type BookMapEntry struct {
	ID       int64
	Language string
	Slug     string
}

// WikidataUpdate carries enrichment extracted from a Wikidata entity,
// applied to authors matched by wikidata id with fill-if-null semantics.
type WikidataUpdate struct {
	WikidataID   string
	Nationality  *string
	BirthPlace   *string
	WikipediaURL *string
}

// EditionMerge is the per-row payload applied to an existing book from the
// winning edition candidate. ISBNs and ExternalIDs overwrite when present
// but never regress to null; the remaining fields fill only when the
// current column is null.
type EditionMerge struct {
	BookID      int64
	ISBNs       []string
	PageCount   *int
	Publisher   *string
	Format      *string
	ExternalIDs map[string]string
	CoverURL    *string
	Description *string
	Series      *SeriesInfo
}

// LanguageClone requests a new language row cloned from an existing
// English-language row of the same work.
type LanguageClone struct {
	SourceBookID  int64
	OpenLibraryID string
	Language      string
	ISBNs         []string
	PageCount     *int
	Publisher     *string
	Format        *string
	ExternalIDs   map[string]string
	CoverURL      *string
	Description   *string
	Series        *SeriesInfo
}

// RatingUpdate applies dump-wide rating aggregates to one book row.
type RatingUpdate struct {
	BookID int64
	Count  int
	Avg    float64
}

// ReadingLogUpdate applies dump-wide shelf counters to one book row.
type ReadingLogUpdate struct {
	BookID  int64
	Want    int
	Reading int
	Read    int
}
