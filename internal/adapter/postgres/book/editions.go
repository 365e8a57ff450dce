package book

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	postgres "github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres"
	"github.com/JakubTuta/minsik-ingestion/internal/domain"
)

// ApplyEditionMerges folds winning edition candidates into existing book
// rows. ISBNs and external ids overwrite when the candidate carries them
// but never regress an existing value to null; page count, publisher,
// format, cover, and description fill only when currently null. Returns
// the number of updated rows.
func (r *Repo) ApplyEditionMerges(ctx context.Context, merges []domain.EditionMerge) (int, error) {
	if len(merges) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, m := range merges {
		var formats []string
		if m.Format != nil {
			formats = []string{*m.Format}
		}

		batch.Queue(
			`UPDATE books
			 SET isbns        = COALESCE($1, isbns),
			     external_ids = COALESCE($2, external_ids),
			     page_count   = COALESCE(page_count, $3),
			     publisher    = COALESCE(publisher, $4),
			     formats      = COALESCE(NULLIF(formats, '{}'::text[]), $5),
			     cover_url    = COALESCE(cover_url, $6),
			     description  = COALESCE(description, $7),
			     updated_at   = now()
			 WHERE id = $8`,
			m.ISBNs, m.ExternalIDs, m.PageCount, m.Publisher, formats,
			m.CoverURL, m.Description, m.BookID,
		)
	}

	n, err := r.sendBatchExec(ctx, batch)
	if err != nil {
		return n, err
	}

	for _, m := range merges {
		if m.Series == nil {
			continue
		}
		if err := r.linkSeries(ctx, m.BookID, *m.Series); err != nil {
			return n, err
		}
	}

	return n, nil
}

// CloneLanguageRows creates new language rows from existing English rows of
// the same work. Each clone copies the source's title, description, cover,
// and series linkage, applies the candidate's edition fields on top, upserts
// by (language, slug), and copies all author and genre relations. Returns
// the created rows keyed for book-map appending.
func (r *Repo) CloneLanguageRows(ctx context.Context, clones []domain.LanguageClone) ([]domain.BookMapEntry, error) {
	created := make([]domain.BookMapEntry, 0, len(clones))

	for _, c := range clones {
		var entry domain.BookMapEntry
		err := r.txm.RunInTx(ctx, func(txCtx context.Context) error {
			e, err := r.cloneOne(txCtx, c)
			if err != nil {
				return err
			}
			entry = e
			return nil
		})
		if err != nil {
			return created, err
		}
		created = append(created, entry)
	}

	return created, nil
}

func (r *Repo) cloneOne(ctx context.Context, c domain.LanguageClone) (domain.BookMapEntry, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var entry domain.BookMapEntry
	err := q.QueryRow(ctx,
		`INSERT INTO books (title, language, slug, description, publication_year,
		                    cover_url, isbns, publisher, page_count, formats,
		                    external_ids, open_library_id, series_id, series_position)
		 SELECT src.title, $1, src.slug,
		        COALESCE($2, src.description),
		        src.publication_year,
		        COALESCE($3, src.cover_url),
		        $4, $5, $6, $7, $8, $9,
		        src.series_id, src.series_position
		 FROM books src WHERE src.id = $10
		 ON CONFLICT (language, slug) DO UPDATE
		 SET description  = COALESCE(books.description, EXCLUDED.description),
		     cover_url    = COALESCE(books.cover_url, EXCLUDED.cover_url),
		     isbns        = COALESCE(EXCLUDED.isbns, books.isbns),
		     external_ids = COALESCE(EXCLUDED.external_ids, books.external_ids),
		     page_count   = COALESCE(books.page_count, EXCLUDED.page_count),
		     publisher    = COALESCE(books.publisher, EXCLUDED.publisher),
		     updated_at   = now()
		 RETURNING id, language, slug`,
		c.Language, c.Description, c.CoverURL,
		c.ISBNs, c.Publisher, c.PageCount, formatsArg(c.Format),
		c.ExternalIDs, c.OpenLibraryID, c.SourceBookID,
	).Scan(&entry.ID, &entry.Language, &entry.Slug)
	if err != nil {
		return entry, mapError(err, "book_clone", c.OpenLibraryID)
	}

	// Copy relations from the source row.
	_, err = q.Exec(ctx,
		`INSERT INTO book_authors (book_id, author_id)
		 SELECT $1, author_id FROM book_authors WHERE book_id = $2
		 ON CONFLICT DO NOTHING`,
		entry.ID, c.SourceBookID,
	)
	if err != nil {
		return entry, mapError(err, "book_clone", c.OpenLibraryID)
	}

	_, err = q.Exec(ctx,
		`INSERT INTO book_genres (book_id, genre_id)
		 SELECT $1, genre_id FROM book_genres WHERE book_id = $2
		 ON CONFLICT DO NOTHING`,
		entry.ID, c.SourceBookID,
	)
	if err != nil {
		return entry, mapError(err, "book_clone", c.OpenLibraryID)
	}

	if c.Series != nil {
		if err := r.linkSeries(ctx, entry.ID, *c.Series); err != nil {
			return entry, err
		}
	}

	return entry, nil
}

func formatsArg(format *string) []string {
	if format == nil {
		return nil
	}
	return []string{*format}
}

// ApplyRatingUpdates writes rating aggregates in chunks, each chunk in its
// own committed transaction. Returns the number of updated rows.
func (r *Repo) ApplyRatingUpdates(ctx context.Context, updates []domain.RatingUpdate, chunkSize int) (int, error) {
	var total int
	for chunk := range chunked(len(updates), chunkSize) {
		batch := &pgx.Batch{}
		for _, u := range updates[chunk.from:chunk.to] {
			batch.Queue(
				`UPDATE books
				 SET ol_rating_count = $1, ol_avg_rating = $2, updated_at = now()
				 WHERE id = $3`,
				u.Count, u.Avg, u.BookID,
			)
		}

		n, err := r.sendBatchExecTx(ctx, batch)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ApplyReadingLogUpdates writes shelf counters in chunks, each chunk in its
// own committed transaction. Returns the number of updated rows.
func (r *Repo) ApplyReadingLogUpdates(ctx context.Context, updates []domain.ReadingLogUpdate, chunkSize int) (int, error) {
	var total int
	for chunk := range chunked(len(updates), chunkSize) {
		batch := &pgx.Batch{}
		for _, u := range updates[chunk.from:chunk.to] {
			batch.Queue(
				`UPDATE books
				 SET ol_want_to_read_count      = $1,
				     ol_currently_reading_count = $2,
				     ol_already_read_count      = $3,
				     updated_at                 = now()
				 WHERE id = $4`,
				u.Want, u.Reading, u.Read, u.BookID,
			)
		}

		n, err := r.sendBatchExecTx(ctx, batch)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type span struct{ from, to int }

// chunked yields [from, to) index spans of at most size elements.
func chunked(n, size int) func(yield func(span) bool) {
	if size <= 0 {
		size = 1000
	}
	return func(yield func(span) bool) {
		for from := 0; from < n; from += size {
			to := min(from+size, n)
			if !yield(span{from, to}) {
				return
			}
		}
	}
}

// sendBatchExec sends a pgx.Batch and counts affected rows from Exec results.
func (r *Repo) sendBatchExec(ctx context.Context, batch *pgx.Batch) (int, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	results := q.SendBatch(ctx, batch)
	defer results.Close()

	var affected int
	for range batch.Len() {
		tag, err := results.Exec()
		if err != nil {
			return affected, fmt.Errorf("batch exec: %w", err)
		}
		affected += int(tag.RowsAffected())
	}

	return affected, nil
}

// sendBatchExecTx runs sendBatchExec inside its own committed transaction.
func (r *Repo) sendBatchExecTx(ctx context.Context, batch *pgx.Batch) (int, error) {
	var affected int
	err := r.txm.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := r.sendBatchExec(txCtx, batch)
		affected = n
		return err
	})
	return affected, err
}
