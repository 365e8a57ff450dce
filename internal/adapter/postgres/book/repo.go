// Package book implements the PostgreSQL book repository used by the
// dump import pipeline and the cleanup worker.
package book

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres"
	"github.com/JakubTuta/minsik-ingestion/internal/domain"
)

// Repo provides book persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	txm  *postgres.TxManager
	sb   sq.StatementBuilderType
}

// New creates a book Repo.
func New(pool *pgxpool.Pool, txm *postgres.TxManager) *Repo {
	return &Repo{
		pool: pool,
		txm:  txm,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// InsertOrMerge creates or merges books matched by (language, slug), with
// their author, genre, and series relations. Each record runs in its own
// transaction; a failing record is rolled back, counted as Failed, and does
// not affect the rest of the batch.
func (r *Repo) InsertOrMerge(ctx context.Context, inputs []domain.BookInput) (domain.MergeResult, error) {
	var res domain.MergeResult
	for _, in := range inputs {
		err := r.txm.RunInTx(ctx, func(txCtx context.Context) error {
			return r.mergeOne(txCtx, in)
		})
		if err != nil {
			res.Failed++
			continue
		}
		res.Successful++
	}
	return res, nil
}

func (r *Repo) mergeOne(ctx context.Context, in domain.BookInput) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var bookID int64
	err := q.QueryRow(ctx,
		`INSERT INTO books (title, language, slug, description, publication_year,
		                    cover_url, isbns, publisher, page_count, formats,
		                    external_ids, open_library_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (language, slug) DO UPDATE
		 SET description      = COALESCE(books.description, EXCLUDED.description),
		     publication_year = COALESCE(books.publication_year, EXCLUDED.publication_year),
		     cover_url        = COALESCE(books.cover_url, EXCLUDED.cover_url),
		     publisher        = COALESCE(books.publisher, EXCLUDED.publisher),
		     page_count       = COALESCE(books.page_count, EXCLUDED.page_count),
		     open_library_id  = EXCLUDED.open_library_id,
		     updated_at       = now()
		 RETURNING id`,
		in.Title, in.Language, in.Slug, in.Description, in.PublicationYear,
		in.CoverURL, in.ISBNs, in.Publisher, in.PageCount, in.Formats,
		in.ExternalIDs, in.OpenLibraryID,
	).Scan(&bookID)
	if err != nil {
		return mapError(err, "book", in.Slug)
	}

	if err := r.linkAuthors(ctx, bookID, in.Authors); err != nil {
		return err
	}
	if err := r.linkGenres(ctx, bookID, in.Genres); err != nil {
		return err
	}
	if in.Series != nil {
		if err := r.linkSeries(ctx, bookID, *in.Series); err != nil {
			return err
		}
	}

	return nil
}

// linkAuthors ensures each referenced author exists and is related to the
// book. Authors already present keep their row; only the relation is added.
func (r *Repo) linkAuthors(ctx context.Context, bookID int64, authors []domain.AuthorTag) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	for _, a := range authors {
		var olid *string
		if a.OpenLibraryID != "" {
			olid = &a.OpenLibraryID
		}
		_, err := q.Exec(ctx,
			`INSERT INTO authors (name, slug, open_library_id)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (slug) DO NOTHING`,
			a.Name, a.Slug, olid,
		)
		if err != nil {
			return mapError(err, "author", a.Slug)
		}

		_, err = q.Exec(ctx,
			`INSERT INTO book_authors (book_id, author_id)
			 SELECT $1, id FROM authors WHERE slug = $2
			 ON CONFLICT DO NOTHING`,
			bookID, a.Slug,
		)
		if err != nil {
			return mapError(err, "book_author", a.Slug)
		}
	}

	return nil
}

func (r *Repo) linkGenres(ctx context.Context, bookID int64, genres []domain.GenreTag) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	for _, g := range genres {
		_, err := q.Exec(ctx,
			`INSERT INTO genres (name, slug) VALUES ($1, $2)
			 ON CONFLICT (slug) DO NOTHING`,
			g.Name, g.Slug,
		)
		if err != nil {
			return mapError(err, "genre", g.Slug)
		}

		_, err = q.Exec(ctx,
			`INSERT INTO book_genres (book_id, genre_id)
			 SELECT $1, id FROM genres WHERE slug = $2
			 ON CONFLICT DO NOTHING`,
			bookID, g.Slug,
		)
		if err != nil {
			return mapError(err, "book_genre", g.Slug)
		}
	}

	return nil
}

// linkSeries upserts the series by name and attaches the book to it unless
// it already belongs to one.
func (r *Repo) linkSeries(ctx context.Context, bookID int64, s domain.SeriesInfo) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var seriesID int64
	err := q.QueryRow(ctx,
		`INSERT INTO series (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		s.Name,
	).Scan(&seriesID)
	if err != nil {
		return mapError(err, "series", s.Name)
	}

	_, err = q.Exec(ctx,
		`UPDATE books
		 SET series_id       = COALESCE(series_id, $1),
		     series_position = COALESCE(series_position, $2)
		 WHERE id = $3`,
		seriesID, s.Position, bookID,
	)
	if err != nil {
		return mapError(err, "book", s.Name)
	}

	return nil
}

// Map returns open_library_id → per-language rows for every book that
// carries an Open Library work id. The edition, ratings, and reading-log
// phases resolve work references through this map.
func (r *Repo) Map(ctx context.Context) (map[string][]domain.BookMapEntry, error) {
	sql, args, err := r.sb.
		Select("open_library_id", "id", "language", "slug").
		From("books").
		Where(sq.NotEq{"open_library_id": nil}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build book map query: %w", err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query book map: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]domain.BookMapEntry)
	for rows.Next() {
		var olid string
		var e domain.BookMapEntry
		if err := rows.Scan(&olid, &e.ID, &e.Language, &e.Slug); err != nil {
			return nil, fmt.Errorf("scan book map row: %w", err)
		}
		result[olid] = append(result[olid], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate book map: %w", err)
	}

	return result, nil
}

// GetByID returns a single book row. Returns domain.ErrNotFound if missing.
func (r *Repo) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var b domain.Book
	err := q.QueryRow(ctx,
		`SELECT id, title, language, slug, description, publication_year, cover_url,
		        isbns, publisher, page_count, formats, external_ids, open_library_id,
		        ol_rating_count, ol_avg_rating, ol_want_to_read_count,
		        ol_currently_reading_count, ol_already_read_count,
		        series_id, series_position
		 FROM books WHERE id = $1`,
		id,
	).Scan(
		&b.ID, &b.Title, &b.Language, &b.Slug, &b.Description, &b.PublicationYear, &b.CoverURL,
		&b.ISBNs, &b.Publisher, &b.PageCount, &b.Formats, &b.ExternalIDs, &b.OpenLibraryID,
		&b.OLRatingCount, &b.OLAvgRating, &b.OLWantToReadCount,
		&b.OLCurrentlyReading, &b.OLAlreadyReadCount,
		&b.SeriesID, &b.SeriesPosition,
	)
	if err != nil {
		return nil, mapError(err, "book", fmt.Sprintf("%d", id))
	}

	return &b, nil
}
