// Package author implements the PostgreSQL author repository used by the
// dump import pipeline.
package author

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres"
	"github.com/JakubTuta/minsik-ingestion/internal/domain"
)

// Repo provides author persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	txm  *postgres.TxManager
	sb   sq.StatementBuilderType
}

// New creates an author Repo.
func New(pool *pgxpool.Pool, txm *postgres.TxManager) *Repo {
	return &Repo{
		pool: pool,
		txm:  txm,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// UpsertBulk inserts or merges authors by slug using pgx.Batch.
// On conflict, every field except open_library_id, remote_ids, and
// alternate_names is updated only if the existing column is null
// (COALESCE-preserve); those three are always overwritten.
// Returns the number of affected rows.
func (r *Repo) UpsertBulk(ctx context.Context, authors []domain.Author) (int, error) {
	if len(authors) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, a := range authors {
		batch.Queue(
			`INSERT INTO authors (name, slug, bio, birth_date, death_date, photo_url,
			                      nationality, birth_place, open_library_id,
			                      wikidata_id, wikipedia_url, remote_ids, alternate_names)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			 ON CONFLICT (slug) DO UPDATE
			 SET bio             = COALESCE(authors.bio, EXCLUDED.bio),
			     birth_date      = COALESCE(authors.birth_date, EXCLUDED.birth_date),
			     death_date      = COALESCE(authors.death_date, EXCLUDED.death_date),
			     photo_url       = COALESCE(authors.photo_url, EXCLUDED.photo_url),
			     nationality     = COALESCE(authors.nationality, EXCLUDED.nationality),
			     birth_place     = COALESCE(authors.birth_place, EXCLUDED.birth_place),
			     wikidata_id     = COALESCE(authors.wikidata_id, EXCLUDED.wikidata_id),
			     wikipedia_url   = COALESCE(authors.wikipedia_url, EXCLUDED.wikipedia_url),
			     open_library_id = EXCLUDED.open_library_id,
			     remote_ids      = EXCLUDED.remote_ids,
			     alternate_names = EXCLUDED.alternate_names,
			     updated_at      = now()`,
			a.Name, a.Slug, a.Bio, a.BirthDate, a.DeathDate, a.PhotoURL,
			a.Nationality, a.BirthPlace, a.OpenLibraryID,
			a.WikidataID, a.WikipediaURL, a.RemoteIDs, a.AlternateNames,
		)
	}

	return r.sendBatchExec(ctx, batch)
}

// ApplyWikidataUpdates fills nationality, birth_place, and wikipedia_url
// on authors matched by wikidata_id. Existing non-null values are kept.
// Returns the number of matched rows.
func (r *Repo) ApplyWikidataUpdates(ctx context.Context, updates []domain.WikidataUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(
			`UPDATE authors
			 SET nationality   = COALESCE(nationality, $1),
			     birth_place   = COALESCE(birth_place, $2),
			     wikipedia_url = COALESCE(wikipedia_url, $3),
			     updated_at    = now()
			 WHERE wikidata_id = $4`,
			u.Nationality, u.BirthPlace, u.WikipediaURL, u.WikidataID,
		)
	}

	return r.sendBatchExec(ctx, batch)
}

// Map returns open_library_id → {id, name, slug} for every author that
// carries an Open Library id. The works phase resolves author references
// through this map.
func (r *Repo) Map(ctx context.Context) (map[string]domain.AuthorMapEntry, error) {
	sql, args, err := r.sb.
		Select("open_library_id", "id", "name", "slug").
		From("authors").
		Where(sq.NotEq{"open_library_id": nil}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build author map query: %w", err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query author map: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.AuthorMapEntry)
	for rows.Next() {
		var olid string
		var e domain.AuthorMapEntry
		if err := rows.Scan(&olid, &e.ID, &e.Name, &e.Slug); err != nil {
			return nil, fmt.Errorf("scan author map row: %w", err)
		}
		result[olid] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate author map: %w", err)
	}

	return result, nil
}

// GetBySlug returns a single author by slug. Returns domain.ErrNotFound
// if no such author exists.
func (r *Repo) GetBySlug(ctx context.Context, slug string) (*domain.Author, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var a domain.Author
	err := q.QueryRow(ctx,
		`SELECT id, name, slug, bio, birth_date, death_date, photo_url,
		        nationality, birth_place, open_library_id, wikidata_id,
		        wikipedia_url, remote_ids, alternate_names
		 FROM authors WHERE slug = $1`,
		slug,
	).Scan(
		&a.ID, &a.Name, &a.Slug, &a.Bio, &a.BirthDate, &a.DeathDate, &a.PhotoURL,
		&a.Nationality, &a.BirthPlace, &a.OpenLibraryID, &a.WikidataID,
		&a.WikipediaURL, &a.RemoteIDs, &a.AlternateNames,
	)
	if err != nil {
		return nil, mapError(err, "author", slug)
	}

	return &a, nil
}

// DeleteOrphans removes authors that have no book relations and no
// biography. Returns the number of deleted rows.
func (r *Repo) DeleteOrphans(ctx context.Context, limit int) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx,
		`DELETE FROM authors
		 WHERE id IN (
		     SELECT a.id FROM authors a
		     LEFT JOIN book_authors ba ON ba.author_id = a.id
		     WHERE ba.book_id IS NULL AND a.bio IS NULL
		     LIMIT $1
		 )`,
		limit,
	)
	if err != nil {
		return 0, fmt.Errorf("delete orphan authors: %w", err)
	}

	return tag.RowsAffected(), nil
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
