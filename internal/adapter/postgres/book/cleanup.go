package book

import (
	"context"
	"fmt"

	postgres "github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres"
)

// DeleteLowQuality removes books whose completeness score — populated fields
// among isbns, page count, publisher, cover, description, and formats —
// falls below minScore and that carry no reader signal. Returns the number
// of deleted rows.
func (r *Repo) DeleteLowQuality(ctx context.Context, minScore, limit int) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx,
		`DELETE FROM books
		 WHERE id IN (
		     SELECT id FROM books
		     WHERE ol_rating_count = 0
		       AND ol_want_to_read_count = 0
		       AND ol_currently_reading_count = 0
		       AND ol_already_read_count = 0
		       AND (CASE WHEN isbns IS NOT NULL AND isbns <> '{}' THEN 1 ELSE 0 END
		          + CASE WHEN page_count IS NOT NULL THEN 1 ELSE 0 END
		          + CASE WHEN publisher IS NOT NULL THEN 1 ELSE 0 END
		          + CASE WHEN cover_url IS NOT NULL THEN 1 ELSE 0 END
		          + CASE WHEN description IS NOT NULL THEN 1 ELSE 0 END
		          + CASE WHEN formats IS NOT NULL AND formats <> '{}' THEN 1 ELSE 0 END) < $1
		     LIMIT $2
		 )`,
		minScore, limit,
	)
	if err != nil {
		return 0, fmt.Errorf("delete low quality books: %w", err)
	}

	return tag.RowsAffected(), nil
}

// DeleteOrphanGenres removes genres no book references. Returns the number
// of deleted rows.
func (r *Repo) DeleteOrphanGenres(ctx context.Context) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx,
		`DELETE FROM genres g
		 WHERE NOT EXISTS (SELECT 1 FROM book_genres bg WHERE bg.genre_id = g.id)`,
	)
	if err != nil {
		return 0, fmt.Errorf("delete orphan genres: %w", err)
	}

	return tag.RowsAffected(), nil
}

// DeleteOrphanSeries removes series no book belongs to. Returns the number
// of deleted rows.
func (r *Repo) DeleteOrphanSeries(ctx context.Context) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx,
		`DELETE FROM series s
		 WHERE NOT EXISTS (SELECT 1 FROM books b WHERE b.series_id = s.id)`,
	)
	if err != nil {
		return 0, fmt.Errorf("delete orphan series: %w", err)
	}

	return tag.RowsAffected(), nil
}
