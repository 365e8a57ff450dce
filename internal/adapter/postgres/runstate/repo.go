// Package runstate implements shared run-level state for background jobs:
// a mutual-exclusion marker held for the duration of an import run, and
// human-readable job status rows polled by the admin API. Both live in
// PostgreSQL so every process sees the same state.
package runstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres"
	"github.com/JakubTuta/minsik-ingestion/internal/domain"
)

// statusTTL is how long a job status row stays readable after its last
// update. Finished runs disappear from the status endpoint after this.
const statusTTL = 24 * time.Hour

// Repo provides marker and status persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a runstate Repo.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// AcquireMarker atomically takes the named marker for ttl. A live marker
// belongs to a running job; acquisition then fails with
// domain.ErrAlreadyRunning. An expired marker is taken over.
func (r *Repo) AcquireMarker(ctx context.Context, name string, ttl time.Duration) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx,
		`INSERT INTO import_markers (name, acquired_at, expires_at)
		 VALUES ($1, now(), now() + $2)
		 ON CONFLICT (name) DO UPDATE
		 SET acquired_at = now(), expires_at = now() + $2
		 WHERE import_markers.expires_at <= now()`,
		name, ttl,
	)
	if err != nil {
		return fmt.Errorf("acquire marker %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("marker %s: %w", name, domain.ErrAlreadyRunning)
	}

	return nil
}

// ReleaseMarker drops the named marker. Releasing an absent marker is not
// an error.
func (r *Repo) ReleaseMarker(ctx context.Context, name string) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	if _, err := q.Exec(ctx, `DELETE FROM import_markers WHERE name = $1`, name); err != nil {
		return fmt.Errorf("release marker %s: %w", name, err)
	}

	return nil
}

// MarkerHeld reports whether the named marker is currently live. Other
// background workers check this to skip their cycle during an import run.
func (r *Repo) MarkerHeld(ctx context.Context, name string) (bool, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var held bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM import_markers WHERE name = $1 AND expires_at > now())`,
		name,
	).Scan(&held)
	if err != nil {
		return false, fmt.Errorf("check marker %s: %w", name, err)
	}

	return held, nil
}

// SetStatus upserts the progress string for a job. The row expires
// statusTTL after the last update.
func (r *Repo) SetStatus(ctx context.Context, jobID uuid.UUID, job, status string) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	_, err := q.Exec(ctx,
		`INSERT INTO import_status (job_id, job, status, updated_at, expires_at)
		 VALUES ($1, $2, $3, now(), now() + $4)
		 ON CONFLICT (job_id) DO UPDATE
		 SET status = EXCLUDED.status, updated_at = now(), expires_at = now() + $4`,
		jobID, job, status, statusTTL,
	)
	if err != nil {
		return fmt.Errorf("set status for job %s: %w", jobID, err)
	}

	return nil
}

// GetStatus returns the current progress string for a job. Expired or
// unknown jobs return domain.ErrNotFound.
func (r *Repo) GetStatus(ctx context.Context, jobID uuid.UUID) (string, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var status string
	err := q.QueryRow(ctx,
		`SELECT status FROM import_status WHERE job_id = $1 AND expires_at > now()`,
		jobID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("get status for job %s: %w", jobID, err)
	}

	return status, nil
}

// PruneExpired removes expired status rows. Called opportunistically by the
// cleanup worker. Returns the number of deleted rows.
func (r *Repo) PruneExpired(ctx context.Context) (int64, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, `DELETE FROM import_status WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("prune expired status rows: %w", err)
	}

	return tag.RowsAffected(), nil
}
