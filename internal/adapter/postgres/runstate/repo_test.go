package runstate_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres/runstate"
	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres/testhelper"
	"github.com/JakubTuta/minsik-ingestion/internal/domain"
)

func newRepo(t *testing.T) *runstate.Repo {
	t.Helper()
	return runstate.New(testhelper.SetupTestDB(t))
}

func markerName(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}

func TestRepo_AcquireMarker_Exclusive(t *testing.T) {
	t.Parallel()
	repo := newRepo(t)
	ctx := context.Background()

	name := markerName("import")

	require.NoError(t, repo.AcquireMarker(ctx, name, time.Hour))

	err := repo.AcquireMarker(ctx, name, time.Hour)
	assert.ErrorIs(t, err, domain.ErrAlreadyRunning)

	held, err := repo.MarkerHeld(ctx, name)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestRepo_AcquireMarker_TakesOverExpired(t *testing.T) {
	t.Parallel()
	repo := newRepo(t)
	ctx := context.Background()

	name := markerName("stale")

	// A marker with a negative TTL is born expired.
	require.NoError(t, repo.AcquireMarker(ctx, name, -time.Second))

	held, err := repo.MarkerHeld(ctx, name)
	require.NoError(t, err)
	assert.False(t, held, "expired marker must not count as held")

	require.NoError(t, repo.AcquireMarker(ctx, name, time.Hour))

	held, err = repo.MarkerHeld(ctx, name)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestRepo_ReleaseMarker(t *testing.T) {
	t.Parallel()
	repo := newRepo(t)
	ctx := context.Background()

	name := markerName("release")

	require.NoError(t, repo.AcquireMarker(ctx, name, time.Hour))
	require.NoError(t, repo.ReleaseMarker(ctx, name))

	held, err := repo.MarkerHeld(ctx, name)
	require.NoError(t, err)
	assert.False(t, held)

	// Releasing again is not an error.
	assert.NoError(t, repo.ReleaseMarker(ctx, name))

	// Reacquirable after release.
	assert.NoError(t, repo.AcquireMarker(ctx, name, time.Hour))
}

func TestRepo_Status_RoundTrip(t *testing.T) {
	t.Parallel()
	repo := newRepo(t)
	ctx := context.Background()

	jobID := uuid.New()

	require.NoError(t, repo.SetStatus(ctx, jobID, "dump_import", "Phase 1/6: processing authors"))

	got, err := repo.GetStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "Phase 1/6: processing authors", got)

	// Later updates overwrite.
	require.NoError(t, repo.SetStatus(ctx, jobID, "dump_import", "Phase 2/6: processing wikidata"))

	got, err = repo.GetStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "Phase 2/6: processing wikidata", got)
}

func TestRepo_GetStatus_Unknown(t *testing.T) {
	t.Parallel()
	repo := newRepo(t)

	_, err := repo.GetStatus(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepo_PruneExpired(t *testing.T) {
	t.Parallel()
	repo := newRepo(t)
	pool := testhelper.SetupTestDB(t)
	ctx := context.Background()

	jobID := uuid.New()
	_, err := pool.Exec(ctx,
		`INSERT INTO import_status (job_id, job, status, updated_at, expires_at)
		 VALUES ($1, 'dump_import', 'done', now(), now() - interval '1 minute')`,
		jobID,
	)
	require.NoError(t, err)

	_, err = repo.PruneExpired(ctx)
	require.NoError(t, err)

	_, err = repo.GetStatus(ctx, jobID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
