package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres"
	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres/testhelper"
)

// authorExists checks whether an author row with the given slug exists.
func authorExists(t *testing.T, pool *pgxpool.Pool, slug string) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(
		context.Background(),
		`SELECT EXISTS(SELECT 1 FROM authors WHERE slug = $1)`,
		slug,
	).Scan(&exists)
	if err != nil {
		t.Fatalf("authorExists query: %v", err)
	}
	return exists
}

func uniqueSlug(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}

func TestRunInTx_Commit(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	slug := uniqueSlug("commit-test")

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, pool)
		_, err := q.Exec(ctx,
			`INSERT INTO authors (name, slug) VALUES ($1, $2)`,
			"Commit Test", slug,
		)
		return err
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}

	if !authorExists(t, pool, slug) {
		t.Fatal("expected author to exist after committed transaction")
	}
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	slug := uniqueSlug("rollback-test")
	sentinel := errors.New("business logic error")

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, pool)
		_, execErr := q.Exec(ctx,
			`INSERT INTO authors (name, slug) VALUES ($1, $2)`,
			"Rollback Test", slug,
		)
		if execErr != nil {
			t.Fatalf("insert inside tx failed: %v", execErr)
		}
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}

	if authorExists(t, pool, slug) {
		t.Fatal("expected author NOT to exist after rolled-back transaction")
	}
}

func TestRunInTx_RollbackOnPanic(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	slug := uniqueSlug("panic-test")

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic to be re-raised")
		}
		if r != "test panic" {
			t.Fatalf("expected panic value %q, got %v", "test panic", r)
		}

		// Verify data was rolled back.
		if authorExists(t, pool, slug) {
			t.Fatal("expected author NOT to exist after panic-rolled-back transaction")
		}
	}()

	_ = tm.RunInTx(context.Background(), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, pool)
		_, err := q.Exec(ctx,
			`INSERT INTO authors (name, slug) VALUES ($1, $2)`,
			"Panic Test", slug,
		)
		if err != nil {
			t.Fatalf("insert inside tx failed: %v", err)
		}
		panic("test panic")
	})
}

func TestRunInTx_QuerierFromCtx_UsesTx(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	tm := postgres.NewTxManager(pool)

	slug := uniqueSlug("ctx-test")

	// Insert inside a transaction, then verify it's visible within the same tx
	// but NOT outside until commit.
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, pool)
		_, err := q.Exec(ctx,
			`INSERT INTO authors (name, slug) VALUES ($1, $2)`,
			"Ctx Test", slug,
		)
		if err != nil {
			return err
		}

		// Should be visible within the transaction.
		var exists bool
		err = q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM authors WHERE slug = $1)`, slug).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			t.Fatal("expected author to be visible within the transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx returned error: %v", err)
	}

	// After commit, also visible outside.
	if !authorExists(t, pool, slug) {
		t.Fatal("expected author to exist after committed transaction")
	}
}
