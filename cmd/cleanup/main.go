// Command cleanup runs a single catalog cleanup cycle: it removes
// low-quality books, orphaned authors, genres, and series, and prunes
// expired import state. It is intended to be invoked by an external cron
// job; the server also runs the same cycle on an interval.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres"
	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres/author"
	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres/book"
	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres/runstate"
	"github.com/JakubTuta/minsik-ingestion/internal/app"
	"github.com/JakubTuta/minsik-ingestion/internal/cleaner"
	"github.com/JakubTuta/minsik-ingestion/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	books := book.New(pool, txm)
	authors := author.New(pool, txm)
	runs := runstate.New(pool)

	cl := cleaner.New(logger, books, authors, runs, cfg.Cleanup)

	res, err := cl.RunCycle(ctx)
	if err != nil {
		logger.Error("cleanup cycle failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if res.Skipped {
		logger.Info("cleanup skipped: import in progress")
		return
	}

	logger.Info("cleanup completed",
		slog.Int64("books", res.Books),
		slog.Int64("authors", res.Authors),
		slog.Int64("genres", res.Genres),
		slog.Int64("series", res.Series),
		slog.Int64("expired_states", res.ExpiredStates),
		slog.Duration("duration", res.Duration),
	)
}
