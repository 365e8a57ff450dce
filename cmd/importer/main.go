// Command importer runs the Open Library dump import pipeline once and
// exits. It is intended for manual runs and cron jobs; the server exposes
// the same pipeline over HTTP.
//
// Flags:
//
//	--phase  comma-separated list of phase numbers to run (default: all)
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres"
	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres/author"
	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres/book"
	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres/runstate"
	"github.com/JakubTuta/minsik-ingestion/internal/app"
	"github.com/JakubTuta/minsik-ingestion/internal/config"
	"github.com/JakubTuta/minsik-ingestion/internal/importer"
)

// Compile-time interface assertions.
var (
	_ importer.AuthorRepo   = (*author.Repo)(nil)
	_ importer.BookRepo     = (*book.Repo)(nil)
	_ importer.RunStateRepo = (*runstate.Repo)(nil)
)

func main() {
	phaseFlag := flag.String("phase", "", "comma-separated phase numbers to run (default: all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	phases, err := parsePhases(*phaseFlag)
	if err != nil {
		logger.Error("parse phase filter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	authors := author.New(pool, txm)
	books := book.New(pool, txm)
	runs := runstate.New(pool)

	dl := importer.NewDownloader(logger, cfg.Dump.BaseURL, cfg.Dump.TmpDir, cfg.Dump.DownloadTimeout)
	pipeline := importer.NewPipeline(logger, authors, books, runs, dl, cfg.Dump)

	jobID := uuid.New()
	logger.Info("starting import run", slog.String("job_id", jobID.String()))

	if err := pipeline.Run(ctx, jobID, phases); err != nil {
		logger.Error("import run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	for num, res := range pipeline.Results() {
		logger.Info("phase result",
			slog.Int("phase", num),
			slog.Int("processed", res.Processed),
			slog.Int("applied", res.Applied),
			slog.Int("skipped", res.Skipped),
			slog.Int("errors", res.Errors),
			slog.Duration("duration", res.Duration),
		)
	}

	logger.Info("import run completed", slog.String("job_id", jobID.String()))
}

func parsePhases(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}

	var phases []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > 6 {
			return nil, fmt.Errorf("invalid phase %q", part)
		}
		phases = append(phases, n)
	}
	return phases, nil
}
