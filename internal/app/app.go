package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres"
	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres/author"
	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres/book"
	"github.com/JakubTuta/minsik-ingestion/internal/adapter/postgres/runstate"
	"github.com/JakubTuta/minsik-ingestion/internal/cleaner"
	"github.com/JakubTuta/minsik-ingestion/internal/config"
	"github.com/JakubTuta/minsik-ingestion/internal/importer"
	"github.com/JakubTuta/minsik-ingestion/internal/transport/middleware"
	"github.com/JakubTuta/minsik-ingestion/internal/transport/rest"
)

// adminRatePerMinute limits import trigger calls per client IP.
const adminRatePerMinute = 30

// Run is the server entry point. It loads configuration, connects to the
// database, wires the import pipeline and cleanup worker, and serves the
// admin HTTP API until ctx is canceled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	authors := author.New(pool, txm)
	books := book.New(pool, txm)
	runs := runstate.New(pool)

	dl := importer.NewDownloader(logger, cfg.Dump.BaseURL, cfg.Dump.TmpDir, cfg.Dump.DownloadTimeout)
	pipeline := importer.NewPipeline(logger, authors, books, runs, dl, cfg.Dump)
	imports := importer.NewService(logger, pipeline, runs)

	limiter := middleware.NewRateLimiter(10 * time.Minute)
	defer limiter.Stop()

	router := rest.NewRouter(rest.RouterDeps{
		Log:                logger,
		Health:             rest.NewHealthHandler(pool, BuildVersion()),
		Admin:              rest.NewAdminHandler(imports, logger),
		Limiter:            limiter,
		AdminRatePerMinute: adminRatePerMinute,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	cl := cleaner.New(logger, books, authors, runs, cfg.Cleanup)
	go func() {
		if err := cl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("cleanup worker stopped", slog.String("error", err.Error()))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
