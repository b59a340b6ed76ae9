package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/searchcal/internal/domain/ingest"
	"github.com/yanqian/searchcal/internal/infra/config"
	"github.com/yanqian/searchcal/internal/infra/snapshot"
)

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	server    *http.Server
	ingestSvc ingest.Service
	seed      RowLoader
}

// NewApp is used by Wire to build the runnable app. snap may be nil.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, ingestSvc ingest.Service, snap *snapshot.MinioSource) *App {
	app := &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, ingestSvc: ingestSvc}
	if snap != nil {
		app.seed = snap
	}
	return app
}

// Run seeds the index from the configured snapshot, then starts the HTTP
// server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	a.seedIndex(ctx)

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// A failed seed leaves the index as it is; the calendar still serves.
func (a *App) seedIndex(ctx context.Context) {
	if a.seed == nil {
		return
	}
	seedCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	stored, err := SeedFrom(seedCtx, a.seed, a.cfg.Snapshot.Object, a.ingestSvc, a.cfg.Calendar.Index, a.cfg.Ingest.MaxBatch)
	if err != nil {
		a.logger.Error("snapshot seed failed", "object", a.cfg.Snapshot.Object, "stored", stored, "error", err)
		return
	}
	a.logger.Info("index seeded from snapshot", "object", a.cfg.Snapshot.Object, "rows", stored)
}
