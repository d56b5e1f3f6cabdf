package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"media-catalog/internal/auth"
	"media-catalog/internal/database"
	"media-catalog/internal/handlers"
	"media-catalog/internal/indexer"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
	"media-catalog/internal/middleware"
	"media-catalog/internal/startup"
)

const (
	shutdownTimeout     = 30 * time.Second
	userRefreshInterval = time.Minute
	statsInterval       = time.Minute
)

func newServeCmd() *cobra.Command {
	var backfill bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the periodic indexer and the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), backfill)
		},
	}
	cmd.Flags().BoolVar(&backfill, "backfill", true, "Fill in missing derivatives in the background after startup")
	return cmd
}

func serve(ctx context.Context, backfill bool) error {
	startTime := time.Now()

	cfg, err := startup.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	a.monitor.Start(ctx)

	users := auth.NewUserCache(a.repo)
	if err := users.Refresh(ctx); err != nil {
		return err
	}
	logging.Info("Loaded %d users", users.Len())
	go refreshUsers(ctx, users)

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		metrics.InitializeMetrics()
		info := startup.GetBuildInfo()
		metrics.SetAppInfo(info.Version, info.Commit, info.GoVersion)
		collector = metrics.NewCollector(catalogStats{idx: a.indexer, repo: a.repo}, statsInterval)
		collector.Start(ctx)
	}

	startup.LogIndexerInit(cfg.ScanInterval, cfg.ScanOnStart)
	if backfill {
		a.indexer.SetOnScanComplete(func(indexer.Result) {
			if a.backfill.Running() {
				return
			}
			go func() {
				if _, err := a.backfill.GenerateAllBackground(ctx); err != nil && ctx.Err() == nil {
					logging.Warn("Background backfill stopped: %v", err)
				}
			}()
		})
	}
	a.indexer.Start(ctx, cfg.ScanOnStart)

	h := handlers.New(handlers.Deps{
		Repo:        a.repo,
		Storage:     a.store,
		Indexer:     a.indexer,
		Previews:    a.previews,
		Thumbnails:  a.thumbnails,
		Backfill:    a.backfill,
		Users:       users,
		BaseContext: ctx,
	})
	router := h.Router(cfg.MetricsEnabled)
	startup.LogHTTPRoutes(router)

	handler := middleware.Logger(middleware.LoggingConfig{
		SkipPaths:       []string{"/metrics"},
		LogHealthChecks: cfg.LogHealthChecks,
	})(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	startup.LogServerStarted(startup.ServerConfig{
		Port:            cfg.Port,
		MetricsEnabled:  cfg.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	startup.LogShutdownInitiated("signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	a.indexer.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	if collector != nil {
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	startup.LogShutdownComplete()
	return nil
}

// refreshUsers reloads the user cache so users added or removed with the
// users command take effect without a restart.
func refreshUsers(ctx context.Context, users *auth.UserCache) {
	ticker := time.NewTicker(userRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := users.Refresh(ctx); err != nil {
				logging.Warn("Failed to refresh users: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// catalogStats feeds the metrics collector and refreshes the connection
// gauge on every collection.
type catalogStats struct {
	idx  *indexer.Indexer
	repo database.Repository
}

func (s catalogStats) CatalogStats(ctx context.Context) (metrics.Stats, error) {
	s.repo.UpdateDBMetrics()
	return s.idx.CatalogStats(ctx)
}
