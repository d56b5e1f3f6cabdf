package main

import (
	"context"
	"fmt"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/indexer"
	"media-catalog/internal/media"
	"media-catalog/internal/memory"
	"media-catalog/internal/startup"
	"media-catalog/internal/storage"
)

// app holds the services shared by the serve, scan and previews commands.
type app struct {
	cfg        *startup.Config
	repo       database.Repository
	store      *storage.Resolver
	monitor    *memory.Monitor
	indexer    *indexer.Indexer
	previews   *media.Manager
	thumbnails *media.Manager
	backfill   *media.Backfill
}

func generatorOptions(cfg *startup.Config, base media.Options) media.Options {
	base.VideoTimeout = cfg.PreviewTimeoutVideo
	base.HeifTimeout = cfg.PreviewTimeoutHeif
	return base
}

// openApp opens the catalog and builds the indexer and derivative
// managers. The caller must call close.
func openApp(ctx context.Context, cfg *startup.Config) (*app, error) {
	limit := memory.ApplyLimit(cfg.MemoryLimit, cfg.MemoryRatio)
	startup.LogMemoryConfig(limit)

	store, err := storage.New(cfg.StorageDir, cfg.PreviewDir, cfg.ThumbnailDir)
	if err != nil {
		return nil, err
	}
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(store.Volumes()))

	dbStart := time.Now()
	repo, err := database.Open(ctx, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	kind := "SQLite"
	if cfg.UsesPostgres() {
		kind = "PostgreSQL"
	}
	startup.LogDatabaseInit(kind, time.Since(dbStart))

	media.InitVips()
	previewOpts := generatorOptions(cfg, media.PreviewOptions())
	startup.LogToolsInit(previewOpts.VideoTool, previewOpts.HeifTool)

	a := &app{
		cfg:        cfg,
		repo:       repo,
		store:      store,
		monitor:    memory.NewMonitor(memory.DefaultConfig()),
		indexer:    indexer.New(repo, store, indexer.NewScanner(store, nil), cfg.ScanInterval),
		previews:   media.NewManager("preview", media.NewGenerator(previewOpts)),
		thumbnails: media.NewManager("thumbnail", media.NewGenerator(generatorOptions(cfg, media.ThumbnailOptions()))),
	}
	a.backfill = media.NewBackfill(repo, store, a.monitor,
		media.Target{Manager: a.previews, Resolve: store.ResolvePreview},
		media.Target{Manager: a.thumbnails, Resolve: store.ResolveThumbnail},
	)
	return a, nil
}

// backfillFor returns a backfill over one tree, or over both for "all".
func (a *app) backfillFor(target string) (*media.Backfill, error) {
	switch target {
	case "all":
		return a.backfill, nil
	case "preview":
		return media.NewBackfill(a.repo, a.store, a.monitor,
			media.Target{Manager: a.previews, Resolve: a.store.ResolvePreview}), nil
	case "thumbnail":
		return media.NewBackfill(a.repo, a.store, a.monitor,
			media.Target{Manager: a.thumbnails, Resolve: a.store.ResolveThumbnail}), nil
	default:
		return nil, fmt.Errorf("unknown target %q (want preview, thumbnail or all)", target)
	}
}

func (a *app) close() {
	a.monitor.Stop()
	_ = a.repo.Close()
}
