package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/memory"
	"media-catalog/internal/metrics"
	"media-catalog/internal/storage"
	"media-catalog/internal/workers"
)

// ErrBackfillRunning is returned when a backfill is requested while one runs.
var ErrBackfillRunning = errors.New("derivative backfill already running")

// Target is one derivative tree a backfill fills in.
type Target struct {
	Manager *Manager
	// Resolve maps a photo's partial derivative path to an absolute path.
	Resolve func(rel string) string
}

// Summary counts what a backfill did per target.
type Summary struct {
	Generated     int `json:"generated"`
	Present       int `json:"present"`
	MissingSource int `json:"missingSource"`
	Failed        int `json:"failed"`
}

// Backfill generates every missing derivative in the catalog.
type Backfill struct {
	repo    database.Repository
	storage *storage.Resolver
	monitor *memory.Monitor
	targets []Target

	running atomic.Bool
}

// NewBackfill creates a Backfill. monitor may be nil.
func NewBackfill(repo database.Repository, store *storage.Resolver, monitor *memory.Monitor, targets ...Target) *Backfill {
	return &Backfill{repo: repo, storage: store, monitor: monitor, targets: targets}
}

// Running reports whether a backfill is in progress.
func (b *Backfill) Running() bool { return b.running.Load() }

type job struct {
	target Target
	req    DerivativeRequest
}

// GenerateAllForeground fills in derivatives in parallel, one worker per
// usable CPU, and returns when every photo has been visited.
func (b *Backfill) GenerateAllForeground(ctx context.Context) (map[string]Summary, error) {
	return b.run(ctx, "foreground", func(ctx context.Context, jobs []job, record func(job, string)) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers.ForCPU(0))

		for _, j := range jobs {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				record(j, b.visit(gctx, j))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		return ctx.Err()
	})
}

// GenerateAllBackground fills in derivatives one at a time and holds off
// while the memory monitor reports pressure. It is meant to run on its own
// goroutine next to the server.
func (b *Backfill) GenerateAllBackground(ctx context.Context) (map[string]Summary, error) {
	return b.run(ctx, "background", func(ctx context.Context, jobs []job, record func(job, string)) error {
		for _, j := range jobs {
			if b.monitor != nil {
				if err := b.monitor.WaitIfPaused(ctx); err != nil {
					return err
				}
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			record(j, b.visit(ctx, j))
		}
		return nil
	})
}

func (b *Backfill) run(ctx context.Context, mode string, each func(context.Context, []job, func(job, string)) error) (map[string]Summary, error) {
	if !b.running.CompareAndSwap(false, true) {
		return nil, ErrBackfillRunning
	}
	defer b.running.Store(false)

	start := time.Now()
	for _, t := range b.targets {
		metrics.BackfillRunning.WithLabelValues(t.Manager.Target()).Set(1)
	}
	defer func() {
		for _, t := range b.targets {
			metrics.BackfillRunning.WithLabelValues(t.Manager.Target()).Set(0)
			metrics.BackfillLastDuration.WithLabelValues(t.Manager.Target()).Set(time.Since(start).Seconds())
		}
	}()

	jobs, err := b.jobs(ctx)
	if err != nil {
		return nil, err
	}
	logging.Info("Starting %s derivative backfill: %d derivatives to check", mode, len(jobs))

	var mu sync.Mutex
	summaries := make(map[string]Summary, len(b.targets))
	record := func(j job, result string) {
		target := j.target.Manager.Target()
		metrics.BackfillFiles.WithLabelValues(target, result).Inc()

		mu.Lock()
		defer mu.Unlock()
		s := summaries[target]
		switch result {
		case "generated":
			s.Generated++
		case "present":
			s.Present++
		case "missing_source":
			s.MissingSource++
		default:
			s.Failed++
		}
		summaries[target] = s
	}

	err = each(ctx, jobs, record)

	for target, s := range summaries {
		logging.Info("Backfill %s: %d generated, %d present, %d missing source, %d failed in %v",
			target, s.Generated, s.Present, s.MissingSource, s.Failed, time.Since(start).Round(time.Millisecond))
	}
	if err != nil {
		return summaries, fmt.Errorf("%s backfill interrupted: %w", mode, err)
	}
	return summaries, nil
}

// jobs lists one request per photo and target.
func (b *Backfill) jobs(ctx context.Context) ([]job, error) {
	users, err := b.repo.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	byID := make(map[int64]*database.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	photos, err := b.repo.GetPhotos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load photos: %w", err)
	}

	jobs := make([]job, 0, len(photos)*len(b.targets))
	for i := range photos {
		p := &photos[i]
		owner, ok := byID[p.Owner]
		if !ok {
			logging.Warn("Photo %d has unknown owner %d, skipping", p.ID, p.Owner)
			continue
		}
		rel, err := p.PartialPath(owner)
		if err != nil {
			logging.Warn("Skipping photo %d: %v", p.ID, err)
			continue
		}
		for _, t := range b.targets {
			jobs = append(jobs, job{
				target: t,
				req: DerivativeRequest{
					PhotoID:    p.ID,
					SourcePath: b.storage.ResolvePhoto(rel),
					TargetPath: t.Resolve(p.PartialDerivativePath()),
				},
			})
		}
	}
	return jobs, nil
}

func (b *Backfill) visit(ctx context.Context, j job) string {
	if b.storage.Exists(j.req.TargetPath) {
		return "present"
	}
	if !b.storage.Exists(j.req.SourcePath) {
		return "missing_source"
	}
	if j.target.Manager.RequestDerivative(ctx, j.req) {
		return "generated"
	}
	return "failed"
}
