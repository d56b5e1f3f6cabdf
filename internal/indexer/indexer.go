package indexer

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
	"media-catalog/internal/metrics"
	"media-catalog/internal/storage"
)

// insertChunkSize bounds the rows passed to a single InsertPhotos or
// DeletePhotos call, keeping statements under the SQLite variable limit.
const insertChunkSize = 512

// ErrScanInProgress is returned when a scan is requested while one runs.
var ErrScanInProgress = errors.New("scan already in progress")

// Result summarises one ScanNewFiles run.
type Result struct {
	Users        int           `json:"users"`
	Scanned      int           `json:"scanned"`
	Inserted     int           `json:"inserted"`
	Deleted      int           `json:"deleted"`
	FailedChunks int           `json:"failedChunks"`
	Duration     time.Duration `json:"duration"`
}

// Indexer keeps the catalog in line with the photos tree.
type Indexer struct {
	repo     database.Repository
	storage  *storage.Resolver
	scanner  *Scanner
	interval time.Duration

	stopChan chan struct{}
	stopOnce sync.Once

	indexMu       sync.Mutex
	isIndexing    bool
	lastIndexTime time.Time
	lastResult    Result
	lastError     error
	startTime     time.Time

	catalogUsers  atomic.Int64
	catalogPhotos atomic.Int64

	onScanComplete func(Result)
}

// New creates an Indexer. interval <= 0 disables periodic scans.
func New(repo database.Repository, store *storage.Resolver, scanner *Scanner, interval time.Duration) *Indexer {
	return &Indexer{
		repo:      repo,
		storage:   store,
		scanner:   scanner,
		interval:  interval,
		stopChan:  make(chan struct{}),
		startTime: time.Now(),
	}
}

// SetOnScanComplete sets a callback invoked after every successful scan.
func (idx *Indexer) SetOnScanComplete(callback func(Result)) {
	idx.onScanComplete = callback
}

// Start runs an initial scan when scanOnStart is set and then scans every
// interval until Stop is called or ctx is done.
func (idx *Indexer) Start(ctx context.Context, scanOnStart bool) {
	if scanOnStart {
		go func() {
			logging.Info("Starting initial scan in background...")
			if _, err := idx.ScanNewFiles(ctx); err != nil && !errors.Is(err, ErrScanInProgress) {
				logging.Error("Initial scan error: %v", err)
			}
		}()
	}

	if idx.interval > 0 {
		go idx.periodicScan(ctx)
	}
}

// Stop stops periodic scanning. A scan already running finishes.
func (idx *Indexer) Stop() {
	idx.stopOnce.Do(func() { close(idx.stopChan) })
}

func (idx *Indexer) periodicScan(ctx context.Context) {
	ticker := time.NewTicker(idx.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic scan triggered")
			if _, err := idx.ScanNewFiles(ctx); err != nil && !errors.Is(err, ErrScanInProgress) {
				logging.Error("Periodic scan failed: %v", err)
			}
		case <-idx.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Trigger starts a scan in the background and reports whether it started.
// It refuses to overlap a running scan.
func (idx *Indexer) Trigger() bool {
	if idx.IsIndexing() {
		return false
	}
	go func() {
		if _, err := idx.ScanNewFiles(context.Background()); err != nil && !errors.Is(err, ErrScanInProgress) {
			logging.Error("Triggered scan failed: %v", err)
		}
	}()
	return true
}

func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	return true
}

func (idx *Indexer) finishIndexing(result Result, err error) {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	idx.isIndexing = false
	idx.lastError = err
	if err == nil {
		idx.lastIndexTime = time.Now()
		idx.lastResult = result
	}
}

// ScanNewFiles walks every user's root and reconciles the catalog with it.
// Users are reconciled concurrently; a failing insert chunk is logged and
// skipped. Loading users or creating a user root are fatal.
func (idx *Indexer) ScanNewFiles(ctx context.Context) (result Result, err error) {
	if !idx.tryStartIndexing() {
		return Result{}, ErrScanInProgress
	}
	defer func() { idx.finishIndexing(result, err) }()

	metrics.IndexerIsRunning.Set(1)
	defer metrics.IndexerIsRunning.Set(0)

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.IndexerRunsTotal.WithLabelValues(status).Inc()
	}()

	users, err := idx.repo.GetUsers(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load users: %w", err)
	}
	logging.Info("Scanning media roots of %d users...", len(users))

	outcomes, err := idx.scanner.Scan(ctx, users)
	if err != nil {
		return Result{}, err
	}

	var (
		mu     sync.Mutex
		photos int64
	)
	result.Users = len(users)

	g, gctx := errgroup.WithContext(ctx)
	for i := range outcomes {
		outcome := outcomes[i]
		g.Go(func() error {
			r, total, err := idx.reconcileUser(gctx, outcome)
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", outcome.User.UserName, err)
			}
			mu.Lock()
			result.Scanned += r.Scanned
			result.Inserted += r.Inserted
			result.Deleted += r.Deleted
			result.FailedChunks += r.FailedChunks
			photos += total
			mu.Unlock()
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return Result{}, err
	}

	result.Duration = time.Since(start)
	idx.catalogUsers.Store(int64(len(users)))
	idx.catalogPhotos.Store(photos)

	metrics.IndexerLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.IndexerLastRunDuration.Set(result.Duration.Seconds())

	logging.Info("Scan complete: %d files seen, %d inserted, %d deleted, %d failed chunks in %v",
		result.Scanned, result.Inserted, result.Deleted, result.FailedChunks, result.Duration)

	if idx.onScanComplete != nil {
		idx.onScanComplete(result)
	}
	return result, nil
}

// reconcileUser applies one user's plan and returns the user's resulting
// catalog size.
func (idx *Indexer) reconcileUser(ctx context.Context, outcome ScanOutcome) (Result, int64, error) {
	r := Result{Scanned: len(outcome.Drafts)}

	existing, err := idx.repo.GetPhotosByUser(ctx, outcome.User.ID)
	if err != nil {
		return r, 0, fmt.Errorf("failed to load photos: %w", err)
	}

	plan := Reconcile(outcome, existing, func(p database.Photo) bool {
		rel, err := p.PartialPath(&outcome.User)
		if err != nil {
			return true
		}
		return idx.storage.Exists(idx.storage.ResolvePhoto(rel))
	})

	for start := 0; start < len(plan.Inserts); start += insertChunkSize {
		end := min(start+insertChunkSize, len(plan.Inserts))
		chunk := plan.Inserts[start:end]
		if err := idx.repo.InsertPhotos(ctx, chunk); err != nil {
			logging.Error("Failed to insert %d photos for %s: %v", len(chunk), outcome.User.UserName, err)
			metrics.IndexerChunkErrors.Inc()
			r.FailedChunks++
			continue
		}
		r.Inserted += len(chunk)
	}
	metrics.IndexerPhotosInserted.Add(float64(r.Inserted))

	for start := 0; start < len(plan.Deletions); start += insertChunkSize {
		end := min(start+insertChunkSize, len(plan.Deletions))
		chunk := plan.Deletions[start:end]
		if err := idx.repo.DeletePhotos(ctx, chunk); err != nil {
			logging.Error("Failed to delete %d missing photos for %s: %v", len(chunk), outcome.User.UserName, err)
			metrics.IndexerChunkErrors.Inc()
			r.FailedChunks++
			continue
		}
		r.Deleted += len(chunk)
	}
	metrics.IndexerPhotosDeleted.Add(float64(r.Deleted))

	if r.Inserted > 0 || r.Deleted > 0 {
		logging.Debug("Reconciled %s: +%d -%d", outcome.User.UserName, r.Inserted, r.Deleted)
	}
	return r, int64(len(existing) + r.Inserted - r.Deleted), nil
}

// IsIndexing returns whether a scan is currently in progress.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// LastIndexTime returns the time of the last successful scan.
func (idx *Indexer) LastIndexTime() time.Time {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastIndexTime
}

// CatalogStats reports catalog totals. Before the first scan it asks the
// repository directly.
func (idx *Indexer) CatalogStats(ctx context.Context) (metrics.Stats, error) {
	if !idx.LastIndexTime().IsZero() {
		return metrics.Stats{
			Users:  int(idx.catalogUsers.Load()),
			Photos: int(idx.catalogPhotos.Load()),
		}, nil
	}

	users, err := idx.repo.GetUsers(ctx)
	if err != nil {
		return metrics.Stats{}, err
	}
	photos, err := idx.repo.GetPhotos(ctx)
	if err != nil {
		return metrics.Stats{}, err
	}
	return metrics.Stats{Users: len(users), Photos: len(photos)}, nil
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Indexing    bool      `json:"indexing"`
	StartTime   time.Time `json:"startTime"`
	Uptime      string    `json:"uptime"`
	LastIndexed time.Time `json:"lastIndexed,omitempty"`
	LastResult  *Result   `json:"lastResult,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	status := HealthStatus{
		Indexing:    idx.isIndexing,
		StartTime:   idx.startTime,
		Uptime:      time.Since(idx.startTime).Round(time.Second).String(),
		LastIndexed: idx.lastIndexTime,
	}
	if !idx.lastIndexTime.IsZero() {
		r := idx.lastResult
		status.LastResult = &r
	}
	if idx.lastError != nil {
		status.LastError = idx.lastError.Error()
	}
	return status
}
