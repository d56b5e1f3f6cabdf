package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_auth_attempts_total",
			Help: "Basic auth attempts by result",
		},
		[]string{"result"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"result"},
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_db_rows_affected",
			Help:    "Rows affected by write operations",
			Buckets: []float64{1, 10, 50, 100, 256, 512, 1000, 5000},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_indexer_runs_total",
			Help: "Total number of scan runs by result",
		},
		[]string{"status"},
	)

	IndexerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_indexer_last_run_timestamp",
			Help: "Timestamp of the last completed scan",
		},
	)

	IndexerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_indexer_last_run_duration_seconds",
			Help: "Duration of the last scan in seconds",
		},
	)

	IndexerFilesScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_indexer_files_scanned_total",
			Help: "Files that produced a catalog draft",
		},
	)

	IndexerFilesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_indexer_files_skipped_total",
			Help: "Files skipped during a scan by reason",
		},
		[]string{"reason"},
	)

	IndexerTimestampSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_indexer_timestamp_source_total",
			Help: "Which heuristic resolved a file's creation time",
		},
		[]string{"source"},
	)

	IndexerPhotosInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_indexer_photos_inserted_total",
			Help: "Catalog rows inserted by reconciliation",
		},
	)

	IndexerPhotosDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_indexer_photos_deleted_total",
			Help: "Catalog rows deleted by reconciliation",
		},
	)

	IndexerChunkErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_indexer_chunk_errors_total",
			Help: "Insert chunks that failed and were skipped",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_indexer_running",
			Help: "Whether a scan is currently running (1 = running, 0 = idle)",
		},
	)
)

// Derivative metrics
var (
	DerivativeGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_derivative_generations_total",
			Help: "Derivative generations by source kind and result",
		},
		[]string{"kind", "status"},
	)

	DerivativeGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_derivative_generation_duration_seconds",
			Help:    "Time to produce one derivative",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"kind"},
	)

	DerivativeToolRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_derivative_tool_runs_total",
			Help: "External tool invocations by tool and result",
		},
		[]string{"tool", "status"},
	)

	DerivativeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_derivative_requests_total",
			Help: "On-demand derivative requests by target and outcome (hit, generated, failed, abandoned)",
		},
		[]string{"target", "outcome"},
	)

	DerivativeWaits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_derivative_waits_total",
			Help: "Requests that waited for an in-flight generation of the same photo",
		},
		[]string{"target"},
	)

	DerivativesInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_catalog_derivatives_in_flight",
			Help: "Generations currently running per target",
		},
		[]string{"target"},
	)

	BackfillRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_catalog_backfill_running",
			Help: "Whether a derivative backfill is running (1 = running, 0 = idle)",
		},
		[]string{"target"},
	)

	BackfillLastDuration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_catalog_backfill_last_duration_seconds",
			Help: "Duration of the last derivative backfill",
		},
		[]string{"target"},
	)

	BackfillFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_backfill_files_total",
			Help: "Photos visited by a backfill by result (generated, present, missing_source, failed)",
		},
		[]string{"target", "result"},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_filesystem_retry_attempts_total",
			Help: "Retries caused by stale NFS file handles",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_filesystem_retry_failures_total",
			Help: "Operations that still failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_filesystem_operation_duration_seconds",
			Help:    "Duration of retried filesystem operations including backoff",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_memory_usage_ratio",
			Help: "Heap allocation as a ratio of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_memory_paused",
			Help: "Whether background work is paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_memory_gc_pauses_total",
			Help: "Times background work was paused and a GC forced",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_catalog_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
