// Package metrics provides Prometheus instrumentation for media-catalog.
//
// All metrics are registered with promauto on the default registry and are
// prefixed with "media_catalog_". InitializeMetrics pre-creates the expected
// label combinations so dashboards see zero values before the first event.
//
// # Metric Categories
//
//   - HTTP: request counts, latency, in-flight requests, auth attempts.
//   - Database: query counts and latency per operation, transaction
//     duration, rows affected by batch writes.
//   - Indexer: scan runs, files scanned and skipped, timestamp heuristic
//     that resolved each file, rows inserted and deleted, failed chunks.
//   - Derivatives: generations per source kind, external tool runs and
//     timeouts, on-demand request outcomes, waits on in-flight work,
//     backfill progress.
//   - Filesystem: stale NFS handle retries per volume.
//   - Memory: heap usage ratio and backpressure pauses.
//   - Catalog: user and photo totals refreshed by Collector.
package metrics
