// Package startup loads configuration and logs the application's startup
// and shutdown.
//
// # Configuration
//
// [ReadConfig] reads settings with viper. Each key can be set as an
// environment variable or in a YAML file named by CONFIG_FILE (keys in
// lower case, e.g. storage_dir); the environment wins.
//
//   - STORAGE_DIR: root of the per-user photo trees (default: /photos)
//   - CACHE_DIR: parent of the derivative trees (default: /cache)
//   - PREVIEW_DIR: preview tree (default: $CACHE_DIR/previews)
//   - THUMBNAIL_DIR: thumbnail tree (default: $CACHE_DIR/thumbnails)
//   - DATABASE_DIR: directory of the SQLite catalog (default: /database)
//   - DATABASE_URL: Postgres connection string; replaces SQLite when set
//   - PORT: HTTP port (default: 8080)
//   - METRICS_ENABLED: serve /metrics (default: true)
//   - LOG_HEALTH_CHECKS: log /healthz requests (default: false)
//   - SCAN_INTERVAL: periodic scan interval, 0 disables (default: 6h)
//   - SCAN_ON_START: scan when the server starts (default: true)
//   - PREVIEW_TIMEOUT_VIDEO: ffmpegthumbnailer timeout (default: 15s)
//   - PREVIEW_TIMEOUT_HEIF: heif-thumbnailer timeout (default: 5s)
//   - MEMORY_LIMIT, MEMORY_RATIO: see package memory
//
// Durations accept Go syntax ("90s") or plain seconds ("90").
//
// [LoadConfig] additionally prints the banner, logs every setting and
// creates the directories the server writes to.
//
// # Build Information
//
// Version, Commit and BuildTime are injected with -ldflags and exposed
// through [GetBuildInfo].
package startup
