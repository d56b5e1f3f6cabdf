package startup

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"media-catalog/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	StorageDir   string
	CacheDir     string
	PreviewDir   string
	ThumbnailDir string
	DatabaseDir  string
	// DatabaseURL selects Postgres; empty means SQLite at DatabasePath.
	DatabaseURL  string
	DatabasePath string

	Port            string
	MetricsEnabled  bool
	LogHealthChecks bool

	ScanInterval time.Duration
	ScanOnStart  bool

	PreviewTimeoutVideo time.Duration
	PreviewTimeoutHeif  time.Duration

	MemoryLimit int64
	MemoryRatio float64
}

// UsesPostgres reports whether the catalog lives in Postgres.
func (c *Config) UsesPostgres() bool { return c.DatabaseURL != "" }

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("storage_dir", "/photos")
	v.SetDefault("cache_dir", "/cache")
	v.SetDefault("preview_dir", "")
	v.SetDefault("thumbnail_dir", "")
	v.SetDefault("database_dir", "/database")
	v.SetDefault("database_url", "")
	v.SetDefault("port", "8080")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("log_health_checks", false)
	v.SetDefault("scan_interval", "6h")
	v.SetDefault("scan_on_start", true)
	v.SetDefault("preview_timeout_video", "15s")
	v.SetDefault("preview_timeout_heif", "5s")
	v.SetDefault("memory_limit", 0)
	v.SetDefault("memory_ratio", 0)
	v.SetDefault("config_file", "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadConfig loads the configuration without logging it. Environment
// variables override CONFIG_FILE, which overrides the defaults.
func ReadConfig() (*Config, error) {
	v := newViper()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:     v.GetString("database_url"),
		Port:            v.GetString("port"),
		MetricsEnabled:  v.GetBool("metrics_enabled"),
		LogHealthChecks: v.GetBool("log_health_checks"),
		ScanOnStart:     v.GetBool("scan_on_start"),
		MemoryLimit:     v.GetInt64("memory_limit"),
		MemoryRatio:     v.GetFloat64("memory_ratio"),
	}

	var err error
	if cfg.StorageDir, err = absDir(v, "storage_dir"); err != nil {
		return nil, err
	}
	if cfg.CacheDir, err = absDir(v, "cache_dir"); err != nil {
		return nil, err
	}
	if cfg.DatabaseDir, err = absDir(v, "database_dir"); err != nil {
		return nil, err
	}
	if cfg.PreviewDir, err = absDir(v, "preview_dir"); err != nil {
		return nil, err
	}
	if cfg.ThumbnailDir, err = absDir(v, "thumbnail_dir"); err != nil {
		return nil, err
	}
	if cfg.PreviewDir == "" {
		cfg.PreviewDir = filepath.Join(cfg.CacheDir, "previews")
	}
	if cfg.ThumbnailDir == "" {
		cfg.ThumbnailDir = filepath.Join(cfg.CacheDir, "thumbnails")
	}
	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, "catalog.db")

	if cfg.ScanInterval, err = duration(v, "scan_interval"); err != nil {
		return nil, err
	}
	if cfg.PreviewTimeoutVideo, err = duration(v, "preview_timeout_video"); err != nil {
		return nil, err
	}
	if cfg.PreviewTimeoutHeif, err = duration(v, "preview_timeout_heif"); err != nil {
		return nil, err
	}
	if cfg.PreviewTimeoutVideo <= 0 || cfg.PreviewTimeoutHeif <= 0 {
		return nil, errors.New("preview timeouts must be positive")
	}

	return cfg, nil
}

func absDir(v *viper.Viper, key string) (string, error) {
	dir := v.GetString(key)
	if dir == "" {
		return "", nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", strings.ToUpper(key), err)
	}
	return abs, nil
}

// duration accepts Go durations ("90s") and plain seconds ("90").
func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err == nil {
		return d, nil
	}
	if secs := v.GetInt64(key); secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid %s %q: %w", strings.ToUpper(key), raw, err)
}

// LoadConfig prints the banner, loads the configuration, logs it and
// prepares the directories the server writes to.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	cfg, err := ReadConfig()
	if err != nil {
		return nil, err
	}

	logSection("CONFIGURATION")
	logging.Info("  STORAGE_DIR:           %s", cfg.StorageDir)
	logging.Info("  PREVIEW_DIR:           %s", cfg.PreviewDir)
	logging.Info("  THUMBNAIL_DIR:         %s", cfg.ThumbnailDir)
	if cfg.UsesPostgres() {
		logging.Info("  DATABASE_URL:          %s", redactURL(cfg.DatabaseURL))
	} else {
		logging.Info("  DATABASE_DIR:          %s", cfg.DatabaseDir)
	}
	logging.Info("  PORT:                  %s", cfg.Port)
	logging.Info("  METRICS_ENABLED:       %v", cfg.MetricsEnabled)
	logging.Info("  SCAN_INTERVAL:         %v", cfg.ScanInterval)
	logging.Info("  SCAN_ON_START:         %v", cfg.ScanOnStart)
	logging.Info("  PREVIEW_TIMEOUT_VIDEO: %v", cfg.PreviewTimeoutVideo)
	logging.Info("  PREVIEW_TIMEOUT_HEIF:  %v", cfg.PreviewTimeoutHeif)
	logging.Info("  LOG_LEVEL:             %s", logging.GetLevel())

	logSection("DIRECTORY SETUP")
	if err := ensureDirectory(cfg.StorageDir, "storage"); err != nil {
		return nil, fmt.Errorf("storage directory error: %w", err)
	}
	for name, dir := range map[string]string{"preview": cfg.PreviewDir, "thumbnail": cfg.ThumbnailDir} {
		if err := ensureDirectory(dir, name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", name, err)
		}
		if err := testWriteAccess(dir); err != nil {
			return nil, fmt.Errorf("%s directory is not writable: %w", name, err)
		}
	}
	logging.Info("  [OK] Derivative directories are writable")

	if !cfg.UsesPostgres() {
		if err := ensureDirectory(cfg.DatabaseDir, "database"); err != nil {
			return nil, fmt.Errorf("database directory error: %w", err)
		}
		if err := testWriteAccess(cfg.DatabaseDir); err != nil {
			return nil, fmt.Errorf("database directory is not writable: %w", err)
		}
		logging.Info("  [OK] Database directory is writable")
	}

	return cfg, nil
}

// redactURL hides the password of a connection string.
func redactURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 {
		return raw
	}
	creds := raw[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		creds = creds[:i] + ":****"
	}
	return raw[:scheme+3] + creds + raw[at:]
}
