package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"media-catalog/internal/logging"
)

// Catalog size metrics, refreshed by Collector.
var (
	CatalogUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_users",
			Help: "Number of users with a media root",
		},
	)

	CatalogPhotos = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_photos",
			Help: "Number of catalogued photos and videos",
		},
	)
)

// StatsProvider reports catalog totals.
type StatsProvider interface {
	CatalogStats(ctx context.Context) (Stats, error)
}

// Stats holds the current catalog totals.
type Stats struct {
	Users  int
	Photos int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start(ctx context.Context) {
	go c.collectLoop(ctx)
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop(ctx context.Context) {
	c.collect(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect(ctx)
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Collector) collect(ctx context.Context) {
	if c.statsProvider == nil {
		return
	}

	stats, err := c.statsProvider.CatalogStats(ctx)
	if err != nil {
		logging.Warn("Failed to collect catalog stats: %v", err)
		return
	}

	CatalogUsers.Set(float64(stats.Users))
	CatalogPhotos.Set(float64(stats.Photos))

	logging.Debug("Metrics collected: users=%d, photos=%d", stats.Users, stats.Photos)
}
