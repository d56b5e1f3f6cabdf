package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"media-catalog/internal/indexer"
	"media-catalog/internal/logging"
	"media-catalog/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

const readinessTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status      string          `json:"status"`
	Version     string          `json:"version"`
	Uptime      string          `json:"uptime"`
	Indexing    bool            `json:"indexing"`
	LastIndexed string          `json:"lastIndexed,omitempty"`
	LastResult  *indexer.Result `json:"lastResult,omitempty"`
	LastError   string          `json:"lastError,omitempty"`

	PreviewsInFlight   int  `json:"previewsInFlight"`
	ThumbnailsInFlight int  `json:"thumbnailsInFlight"`
	BackfillRunning    bool `json:"backfillRunning"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports indexer and derivative state. A failed last scan
// marks the service degraded but still answers 200.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.indexer.GetHealthStatus()

	response := HealthResponse{
		Status:             statusHealthy,
		Version:            startup.Version,
		Uptime:             status.Uptime,
		Indexing:           status.Indexing,
		LastResult:         status.LastResult,
		LastError:          status.LastError,
		PreviewsInFlight:   h.previews.InFlight(),
		ThumbnailsInFlight: h.thumbnails.InFlight(),
		BackfillRunning:    h.backfill.Running(),
		GoVersion:          runtime.Version(),
		NumCPU:             runtime.NumCPU(),
		NumGoroutine:       runtime.NumGoroutine(),
	}
	if !status.LastIndexed.IsZero() {
		response.LastIndexed = status.LastIndexed.Format(time.RFC3339)
	}
	if status.LastError != "" {
		response.Status = statusDegraded
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when the catalog database answers.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		logging.Warn("Readiness check failed: %v", err)
		writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSONStatusCode(w, http.StatusOK, map[string]string{"status": "ready"})
}
