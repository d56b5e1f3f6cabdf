package handlers

import (
	"errors"
	"net/http"

	"media-catalog/internal/logging"
	"media-catalog/internal/media"
)

// GetStats returns catalog totals and the last scan result.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.indexer.CatalogStats(r.Context())
	if err != nil {
		logging.Error("Failed to read catalog stats: %v", err)
		writeJSONError(w, "Failed to read stats", http.StatusInternalServerError)
		return
	}
	status := h.indexer.GetHealthStatus()
	writeJSONStatusCode(w, http.StatusOK, map[string]interface{}{
		"users":       stats.Users,
		"photos":      stats.Photos,
		"indexing":    status.Indexing,
		"lastIndexed": status.LastIndexed,
		"lastResult":  status.LastResult,
	})
}

// TriggerScan starts a catalog scan in the background.
func (h *Handlers) TriggerScan(w http.ResponseWriter, _ *http.Request) {
	if !h.indexer.Trigger() {
		writeJSONError(w, "Scan already in progress", http.StatusConflict)
		return
	}
	writeJSONStatusCode(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// TriggerBackfill starts a background derivative backfill. It runs under
// the server's base context so it outlives the request.
func (h *Handlers) TriggerBackfill(w http.ResponseWriter, _ *http.Request) {
	if h.backfill.Running() {
		writeJSONError(w, "Backfill already in progress", http.StatusConflict)
		return
	}

	go func() {
		_, err := h.backfill.GenerateAllBackground(h.baseCtx)
		switch {
		case errors.Is(err, media.ErrBackfillRunning):
			logging.Debug("Backfill request raced a running backfill")
		case err != nil:
			logging.Warn("Background backfill stopped: %v", err)
		}
	}()
	writeJSONStatusCode(w, http.StatusAccepted, map[string]string{"status": "started"})
}
