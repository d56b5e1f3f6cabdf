package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
)

// LocationRequest names the folder a photo moves to. An empty folder is
// the owner's root.
type LocationRequest struct {
	Folder string `json:"folder"`
}

func validFolder(folder string) bool {
	if folder == "" {
		return true
	}
	return folder != ".." && !mediatypes.IsHidden(folder) && !strings.ContainsAny(folder, `/\`)
}

// MovePhoto moves the original into another folder of the owner's root and
// updates its catalog row. Derivatives are keyed by id and stay in place.
func (h *Handlers) MovePhoto(w http.ResponseWriter, r *http.Request) {
	photo, user, ok := h.photoForRequest(w, r)
	if !ok {
		return
	}

	var req LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !validFolder(req.Folder) {
		writeJSONError(w, "Invalid folder", http.StatusBadRequest)
		return
	}
	if req.Folder == photo.Folder {
		writeJSONStatusCode(w, http.StatusOK, photo)
		return
	}

	fromRel, err := photo.PartialPath(user)
	if err != nil {
		writeJSONError(w, "Photo not found", http.StatusNotFound)
		return
	}
	moved := *photo
	moved.Folder = req.Folder
	toRel, err := moved.PartialPath(user)
	if err != nil {
		writeJSONError(w, "Photo not found", http.StatusNotFound)
		return
	}

	if h.storage.Exists(h.storage.ResolvePhoto(toRel)) {
		writeJSONError(w, "A file with that name already exists", http.StatusConflict)
		return
	}
	if err := h.storage.MovePhoto(fromRel, toRel); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeJSONError(w, "Photo not found", http.StatusNotFound)
			return
		}
		logging.Error("Failed to move photo %d: %v", photo.ID, err)
		writeJSONError(w, "Failed to move photo", http.StatusInternalServerError)
		return
	}

	if err := h.repo.UpdatePhoto(r.Context(), &moved); err != nil {
		logging.Error("Failed to update photo %d after move: %v", photo.ID, err)
		if uerr := h.storage.MovePhoto(toRel, fromRel); uerr != nil {
			logging.Error("Failed to move photo %d back to %s: %v", photo.ID, fromRel, uerr)
		}
		writeJSONError(w, "Failed to move photo", http.StatusInternalServerError)
		return
	}

	logging.Info("Moved photo %d of %s to %q", photo.ID, user.UserName, req.Folder)
	writeJSONStatusCode(w, http.StatusOK, moved)
}

// DeletePhoto removes the original and its derivatives, then the catalog
// row. A missing file is not an error.
func (h *Handlers) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	photo, user, ok := h.photoForRequest(w, r)
	if !ok {
		return
	}
	source, err := h.sourcePath(photo, user)
	if err != nil {
		writeJSONError(w, "Photo not found", http.StatusNotFound)
		return
	}

	if err := os.Remove(source); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Error("Failed to remove %s: %v", source, err)
		writeJSONError(w, "Failed to delete photo", http.StatusInternalServerError)
		return
	}
	rel := photo.PartialDerivativePath()
	for _, derivative := range []string{h.storage.ResolvePreview(rel), h.storage.ResolveThumbnail(rel)} {
		if err := os.Remove(derivative); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.Warn("Failed to remove %s: %v", derivative, err)
		}
	}

	// The next scan drops the row if this fails, since the original is gone.
	if err := h.repo.DeletePhotos(r.Context(), []int64{photo.ID}); err != nil {
		logging.Error("Failed to delete photo %d: %v", photo.ID, err)
		writeJSONError(w, "Failed to delete photo", http.StatusInternalServerError)
		return
	}

	logging.Info("Deleted photo %d of %s", photo.ID, user.UserName)
	w.WriteHeader(http.StatusNoContent)
}
