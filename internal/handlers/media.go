package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"media-catalog/internal/auth"
	"media-catalog/internal/database"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/media"
)

const derivativeCacheControl = "private, max-age=86400"

// ListPhotos returns the authenticated user's photos.
func (h *Handlers) ListPhotos(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	photos, err := h.repo.GetPhotosByUser(r.Context(), user.ID)
	if err != nil {
		logging.Error("Failed to list photos for %s: %v", user.UserName, err)
		writeJSONError(w, "Failed to list photos", http.StatusInternalServerError)
		return
	}
	if photos == nil {
		photos = []database.Photo{}
	}
	writeJSONStatusCode(w, http.StatusOK, photos)
}

// GetPhoto returns one photo's catalog record.
func (h *Handlers) GetPhoto(w http.ResponseWriter, r *http.Request) {
	photo, _, ok := h.photoForRequest(w, r)
	if !ok {
		return
	}
	writeJSONStatusCode(w, http.StatusOK, photo)
}

// GetPreview serves the photo's preview, generating it on first request.
func (h *Handlers) GetPreview(w http.ResponseWriter, r *http.Request) {
	h.serveDerivative(w, r, h.previews, h.storage.ResolvePreview)
}

// GetThumbnail serves the photo's thumbnail, generating it on first request.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	h.serveDerivative(w, r, h.thumbnails, h.storage.ResolveThumbnail)
}

// DownloadPhoto serves the original file as an attachment.
func (h *Handlers) DownloadPhoto(w http.ResponseWriter, r *http.Request) {
	photo, user, ok := h.photoForRequest(w, r)
	if !ok {
		return
	}
	source, err := h.sourcePath(photo, user)
	if err != nil {
		writeJSONError(w, "Photo not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+sanitizeFilename(photo.Name)+"\"")
	serveFile(w, r, source, "private, no-cache")
}

func (h *Handlers) serveDerivative(w http.ResponseWriter, r *http.Request, mgr *media.Manager, resolve func(string) string) {
	photo, user, ok := h.photoForRequest(w, r)
	if !ok {
		return
	}
	source, err := h.sourcePath(photo, user)
	if err != nil {
		writeJSONError(w, "Photo not found", http.StatusNotFound)
		return
	}

	target := resolve(photo.PartialDerivativePath())
	if mgr.RequestDerivative(r.Context(), media.DerivativeRequest{
		PhotoID:    photo.ID,
		SourcePath: source,
		TargetPath: target,
	}) {
		serveFile(w, r, target, derivativeCacheControl)
		return
	}

	if r.Context().Err() != nil {
		return
	}
	// No derivative: fall back to the original.
	logging.Debug("No %s for photo %d, serving original", mgr.Target(), photo.ID)
	serveFile(w, r, source, "private, no-cache")
}

// photoForRequest loads the photo named by the {id} route variable and
// checks that the authenticated user owns it. Photos of other users are
// reported as not found.
func (h *Handlers) photoForRequest(w http.ResponseWriter, r *http.Request) (*database.Photo, *database.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return nil, nil, false
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "Invalid photo id", http.StatusBadRequest)
		return nil, nil, false
	}

	photo, err := h.repo.GetPhoto(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) || (err == nil && photo.Owner != user.ID) {
		writeJSONError(w, "Photo not found", http.StatusNotFound)
		return nil, nil, false
	}
	if err != nil {
		logging.Error("Failed to load photo %d: %v", id, err)
		writeJSONError(w, "Failed to load photo", http.StatusInternalServerError)
		return nil, nil, false
	}
	return photo, &user, true
}

func (h *Handlers) sourcePath(photo *database.Photo, user *database.User) (string, error) {
	rel, err := photo.PartialPath(user)
	if err != nil {
		return "", err
	}
	return h.storage.ResolvePhoto(rel), nil
}

func serveFile(w http.ResponseWriter, r *http.Request, path, cacheControl string) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Warn("Failed to open %s: %v", path, err)
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Cache-Control", cacheControl)
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, c := range name {
		if c == '"' || c == '\\' || c < 0x20 || c == 0x7f {
			c = '_'
		}
		out = append(out, c)
	}
	return string(out)
}
