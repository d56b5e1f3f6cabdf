package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
)

// ErrOutsideRoot is returned when a relative path escapes its tree.
var ErrOutsideRoot = errors.New("path escapes storage root")

// Resolver turns relative paths into absolute ones under fixed roots.
type Resolver struct {
	photosDir     string
	previewsDir   string
	thumbnailsDir string
}

// New creates a Resolver. The directories are created when missing.
func New(photosDir, previewsDir, thumbnailsDir string) (*Resolver, error) {
	r := &Resolver{}
	for _, d := range []struct {
		dst  *string
		path string
		name string
	}{
		{&r.photosDir, photosDir, "photos"},
		{&r.previewsDir, previewsDir, "previews"},
		{&r.thumbnailsDir, thumbnailsDir, "thumbnails"},
	} {
		abs, err := filepath.Abs(d.path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s directory: %w", d.name, err)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", d.name, err)
		}
		*d.dst = abs
	}
	return r, nil
}

// Volumes returns the volume name to root mapping used for metric labels.
func (r *Resolver) Volumes() map[string]string {
	return map[string]string{
		"photos":     r.photosDir,
		"previews":   r.previewsDir,
		"thumbnails": r.thumbnailsDir,
	}
}

// PhotosDir returns the root of the original media tree.
func (r *Resolver) PhotosDir() string { return r.photosDir }

func join(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// ResolvePhoto returns the absolute path of an original file, or of a
// user's root when rel is just the user name.
func (r *Resolver) ResolvePhoto(rel string) string {
	return join(r.photosDir, rel)
}

// ResolvePreview returns the absolute path of a preview.
func (r *Resolver) ResolvePreview(rel string) string {
	return join(r.previewsDir, rel)
}

// ResolveThumbnail returns the absolute path of a thumbnail.
func (r *Resolver) ResolveThumbnail(rel string) string {
	return join(r.thumbnailsDir, rel)
}

// Exists reports whether an absolute path exists.
func (r *Resolver) Exists(path string) bool {
	return filesystem.Exists(path)
}

// MovePhoto renames an original inside the photos tree, creating the
// destination's parent directories. Both paths are relative to the root.
func (r *Resolver) MovePhoto(fromRel, toRel string) error {
	from := r.ResolvePhoto(fromRel)
	to := r.ResolvePhoto(toRel)
	for _, p := range []string{from, to} {
		if !within(r.photosDir, p) {
			return fmt.Errorf("%w: %s", ErrOutsideRoot, p)
		}
	}

	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to move %s: %w", fromRel, err)
	}
	logging.Debug("Moved %s to %s", fromRel, toRel)
	return nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
