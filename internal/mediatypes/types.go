package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType represents the derivative pipeline a media file belongs to.
type FileType string

const (
	// FileTypeImage is a raster image decodable in process.
	FileTypeImage FileType = "image"
	// FileTypeHeif is a HEIC/HEIF image handled by an external tool.
	FileTypeHeif FileType = "heif"
	// FileTypeVideo is a video whose first frame becomes the derivative.
	FileTypeVideo FileType = "video"
	// FileTypeSidecar is a metadata sidecar (Google Takeout .json).
	FileTypeSidecar FileType = "sidecar"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// DefaultDerivativeExtension is used for every derivative whose source is
// not HEIC/HEIF.
const DefaultDerivativeExtension = "jpg"

// MimeTypes maps lowercase file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".avif": "image/avif",
	".heic": "image/heic",
	".heif": "image/heif",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".mts":  "video/mp2t",

	// Sidecars
	".json": "application/json",
}

// Ext returns the lowercase extension of name including the leading dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// GetMimeType returns the MIME type for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsImage reports whether the extension's MIME type is image/*.
func IsImage(ext string) bool {
	return strings.HasPrefix(GetMimeType(ext), "image/")
}

// IsVideo reports whether the extension's MIME type is video/*.
func IsVideo(ext string) bool {
	return strings.HasPrefix(GetMimeType(ext), "video/")
}

// IsHeif reports whether the extension is HEIC or HEIF.
func IsHeif(ext string) bool {
	return ext == ".heic" || ext == ".heif"
}

// GetFileType returns the FileType for a given file extension.
// HEIC/HEIF is checked before the generic image/* rule.
func GetFileType(ext string) FileType {
	switch {
	case IsHeif(ext):
		return FileTypeHeif
	case IsVideo(ext):
		return FileTypeVideo
	case IsImage(ext):
		return FileTypeImage
	case ext == ".json":
		return FileTypeSidecar
	default:
		return FileTypeOther
	}
}

// DerivativeExtension returns the extension (without dot) used for the
// preview and thumbnail of a file called name. HEIC/HEIF sources keep their
// own extension; everything else is stored as JPEG.
func DerivativeExtension(name string) string {
	ext := Ext(name)
	if IsHeif(ext) {
		return strings.TrimPrefix(ext, ".")
	}
	return DefaultDerivativeExtension
}

// IsHidden reports whether a base name is a dot file.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
