package timestamp

import (
	"bytes"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
)

const exifLayout = "2006:01:02 15:04:05"

var exifDateFields = []exif.FieldName{exif.DateTimeOriginal, exif.DateTime, exif.DateTimeDigitized}

// FromExif reads the first usable date tag from an image's EXIF block.
// Non-image files are skipped without being opened.
func FromExif(path string) (time.Time, bool) {
	if !mediatypes.IsImage(mediatypes.Ext(path)) {
		return time.Time{}, false
	}

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Debug("Failed to open %s for EXIF: %v", path, err)
		return time.Time{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		logging.Debug("No EXIF in %s: %v", path, err)
		return time.Time{}, false
	}

	for _, field := range exifDateFields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		if t, ok := parseExifDate(tag); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseExifDate accepts only an ASCII tag holding a single string. Extra
// NUL-separated entries disqualify the tag.
func parseExifDate(tag *tiff.Tag) (time.Time, bool) {
	if tag.Type != tiff.DTAscii {
		return time.Time{}, false
	}

	parts := bytes.Split(bytes.TrimRight(tag.Val, "\x00"), []byte{0})
	if len(parts) != 1 {
		return time.Time{}, false
	}
	return parseExifString(string(parts[0]))
}

func parseExifString(s string) (time.Time, bool) {
	t, err := time.Parse(exifLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
