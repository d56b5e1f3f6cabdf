package media

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	// Decoders beyond the ones imaging registers.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
)

// decodeImage decodes path in process and falls back to libvips. oriented
// reports whether the EXIF orientation has already been applied.
func decodeImage(path string) (img image.Image, oriented bool, err error) {
	img, err = imaging.Open(path)
	if err == nil {
		return img, false, nil
	}
	logging.Debug("imaging.Open failed for %s: %v, trying vips", path, err)

	img, vipsErr := decodeWithVips(path)
	if vipsErr != nil {
		return nil, false, fmt.Errorf("%w: %s: %v (vips: %v)", ErrDecode, filepath.Base(path), err, vipsErr)
	}
	return img, true, nil
}

// readOrientation returns the EXIF orientation of an image, or 0 when the
// file is not an image or carries no orientation tag.
func readOrientation(path string) int {
	if !mediatypes.IsImage(mediatypes.Ext(path)) {
		return 0
	}

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return 0
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return 0
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return v
}

// orient applies orientations 3, 6 and 8. imaging rotates counter-clockwise.
func orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 3:
		return imaging.Rotate180(img)
	case 6:
		return imaging.Rotate270(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// saveImage encodes img in the format implied by dst's extension and moves
// it into place, so readers never see a partial file.
func saveImage(img image.Image, dst string, quality int) error {
	format, err := imaging.FormatFromFilename(dst)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(dst))
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create derivative directory: %w", err)
	}

	tmp := dst + ".tmp-" + uuid.NewString()
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	encErr := imaging.Encode(f, img, format, imaging.JPEGQuality(quality))
	closeErr := f.Close()
	if encErr != nil || closeErr != nil {
		_ = os.Remove(tmp)
		if encErr == nil {
			encErr = closeErr
		}
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(dst), encErr)
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move derivative into place: %w", err)
	}
	return nil
}
