package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

const (
	// PreviewEdge is the minimum side of a preview.
	PreviewEdge = 500
	// ThumbnailEdge is the minimum side of a thumbnail.
	ThumbnailEdge = 250

	// DefaultJPEGQuality is used for .jpg/.jpeg derivatives.
	DefaultJPEGQuality = 70
)

var (
	// ErrUnsupported means the source or target extension has no generation routine.
	ErrUnsupported = errors.New("unsupported media type")
	// ErrDecode means an image could not be decoded.
	ErrDecode = errors.New("failed to decode image")
)

// Options configures a Generator.
type Options struct {
	// Edge is the target square edge of the fill-resize.
	Edge uint32

	VideoTool    string
	VideoTimeout time.Duration
	HeifTool     string
	HeifTimeout  time.Duration

	JPEGQuality int
}

// PreviewOptions returns the options used for the preview tree.
func PreviewOptions() Options {
	return Options{
		Edge:         PreviewEdge,
		VideoTool:    "ffmpegthumbnailer",
		VideoTimeout: 15 * time.Second,
		HeifTool:     "heif-thumbnailer",
		HeifTimeout:  5 * time.Second,
		JPEGQuality:  DefaultJPEGQuality,
	}
}

// ThumbnailOptions returns the options used for the thumbnail tree.
func ThumbnailOptions() Options {
	opts := PreviewOptions()
	opts.Edge = ThumbnailEdge
	return opts
}

// Generator produces one derivative from one source file.
type Generator struct {
	opts Options
}

// NewGenerator creates a Generator. Zero fields in opts take the preview
// defaults.
func NewGenerator(opts Options) *Generator {
	def := PreviewOptions()
	if opts.Edge == 0 {
		opts.Edge = def.Edge
	}
	if opts.VideoTool == "" {
		opts.VideoTool = def.VideoTool
	}
	if opts.VideoTimeout <= 0 {
		opts.VideoTimeout = def.VideoTimeout
	}
	if opts.HeifTool == "" {
		opts.HeifTool = def.HeifTool
	}
	if opts.HeifTimeout <= 0 {
		opts.HeifTimeout = def.HeifTimeout
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = def.JPEGQuality
	}
	return &Generator{opts: opts}
}

// Edge returns the configured target edge.
func (g *Generator) Edge() uint32 { return g.opts.Edge }

// Generate writes the derivative of src to dst. The routine is picked by
// the source's kind. Errors wrap ErrUnsupported, ErrDecode, ErrToolTimeout
// or ErrToolFailed; none leave a partial file at dst.
func (g *Generator) Generate(ctx context.Context, src, dst string) (err error) {
	kind := KindOf(src)
	start := time.Now()

	defer func() {
		status := "success"
		switch {
		case errors.Is(err, ErrToolTimeout):
			status = "timeout"
		case err != nil:
			status = "error"
		}
		metrics.DerivativeGenerationsTotal.WithLabelValues(kind.String(), status).Inc()
		metrics.DerivativeGenerationDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())

		if err != nil {
			logging.Warn("Derivative generation failed for %s: %v", src, err)
		} else {
			logging.Debug("Generated %s derivative %s in %v", kind, dst, time.Since(start))
		}
	}()

	switch kind {
	case KindVideo:
		return g.generateVideo(ctx, src, dst)
	case KindHeif:
		return g.generateHeif(ctx, src, dst)
	case KindImage:
		return g.generateImage(src, dst)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(src))
	}
}

// generateVideo lets ffmpegthumbnailer write a JPEG frame next to dst and
// re-encodes it into dst's format.
func (g *Generator) generateVideo(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create derivative directory: %w", err)
	}

	stem := strings.TrimSuffix(dst, filepath.Ext(dst))
	frame := stem + "." + uuid.NewString() + ".jpg"
	defer func() {
		if err := os.Remove(frame); err != nil && !os.IsNotExist(err) {
			logging.Warn("Failed to remove video frame %s: %v", frame, err)
		}
	}()

	err := runWithTimeout(ctx, g.opts.VideoTimeout, g.opts.VideoTool,
		"-i", src, "-o", frame, "-s", strconv.FormatUint(uint64(g.opts.Edge), 10))
	if err != nil {
		return err
	}

	img, err := imaging.Open(frame)
	if err != nil {
		return fmt.Errorf("%w: video frame of %s: %v", ErrDecode, filepath.Base(src), err)
	}
	return saveImage(img, dst, g.opts.JPEGQuality)
}

// generateHeif delegates entirely to heif-thumbnailer. A failed run may
// leave a partial dst, which is removed.
func (g *Generator) generateHeif(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create derivative directory: %w", err)
	}

	err := runWithTimeout(ctx, g.opts.HeifTimeout, g.opts.HeifTool,
		"-s", strconv.FormatUint(uint64(g.opts.Edge), 10), src, dst)
	if err != nil {
		_ = os.Remove(dst)
	}
	return err
}

func (g *Generator) generateImage(src, dst string) error {
	orientation := readOrientation(src)

	img, oriented, err := decodeImage(src)
	if err != nil {
		return err
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: %s has no pixels", ErrDecode, filepath.Base(src))
	}

	w, h := FillDimensions(uint32(b.Dx()), uint32(b.Dy()), g.opts.Edge)
	var out image.Image = imaging.Resize(img, int(w), int(h), imaging.NearestNeighbor)
	if !oriented {
		out = orient(out, orientation)
	}

	return saveImage(out, dst, g.opts.JPEGQuality)
}
