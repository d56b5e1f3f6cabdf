package media

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(b)
}

// writeTestImage saves a w x h image whose left half is red and right half
// is blue.
func writeTestImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{B: 255, A: 255})
	for x := 0; x < w/2; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
}

func decodedSize(t *testing.T, path string) (int, int) {
	t.Helper()
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestGenerator_Image(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name         string
		src, dst     string
		w, h         int
		edge         uint32
		wantW, wantH int
	}{
		{"png to jpg preview", "wide.png", "out/1.jpg", 100, 50, 40, 80, 40},
		{"jpeg to jpg thumbnail", "tall.jpeg", "out/2.jpg", 30, 60, 20, 20, 40},
		{"png to png", "small.png", "out/3.png", 10, 10, 25, 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := filepath.Join(dir, tt.src)
			dst := filepath.Join(dir, tt.dst)
			writeTestImage(t, src, tt.w, tt.h)

			g := NewGenerator(Options{Edge: tt.edge})
			if err := g.Generate(context.Background(), src, dst); err != nil {
				t.Fatalf("Generate() error: %v", err)
			}

			w, h := decodedSize(t, dst)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("derivative is %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "out", "*.tmp-*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestGenerator_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(garbage, []byte("not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "good.png")
	writeTestImage(t, good, 8, 8)
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		src, dst string
		wantErr  error
	}{
		{"unsupported source", notes, filepath.Join(dir, "n.jpg"), ErrUnsupported},
		{"no extension", filepath.Join(dir, "README"), filepath.Join(dir, "r.jpg"), ErrUnsupported},
		{"undecodable image", garbage, filepath.Join(dir, "b.jpg"), ErrDecode},
		{"unknown target format", good, filepath.Join(dir, "g.xyz"), ErrUnsupported},
	}

	g := NewGenerator(ThumbnailOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Generate(context.Background(), tt.src, tt.dst)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Generate() = %v, want %v", err, tt.wantErr)
			}
			if _, statErr := os.Stat(tt.dst); statErr == nil {
				t.Errorf("Generate() left %s behind", tt.dst)
			}
		})
	}
}

func TestOrient(t *testing.T) {
	// 2x1: red pixel on the left, blue on the right.
	src := imaging.New(2, 1, color.NRGBA{B: 255, A: 255})
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})

	tests := []struct {
		orientation  int
		wantW, wantH int
		redAt        image.Point
	}{
		{1, 2, 1, image.Pt(0, 0)},
		{3, 2, 1, image.Pt(1, 0)},
		// Clockwise: the left pixel ends up on top.
		{6, 1, 2, image.Pt(0, 0)},
		// Counter-clockwise: the left pixel ends up at the bottom.
		{8, 1, 2, image.Pt(0, 1)},
		{0, 2, 1, image.Pt(0, 0)},
	}

	for _, tt := range tests {
		out := orient(src, tt.orientation)
		b := out.Bounds()
		if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
			t.Errorf("orient(%d) size = %dx%d, want %dx%d", tt.orientation, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			continue
		}
		r, _, _, _ := out.At(tt.redAt.X, tt.redAt.Y).RGBA()
		if r == 0 {
			t.Errorf("orient(%d): red pixel not at %v", tt.orientation, tt.redAt)
		}
	}
}

func TestGenerator_Video(t *testing.T) {
	dir := t.TempDir()
	frame := filepath.Join(dir, "frame.jpg")
	writeTestImage(t, frame, 64, 36)

	src := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(src, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Arguments: -i <src> -o <frame> -s <edge>
	tool := fakeTool(t, "ffmpegthumbnailer", `[ "$6" = "40" ] || exit 9; cp "`+frame+`" "$4"`)

	opts := PreviewOptions()
	opts.Edge = 40
	opts.VideoTool = tool
	g := NewGenerator(opts)

	dst := filepath.Join(dir, "previews", "1", "7.jpg")
	if err := g.Generate(context.Background(), src, dst); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if w, h := decodedSize(t, dst); w != 64 || h != 36 {
		t.Errorf("video derivative is %dx%d, want the extracted frame's 64x36", w, h)
	}

	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("derivative directory holds %d entries, want only the derivative", len(entries))
	}
}

func TestGenerator_VideoFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mov")
	if err := os.WriteFile(src, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := PreviewOptions()
	opts.VideoTool = fakeTool(t, "ffmpegthumbnailer", `echo partial > "$4"; exit 1`)
	g := NewGenerator(opts)

	dst := filepath.Join(dir, "previews", "9.jpg")
	if err := g.Generate(context.Background(), src, dst); !errors.Is(err, ErrToolFailed) {
		t.Fatalf("Generate() = %v, want ErrToolFailed", err)
	}

	entries, _ := os.ReadDir(filepath.Dir(dst))
	if len(entries) != 0 {
		t.Errorf("failed video generation left %d files", len(entries))
	}
}

func TestGenerator_Heif(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "IMG_0001.HEIC")
	if err := os.WriteFile(src, []byte("heic"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("success", func(t *testing.T) {
		// Arguments: -s <edge> <src> <dst>
		opts := ThumbnailOptions()
		opts.HeifTool = fakeTool(t, "heif-thumbnailer", `[ "$2" = "250" ] || exit 9; cp "$3" "$4"`)
		dst := filepath.Join(dir, "thumbs", "1.heic")

		if err := NewGenerator(opts).Generate(context.Background(), src, dst); err != nil {
			t.Fatalf("Generate() error: %v", err)
		}
		if got := readFile(t, dst); got != "heic" {
			t.Errorf("derivative content = %q", got)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		opts := ThumbnailOptions()
		opts.HeifTool = fakeTool(t, "heif-thumbnailer", `echo partial > "$4"; exec sleep 5`)
		opts.HeifTimeout = 100 * time.Millisecond
		dst := filepath.Join(dir, "thumbs", "2.heic")

		start := time.Now()
		err := NewGenerator(opts).Generate(context.Background(), src, dst)
		if !errors.Is(err, ErrToolTimeout) {
			t.Fatalf("Generate() = %v, want ErrToolTimeout", err)
		}
		if elapsed := time.Since(start); elapsed > 3*time.Second {
			t.Errorf("timed out generation took %v", elapsed)
		}
		if _, err := os.Stat(dst); !os.IsNotExist(err) {
			t.Errorf("partial derivative left at %s", dst)
		}
	})
}

func TestNewGenerator_Defaults(t *testing.T) {
	g := NewGenerator(Options{})
	want := PreviewOptions()
	if g.opts != want {
		t.Errorf("NewGenerator(Options{}) options = %+v, want %+v", g.opts, want)
	}
	if ThumbnailOptions().Edge != ThumbnailEdge {
		t.Errorf("ThumbnailOptions().Edge = %d", ThumbnailOptions().Edge)
	}
}
