package media

import (
	"math"
	"testing"
)

func TestFillDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
		edge          uint32
		wantW, wantH  uint32
	}{
		{"landscape shrinks to cover", 100, 50, 40, 80, 40},
		{"portrait shrinks to cover", 50, 100, 40, 40, 80},
		{"square", 1000, 1000, 500, 500, 500},
		{"camera photo", 4000, 3000, 500, 667, 500},
		{"tiny image grows", 1, 1, 250, 250, 250},
		{"thin strip keeps at least one pixel", 100000, 1, 1, 100000, 1},
		{"height overflow pins height", 1, math.MaxUint32, 500, 1, math.MaxUint32},
		{"width overflow pins width", math.MaxUint32, 1, 500, math.MaxUint32, 1},
		{"wide overflow scales other side", math.MaxUint32 / 2, 2, 500, math.MaxUint32, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FillDimensions(tt.width, tt.height, tt.edge)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("FillDimensions(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.width, tt.height, tt.edge, w, h, tt.wantW, tt.wantH)
			}
			if w < 1 || h < 1 {
				t.Errorf("FillDimensions returned an empty side: (%d, %d)", w, h)
			}
		})
	}
}

func TestFillDimensions_Covers(t *testing.T) {
	for _, size := range [][2]uint32{{640, 480}, {480, 640}, {1920, 1080}, {333, 777}, {7, 3}} {
		w, h := FillDimensions(size[0], size[1], ThumbnailEdge)
		if w < ThumbnailEdge || h < ThumbnailEdge {
			t.Errorf("FillDimensions(%d, %d) = (%d, %d), does not cover %d", size[0], size[1], w, h, ThumbnailEdge)
		}
		if w != ThumbnailEdge && h != ThumbnailEdge {
			t.Errorf("FillDimensions(%d, %d) = (%d, %d), neither side equals %d", size[0], size[1], w, h, ThumbnailEdge)
		}
	}
}
