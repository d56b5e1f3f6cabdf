package timestamp

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rwcarlsen/goexif/tiff"
)

// tinyTIFF builds a little-endian TIFF whose only IFD entry is an ASCII
// DateTime (0x0132) tag holding value.
func tinyTIFF(value string) []byte {
	var b bytes.Buffer
	le := binary.LittleEndian
	val := append([]byte(value), 0)

	b.WriteString("II*\x00")
	_ = binary.Write(&b, le, uint32(8))
	_ = binary.Write(&b, le, uint16(1))
	_ = binary.Write(&b, le, uint16(0x0132))
	_ = binary.Write(&b, le, uint16(2))
	_ = binary.Write(&b, le, uint32(len(val)))
	_ = binary.Write(&b, le, uint32(26))
	_ = binary.Write(&b, le, uint32(0))
	b.Write(val)
	return b.Bytes()
}

func TestFromExif(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.tif")
	if err := os.WriteFile(path, tinyTIFF("2016:09:22 16:04:30"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, ok := FromExif(path)
	if !ok {
		t.Fatal("FromExif() found no date")
	}
	if want := time.Date(2016, 9, 22, 16, 4, 30, 0, time.UTC); !got.Equal(want) {
		t.Errorf("FromExif() = %v, want %v", got, want)
	}
}

func TestFromExif_SkipsNonImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, tinyTIFF("2016:09:22 16:04:30"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := FromExif(path); ok {
		t.Error("FromExif() read EXIF from a video")
	}
}

func TestFromExif_NoExif(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := FromExif(path); ok {
		t.Error("FromExif() found a date in garbage")
	}
}

func TestParseExifDate(t *testing.T) {
	tests := []struct {
		name string
		tag  tiff.Tag
		ok   bool
	}{
		{"single string", tiff.Tag{Type: tiff.DTAscii, Val: []byte("2016:09:22 16:04:30\x00")}, true},
		{"no terminator", tiff.Tag{Type: tiff.DTAscii, Val: []byte("2016:09:22 16:04:30")}, true},
		{"padded", tiff.Tag{Type: tiff.DTAscii, Val: []byte("2016:09:22 16:04:30\x00\x00\x00")}, true},
		{"two strings", tiff.Tag{Type: tiff.DTAscii, Val: []byte("2016:09:22 16:04:30\x002017:01:01 00:00:00\x00")}, false},
		{"wrong type", tiff.Tag{Type: tiff.DTShort, Val: []byte{1, 0}}, false},
		{"wrong layout", tiff.Tag{Type: tiff.DTAscii, Val: []byte("2016-09-22T16:04:30\x00")}, false},
		{"invalid date", tiff.Tag{Type: tiff.DTAscii, Val: []byte("2016:02:30 16:04:30\x00")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := parseExifDate(&tt.tag); ok != tt.ok {
				t.Errorf("parseExifDate() ok = %v, want %v", ok, tt.ok)
			}
		})
	}
}
