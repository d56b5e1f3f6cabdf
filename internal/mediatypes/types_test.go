package mediatypes

import "testing"

func TestGetFileType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want FileType
	}{
		{name: "JPEG image", ext: ".jpg", want: FileTypeImage},
		{name: "PNG image", ext: ".png", want: FileTypeImage},
		{name: "WebP image", ext: ".webp", want: FileTypeImage},
		{name: "HEIC", ext: ".heic", want: FileTypeHeif},
		{name: "HEIF", ext: ".heif", want: FileTypeHeif},
		{name: "MP4 video", ext: ".mp4", want: FileTypeVideo},
		{name: "WebM video", ext: ".webm", want: FileTypeVideo},
		{name: "MOV video", ext: ".mov", want: FileTypeVideo},
		{name: "JSON sidecar", ext: ".json", want: FileTypeSidecar},
		{name: "Unknown extension", ext: ".xyz", want: FileTypeOther},
		{name: "Empty extension", ext: "", want: FileTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetFileType(tt.ext); got != tt.want {
				t.Errorf("GetFileType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".jpg", "image/jpeg"},
		{".heic", "image/heic"},
		{".mp4", "video/mp4"},
		{".txt", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := GetMimeType(tt.ext); got != tt.want {
				t.Errorf("GetMimeType(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestExt(t *testing.T) {
	tests := map[string]string{
		"IMG_0001.JPG":      ".jpg",
		"dir/clip.Mp4":      ".mp4",
		"archive.tar.gz":    ".gz",
		"no-extension":      "",
		"photo.jpg.json":    ".json",
		"20160922 (1).HEIC": ".heic",
	}
	for in, want := range tests {
		if got := Ext(in); got != want {
			t.Errorf("Ext(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDerivativeExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"photo.jpg", "jpg"},
		{"photo.JPEG", "jpg"},
		{"scan.png", "jpg"},
		{"clip.mp4", "jpg"},
		{"IMG_0001.HEIC", "heic"},
		{"IMG_0002.heif", "heif"},
		{"noext", "jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DerivativeExtension(tt.name); got != tt.want {
				t.Errorf("DerivativeExtension(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestIsHidden(t *testing.T) {
	if !IsHidden(".DS_Store") {
		t.Error("IsHidden(.DS_Store) = false")
	}
	if IsHidden("photo.jpg") {
		t.Error("IsHidden(photo.jpg) = true")
	}
}
