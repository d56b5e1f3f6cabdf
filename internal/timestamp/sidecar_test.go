package timestamp

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFromSidecar(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int64
		wantOK  bool
	}{
		{"bare number", `{"photoTakenTime": 1474560270}`, 1474560270, true},
		{"takeout object", `{"photoTakenTime": {"timestamp": "1474560270", "formatted": "..."}}`, 1474560270, true},
		{"creation only", `{"creationTime": {"timestamp": "1000"}}`, 1000, true},
		{"photo taken preferred", `{"photoTakenTime": 2000, "creationTime": 1000}`, 2000, true},
		{"only creation parseable", `{"photoTakenTime": {"timestamp": "soon"}, "creationTime": 1000}`, 1000, true},
		{"only photo taken parseable", `{"photoTakenTime": "2000", "creationTime": -5}`, 2000, true},
		{"neither parseable", `{"photoTakenTime": "x", "creationTime": null}`, 0, false},
		{"no time fields", `{"title": "a.jpg"}`, 0, false},
		{"malformed json", `{"photoTakenTime": `, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			media := filepath.Join(dir, "a.jpg")
			writeFile(t, media+".json", tt.content)

			got, ok := FromSidecar(media)
			if ok != tt.wantOK {
				t.Fatalf("FromSidecar() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(time.Unix(tt.want, 0)) {
				t.Errorf("FromSidecar() = %v, want unix %d", got, tt.want)
			}
			if ok && got.Location() != time.UTC {
				t.Errorf("FromSidecar() location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestFromSidecar_Missing(t *testing.T) {
	if _, ok := FromSidecar(filepath.Join(t.TempDir(), "a.jpg")); ok {
		t.Error("FromSidecar() found a time without a sidecar")
	}
}

func TestFromSidecar_LegacyName(t *testing.T) {
	tests := []struct {
		media   string
		sidecar string
	}{
		{"IMG_0001(1).jpg", "IMG_0001.jpg.json"},
		{"IMG_0001-editat.jpg", "IMG_0001.jpg.json"},
		{"IMG 0001 (1).jpg", "IMG 0001.jpg.json"},
	}

	for _, tt := range tests {
		t.Run(tt.media, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, tt.sidecar), `{"photoTakenTime": {"timestamp": "1474560270"}}`)

			got, ok := FromSidecar(filepath.Join(dir, tt.media))
			if !ok {
				t.Fatal("FromSidecar() did not find the legacy sidecar")
			}
			if !got.Equal(time.Unix(1474560270, 0)) {
				t.Errorf("FromSidecar() = %v", got)
			}
		})
	}
}

func TestFromSidecar_MalformedPrimaryFallsBackToLegacy(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "a-editat.jpg")
	writeFile(t, media+".json", `not json`)
	writeFile(t, filepath.Join(dir, "a.jpg.json"), `{"creationTime": 77}`)

	got, ok := FromSidecar(media)
	if !ok || !got.Equal(time.Unix(77, 0)) {
		t.Errorf("FromSidecar() = %v, %v", got, ok)
	}
}

func TestSidecarCandidates(t *testing.T) {
	got := sidecarCandidates("/p/alice/a.jpg")
	if len(got) != 1 || got[0] != "/p/alice/a.jpg.json" {
		t.Errorf("sidecarCandidates(plain) = %v", got)
	}

	got = sidecarCandidates("/p/alice/a(1).jpg")
	if len(got) != 2 || got[1] != filepath.Join("/p/alice", "a.jpg.json") {
		t.Errorf("sidecarCandidates(dup) = %v", got)
	}
}
