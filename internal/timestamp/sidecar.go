package timestamp

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
)

// Suffixes Google Takeout adds to edited copies or duplicates whose sidecar
// is named after the original.
var sidecarStemSuffixes = []string{"(1)", "-editat"}

// sidecar is the subset of a Takeout metadata file we read.
type sidecar struct {
	PhotoTakenTime unixTime `json:"photoTakenTime"`
	CreationTime   unixTime `json:"creationTime"`
}

// unixTime accepts a bare number, a numeric string, or
// {"timestamp": "<seconds>"}. Values that are none of those leave valid
// false without failing the whole document.
type unixTime struct {
	seconds uint64
	valid   bool
}

func (u *unixTime) UnmarshalJSON(b []byte) error {
	var obj struct {
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if len(b) > 0 && b[0] == '{' {
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		b = obj.Timestamp
	}
	u.seconds, u.valid = parseUnsigned(b)
	return nil
}

func parseUnsigned(raw json.RawMessage) (uint64, bool) {
	s := strings.TrimSpace(string(raw))
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// sidecarCandidates lists the JSON files that may describe path, in the
// order they are tried.
func sidecarCandidates(path string) []string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidates := []string{path + ".json"}

	legacy := stem
	for _, suffix := range sidecarStemSuffixes {
		legacy = strings.TrimSuffix(legacy, suffix)
	}
	legacy = strings.TrimSpace(legacy)
	if legacy != stem {
		candidates = append(candidates, filepath.Join(dir, legacy+ext+".json"))
	}
	return candidates
}

// FromSidecar reads photoTakenTime, then creationTime, from a JSON sidecar.
func FromSidecar(path string) (time.Time, bool) {
	for _, candidate := range sidecarCandidates(path) {
		if t, ok := readSidecar(candidate); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func readSidecar(path string) (time.Time, bool) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Failed to open sidecar %s: %v", path, err)
		}
		return time.Time{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		logging.Warn("Failed to read sidecar %s: %v", path, err)
		return time.Time{}, false
	}

	var meta sidecar
	if err := json.Unmarshal(data, &meta); err != nil {
		logging.Warn("Malformed sidecar %s: %v", path, err)
		return time.Time{}, false
	}

	var seconds uint64
	switch {
	case meta.PhotoTakenTime.valid:
		seconds = meta.PhotoTakenTime.seconds
	case meta.CreationTime.valid:
		seconds = meta.CreationTime.seconds
	default:
		return time.Time{}, false
	}
	if seconds > uint64(1<<62) {
		return time.Time{}, false
	}
	return time.Unix(int64(seconds), 0).UTC(), true
}
