package timestamp

import (
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Strategy resolves a creation time for the file at path.
type Strategy func(path string) (time.Time, bool)

// Heuristic is a named Strategy. The name labels metrics and debug logs.
type Heuristic struct {
	Name    string
	Resolve Strategy
}

// Resolver applies heuristics in order.
type Resolver struct {
	heuristics []Heuristic
}

// NewResolver returns a Resolver that tries heuristics in the given order.
func NewResolver(heuristics ...Heuristic) *Resolver {
	return &Resolver{heuristics: heuristics}
}

// Default returns the sidecar, EXIF, file name chain.
func Default() *Resolver {
	return NewResolver(
		Heuristic{Name: "sidecar", Resolve: FromSidecar},
		Heuristic{Name: "exif", Resolve: FromExif},
		Heuristic{Name: "filename", Resolve: FromFileName},
	)
}

// Resolve returns the first time any heuristic produces for path.
func (r *Resolver) Resolve(path string) (time.Time, bool) {
	t, _, ok := r.ResolveSource(path)
	return t, ok
}

// ResolveSource is Resolve that also names the heuristic that succeeded.
func (r *Resolver) ResolveSource(path string) (time.Time, string, bool) {
	for _, h := range r.heuristics {
		if t, ok := h.Resolve(path); ok {
			logging.Debug("Timestamp for %s from %s: %s", path, h.Name, t.Format(time.DateTime))
			metrics.IndexerTimestampSource.WithLabelValues(h.Name).Inc()
			return t, h.Name, true
		}
	}
	return time.Time{}, "", false
}

// civil builds a UTC time and rejects out-of-range fields instead of
// normalising them the way time.Date does.
func civil(year, month, day, hour, minute, second int) (time.Time, bool) {
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return time.Time{}, false
	}
	return t, true
}
