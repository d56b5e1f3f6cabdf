package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that pins the worker count.
const EnvOverride = "DERIVATIVE_WORKERS"

// Count returns GOMAXPROCS*multiplier workers, at least one and at most
// limit when limit > 0. A positive EnvOverride replaces the calculation.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if n, err := strconv.Atoi(override); err == nil && n > 0 {
			return capAt(n, limit)
		}
	}

	n := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if n < 1 {
		n = 1
	}
	return capAt(n, limit)
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// ForCPU returns one worker per usable CPU. Resizing and encoding
// derivatives is CPU bound.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}
