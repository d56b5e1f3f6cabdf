package timestamp

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// 2016-09-22 16:04:30, IMG_20160922_160430, ...
	dateTimePattern = regexp.MustCompile(`(\d{4})\D*(\d{2})\D*(\d{2})\D*(\d{2})\D*(\d{2})\D*(\d{2})`)
	// 20160922, 2016-09-22
	datePattern = regexp.MustCompile(`(\d{4})\D?(\d{2})\D?(\d{2})`)
	// 1474560270000; the greedy prefix picks the rightmost 13 digits.
	millisPattern = regexp.MustCompile(`.*(\d{13})`)
)

// FromFileName parses a date out of the file stem. The date patterns only
// look at their leftmost match and the millis pattern at its rightmost; an
// impossible date moves on to the next pattern.
func FromFileName(path string) (time.Time, bool) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	if m := dateTimePattern.FindStringSubmatch(stem); m != nil {
		if t, ok := civil(atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]), atoi(m[5]), atoi(m[6])); ok {
			return t, true
		}
	}

	if m := datePattern.FindStringSubmatch(stem); m != nil {
		if t, ok := civil(atoi(m[1]), atoi(m[2]), atoi(m[3]), 0, 0, 0); ok {
			return t, true
		}
	}

	if m := millisPattern.FindStringSubmatch(stem); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			return time.Unix(ms/1000, 0).UTC(), true
		}
	}

	return time.Time{}, false
}

// atoi is only called on regexp digit groups.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
