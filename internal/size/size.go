// Package size converts between human-readable size strings and byte counts.
package size

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Warner receives non-fatal notifications about malformed input.
type Warner interface {
	Warnf(format string, args ...interface{})
}

// Binary multipliers
const (
	B  = 1
	KB = 1024 * B
	MB = 1024 * KB
	GB = 1024 * MB
)

var sizePattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)?\s*(b|kb|mb|gb)?$`)

var multipliers = map[string]float64{
	"b":  B,
	"kb": KB,
	"mb": MB,
	"gb": GB,
}

// Parse converts strings like "150kb" or "1.5MB" into bytes. Units are binary
// and default to bytes. Malformed input yields 0 and a warning through w.
func Parse(input string, w Warner) int64 {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		warn(w, "Invalid size format: %q, treating as 0 bytes", input)
		return 0
	}

	match := sizePattern.FindStringSubmatch(trimmed)
	if match == nil {
		warn(w, "Invalid size format: %q, treating as 0 bytes", input)
		return 0
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		warn(w, "Invalid size value in %q, treating as 0 bytes", input)
		return 0
	}

	unit := strings.ToLower(match[2])
	if unit == "" {
		unit = "b"
	}

	return int64(math.Round(value * multipliers[unit]))
}

// Format renders a byte count with binary units, e.g. "150 KiB".
func Format(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatDelta renders a signed byte delta with an explicit sign.
func FormatDelta(delta int64) string {
	if delta > 0 {
		return "+" + Format(delta)
	}
	return Format(delta)
}

func warn(w Warner, format string, args ...interface{}) {
	if w == nil {
		return
	}
	w.Warnf(format, args...)
}
