// Package util provides formatting, file and host helpers shared by the
// tuning pipeline.
package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	KiB = 1024
	MiB = KiB * 1024
	GiB = MiB * 1024
)

// FormatBytes formats bytes with binary units.
func FormatBytes(bytes uint64) string {
	bf := float64(bytes)
	switch {
	case bf >= GiB:
		return fmt.Sprintf("%.2f GiB", bf/GiB)
	case bf >= MiB:
		return fmt.Sprintf("%.2f MiB", bf/MiB)
	case bf >= KiB:
		return fmt.Sprintf("%.2f KiB", bf/KiB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatClock renders d as HH:MM:SS. Fractions of a second are dropped.
func FormatClock(d time.Duration) string {
	if d < 0 {
		return "??:??:??"
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s%3600/60, s%60)
}

// FormatSeconds is FormatClock for a probed duration in seconds.
func FormatSeconds(secs float64) string {
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return "??:??:??"
	}
	return FormatClock(time.Duration(secs * float64(time.Second)))
}

// ParseClock parses an HH:MM:SS[.frac] timestamp as printed in ffmpeg
// progress lines.
func ParseClock(s string) (float64, bool) {
	fields := strings.Split(s, ":")
	if len(fields) != 3 {
		return 0, false
	}
	var total float64
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}
