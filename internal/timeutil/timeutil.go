// Package timeutil provides time formatting utilities for FFmpeg commands.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatSeconds converts seconds to HH:MM:SS.mmm format for FFmpeg.
//
// Example:
//
//	FormatSeconds(0)      // "00:00:00.000"
//	FormatSeconds(90)     // "00:01:30.000"
//	FormatSeconds(3661)   // "01:01:01.000"
//	FormatSeconds(30.53)  // "00:00:30.530"
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds*1000 + 0.5)
	hours := ms / 3_600_000
	minutes := (ms % 3_600_000) / 60_000
	secs := float64(ms%60_000) / 1000
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, secs)
}

// FormatDecimal renders seconds as a plain decimal with millisecond
// precision, the form -t and -ss accept ("4.5", "12.034").
func FormatDecimal(seconds float64) string {
	return strconv.FormatFloat(float64(int64(seconds*1000+0.5))/1000, 'f', -1, 64)
}

// ParseClock parses ffmpeg's HH:MM:SS[.frac] clock (as printed in
// out_time) into seconds. A leading '-' is accepted.
func ParseClock(s string) (float64, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}

	total := hours*3600 + minutes*60 + seconds
	if neg {
		total = -total
	}
	return total, nil
}
