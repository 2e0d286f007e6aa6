package core

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration renders d as "1h 2m 3s". Hour and minute parts are left
// out when zero; seconds are always shown. Negative durations render as 0s.
func FormatDuration(d time.Duration) string {
	s := int64(max(d, 0) / time.Second)
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	parts = append(parts, fmt.Sprintf("%ds", sec))
	return strings.Join(parts, " ")
}

// Milliseconds returns d in whole milliseconds, rounded half away from zero.
func Milliseconds(d time.Duration) int64 {
	return d.Round(time.Millisecond).Milliseconds()
}
