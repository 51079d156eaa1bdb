// Package age measures and formats how long an operation has been running.
package age

import (
	"fmt"
	"time"
)

// Elapsed returns the time since startedAt and whether it is known. A start
// in the future counts as zero.
func Elapsed(startedAt time.Time, now time.Time) (time.Duration, bool) {
	if startedAt.IsZero() {
		return 0, false
	}
	if now.Before(startedAt) {
		return 0, true
	}
	return now.Sub(startedAt), true
}

// FormatShort renders duration in its largest whole unit: 42s, 3m, 2h, 1d.
func FormatShort(duration time.Duration) string {
	if duration < 0 {
		duration = 0
	}

	duration = duration.Truncate(time.Second)
	seconds := int64(duration.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	return fmt.Sprintf("%dd", days)
}
