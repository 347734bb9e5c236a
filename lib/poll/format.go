package poll

import (
	"fmt"
	"strings"
)

// FormatDuration renders seconds as "{days}d {hours}h {mins}m" using floor
// division. Negative input is clamped to zero.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}

	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	mins := (seconds % 3600) / 60

	return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
}

// RemainingOrElapsed is the time left for ACTIVE polls, the time since the
// end for ARCHIVED polls and the time until the start for PENDING ones.
func RemainingOrElapsed(r Record, now int64) string {
	switch Classify(r, now) {
	case ACTIVE:
		return FormatDuration(r.EndTime - now)
	case ARCHIVED:
		return FormatDuration(now - r.EndTime)
	case PENDING:
		return FormatDuration(r.StartTime - now)
	default:
		return ""
	}
}

// TruncateAddress shortens "0x1234567890abcdef" to "0x1234...cdef".
func TruncateAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}

	return addr[:6] + "..." + addr[len(addr)-4:]
}

// SameAddress compares hex addresses ignoring checksum casing.
func SameAddress(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if len(a) < 1 || len(b) < 1 {
		return false
	}

	return strings.EqualFold(a, b)
}
