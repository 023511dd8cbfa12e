package common

import (
	"fmt"
	"time"
)

// FormatAge returns a human-readable age for a timestamp, such as
// "just now", "5m ago", "3h ago", "2d ago", "3w ago".
func FormatAge(t time.Time) string {
	return FormatDuration(time.Since(t))
}

// FormatDuration renders a duration the way FormatAge does. Claims can
// sit in a status for weeks, so ages longer than 14 days collapse to
// weeks.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	if days >= 14 {
		return fmt.Sprintf("%dw ago", days/7)
	}
	return fmt.Sprintf("%dd ago", days)
}

// FormatDwell renders a dwell requirement compactly: "24h" under a
// day, "7d" for whole days. Dwell windows are defined in whole hours.
func FormatDwell(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	hours := int(d.Hours())
	if hours >= 24 && hours%24 == 0 {
		return fmt.Sprintf("%dd", hours/24)
	}
	return fmt.Sprintf("%dh", hours)
}
