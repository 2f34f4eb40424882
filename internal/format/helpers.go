package format

import (
	"fmt"
	"time"
)

// FmtScore renders a verdict score as "N/max". Unscored renders as "-".
func FmtScore(score, max int, unscored bool) string {
	if unscored {
		return "-"
	}
	return fmt.Sprintf("%d/%d", score, max)
}

// FmtConfidence renders a 0..1 confidence with two decimals.
func FmtConfidence(c float64) string {
	return fmt.Sprintf("%.2f", c)
}

// FmtDuration formats a duration as "Xm Ys" or "Ys".
func FmtDuration(d time.Duration) string {
	s := int(d.Seconds())
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return fmt.Sprintf("%ds", s)
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// BoolMark returns "✓" for true and "✗" for false.
func BoolMark(v bool) string {
	if v {
		return "✓"
	}
	return "✗"
}
