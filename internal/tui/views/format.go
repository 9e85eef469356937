package views

import (
	"strings"
	"time"

	"github.com/rivo/tview"
)

// formatTimestamp shows the clock time for today and the date otherwise.
func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now = now.Local()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if t.Year() == now.Year() {
		return t.Format("Jan 02")
	}
	return t.Format("2006-01-02")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// clean prepares untrusted text for a dynamic-color view.
func clean(s string) string {
	return tview.Escape(sanitizeForTerminal(s))
}
