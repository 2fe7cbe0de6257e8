package analytics

import (
	"fmt"
	"time"
)

// Window is a trailing day-count span. All aggregate queries are bounded by
// one: "last N days from now". The span is half-open [Start, End) so that
// adjacent windows never double-count an event on the boundary.
type Window struct {
	Days int
	// now anchors the window. Truncated to the minute so that repeated
	// calls inside the same minute produce identical bounds (and identical
	// cache keys).
	now time.Time
}

// NewWindow builds a window of the trailing n days anchored at now.
func NewWindow(days int, now time.Time) (Window, error) {
	if days <= 0 {
		return Window{}, fmt.Errorf("window days must be positive, got %d", days)
	}
	return Window{Days: days, now: now.UTC().Truncate(time.Minute)}, nil
}

// Bounds returns the half-open [start, end) span of the window.
func (w Window) Bounds() (start, end time.Time) {
	end = w.now
	start = end.AddDate(0, 0, -w.Days)
	return start, end
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	start, end := w.Bounds()
	return !t.Before(start) && t.Before(end)
}

// Label is the canonical string form used in cache keys ("7d").
func (w Window) Label() string {
	return fmt.Sprintf("%dd", w.Days)
}

// DayBucket truncates a timestamp to its UTC calendar day.
func DayBucket(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
