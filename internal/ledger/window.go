package ledger

import (
	"fmt"
	"time"
)

// Window is an inclusive calendar-date range scoping aggregation. It is
// derived, never stored.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a window from explicit literals.
func NewWindow(start, end time.Time) (Window, error) {
	start, end = DateOnly(start), DateOnly(end)
	if start.IsZero() || end.IsZero() {
		return Window{}, &ValidationError{Field: "window", Reason: "start and end required"}
	}
	if end.Before(start) {
		return Window{}, &ValidationError{Field: "window", Reason: "end before start"}
	}
	return Window{Start: start, End: end}, nil
}

// TrailingWindow is the last n days ending at the given day, inclusive.
func TrailingWindow(today time.Time, days int) Window {
	end := DateOnly(today)
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// Key is the deterministic window identifier used in the alert dedup key.
// Equal (start, end) pairs always produce equal keys.
func (w Window) Key() string {
	return fmt.Sprintf("%s-%s", w.Start.Format("20060102"), w.End.Format("20060102"))
}

// Contains reports whether the date falls inside the window.
func (w Window) Contains(day time.Time) bool {
	day = DateOnly(day)
	return !day.Before(w.Start) && !day.After(w.End)
}

// Window policy modes.
const (
	WindowModeTrailing = "trailing"
	WindowModeFixed    = "fixed"
)

// WindowPolicy resolves the single reporting window currently in force.
// Which mode applies is deliberately a configuration input, not a guess.
type WindowPolicy struct {
	Mode         string
	TrailingDays int
	Start        time.Time
	End          time.Time
}

// Current returns the window the policy yields at the given time.
func (p WindowPolicy) Current(now time.Time) Window {
	if p.Mode == WindowModeFixed && !p.Start.IsZero() && !p.End.IsZero() {
		return Window{Start: DateOnly(p.Start), End: DateOnly(p.End)}
	}
	days := p.TrailingDays
	if days <= 0 {
		days = 15
	}
	return TrailingWindow(now, days)
}
