// Package filter implements the duration window applied to search
// results before they are stored and downloaded.
package filter

import "time"

// Admits reports whether d falls inside the [min, max] window, bounds
// inclusive. A zero bound is unbounded on that side. Callers must parse
// and validate d before asking; this predicate never sees raw text.
func Admits(d, min, max time.Duration) bool {
	if min > 0 && d < min {
		return false
	}
	if max > 0 && d > max {
		return false
	}
	return true
}

// Window is a fixed [Min, Max] duration window.
type Window struct {
	Min time.Duration
	Max time.Duration
}

// Admits applies the window to d.
func (w Window) Admits(d time.Duration) bool {
	return Admits(d, w.Min, w.Max)
}

// Active reports whether the window constrains anything.
func (w Window) Active() bool {
	return w.Min > 0 || w.Max > 0
}
