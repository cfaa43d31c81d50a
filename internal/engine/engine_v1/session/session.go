// Package session implements the trading-hours gate for the dispatch loop.
// Chinese commodity futures trade in disjoint daytime windows plus a night
// session that crosses midnight, so windows are compared in minutes-of-day
// with wraparound.
package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/helix-quant/cta-trading/pkg/errors"
)

// Window is a half-open [Start, End) trading window in exchange-local time.
// A window whose end is at or before its start spans midnight.
type Window struct {
	Start string `json:"start" yaml:"start" validate:"required"`
	End   string `json:"end" yaml:"end" validate:"required"`
}

// Calendar evaluates a fixed set of trading windows.
type Calendar struct {
	windows []parsedWindow
}

type parsedWindow struct {
	start int // minutes from midnight
	end   int
}

// DefaultWindows covers the standard day sessions and the night session of
// the domestic futures exchanges.
func DefaultWindows() []Window {
	return []Window{
		{Start: "09:00", End: "10:15"},
		{Start: "10:30", End: "11:30"},
		{Start: "13:30", End: "15:00"},
		{Start: "21:00", End: "02:30"},
	}
}

// NewCalendar parses the window set. An empty set is rejected: a runtime with
// no tradable window would silently never dispatch.
func NewCalendar(windows []Window) (*Calendar, error) {
	if len(windows) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidSessionWindow, "no trading windows configured")
	}

	parsed := make([]parsedWindow, 0, len(windows))

	for _, w := range windows {
		start, err := parseClock(w.Start)
		if err != nil {
			return nil, err
		}

		end, err := parseClock(w.End)
		if err != nil {
			return nil, err
		}

		if start == end {
			return nil, errors.Newf(errors.ErrCodeInvalidSessionWindow, "window %s-%s is empty", w.Start, w.End)
		}

		parsed = append(parsed, parsedWindow{start: start, end: end})
	}

	return &Calendar{windows: parsed}, nil
}

// InSession reports whether t falls inside any trading window.
func (c *Calendar) InSession(t time.Time) bool {
	minute := t.Hour()*60 + t.Minute()

	for _, w := range c.windows {
		if w.end > w.start {
			if minute >= w.start && minute < w.end {
				return true
			}
		} else {
			// Midnight spanning: in session before midnight or after it.
			if minute >= w.start || minute < w.end {
				return true
			}
		}
	}

	return false
}

// NextOpen returns the earliest window start at or after t. Used for idle
// logging only, dispatch just polls InSession.
func (c *Calendar) NextOpen(t time.Time) time.Time {
	minute := t.Hour()*60 + t.Minute()
	base := t.Truncate(time.Minute)

	best := time.Time{}

	for _, w := range c.windows {
		wait := w.start - minute
		if wait < 0 {
			wait += 24 * 60
		}

		candidate := base.Add(time.Duration(wait) * time.Minute)
		if best.IsZero() || candidate.Before(best) {
			best = candidate
		}
	}

	return best
}

func parseClock(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, errors.Newf(errors.ErrCodeInvalidSessionWindow, "invalid clock time %q, want HH:MM", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, errors.Newf(errors.ErrCodeInvalidSessionWindow, "invalid hour in %q", value)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, errors.Newf(errors.ErrCodeInvalidSessionWindow, "invalid minute in %q", value)
	}

	return hour*60 + minute, nil
}

// String renders a window for logs.
func (w Window) String() string {
	return fmt.Sprintf("%s-%s", w.Start, w.End)
}
