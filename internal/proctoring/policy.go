package proctoring

import (
	"errors"
	"time"
)

// DefaultDuration is the quiz countdown
const DefaultDuration = 600 * time.Second

var ErrMultiMonitor = errors.New("multiple monitors detected")

// Display is what the client reports about its screens before starting
type Display struct {
	Extended    bool `json:"extended"`
	ScreenCount int  `json:"screen_count"`
}

// Check rejects extended desktops. A nil display means the browser could not tell.
func (d *Display) Check() error {
	if d == nil {
		return nil
	}
	if d.Extended || d.ScreenCount > 1 {
		return ErrMultiMonitor
	}
	return nil
}

// Policy is the timing rule applied to every attempt
type Policy struct {
	Duration time.Duration
	// Grace covers clock skew and the final submit round trip
	Grace time.Duration
}

func NewPolicy(duration, grace time.Duration) Policy {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if grace < 0 {
		grace = 0
	}
	return Policy{Duration: duration, Grace: grace}
}

// Deadline is when the countdown of an attempt started at start reaches zero
func (p Policy) Deadline(start time.Time) time.Time {
	return start.Add(p.Duration)
}

// Remaining time at now, never negative
func (p Policy) Remaining(start, now time.Time) time.Duration {
	left := p.Deadline(start).Sub(now)
	if left < 0 {
		return 0
	}
	return left.Truncate(time.Second)
}

// Expired reports whether the attempt is past its deadline plus grace
func (p Policy) Expired(start, now time.Time) bool {
	return now.After(p.Deadline(start).Add(p.Grace))
}

// StaleBefore is the start-time cutoff for attempts that Expired at now
func (p Policy) StaleBefore(now time.Time) time.Time {
	return now.Add(-(p.Duration + p.Grace))
}
