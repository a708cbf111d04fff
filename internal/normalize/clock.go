package normalize

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a time of day expressed as seconds since midnight.
// The zero-value concept is ClockUnset: unparsable cells degrade to it and
// fail every window test instead of aborting a run.
type Clock int

// ClockUnset marks a missing or unparsable time of day.
const ClockUnset Clock = -1

const secondsPerDay = 24 * 60 * 60

// clockLayouts are tried in order. Bare times first, then the datetime shapes
// spreadsheet cells commonly render to.
var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
}

// NewClock builds a Clock from hour, minute and second.
func NewClock(h, m, s int) Clock {
	return Clock(h*3600 + m*60 + s)
}

// ParseClock parses a time-of-day string. Returns ClockUnset when no layout
// matches.
func ParseClock(s string) Clock {
	s = strings.TrimSpace(s)
	if s == "" {
		return ClockUnset
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewClock(t.Hour(), t.Minute(), t.Second())
		}
	}
	return ClockUnset
}

// IsSet reports whether the clock carries a value.
func (c Clock) IsSet() bool { return c >= 0 }

// Add shifts the clock by d, wrapping across midnight.
func (c Clock) Add(d time.Duration) Clock {
	if !c.IsSet() {
		return ClockUnset
	}
	sec := (int(c) + int(d/time.Second)) % secondsPerDay
	if sec < 0 {
		sec += secondsPerDay
	}
	return Clock(sec)
}

// String renders the clock as HH:MM:SS, or an empty string when unset.
func (c Clock) String() string {
	if !c.IsSet() {
		return ""
	}
	return fmt.Sprintf("%02d:%02d:%02d", int(c)/3600, int(c)%3600/60, int(c)%60)
}
