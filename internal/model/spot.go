package model

import (
	"time"

	"github.com/spotaudit/spotaudit/internal/normalize"
)

// ProgramKind classifies how a scheduled spot's time window is derived.
type ProgramKind int

const (
	// ProgramRegular spots get a tolerance window around their scheduled
	// start/end times.
	ProgramRegular ProgramKind = iota
	// ProgramTag spots (station identification tags) are bound to one of two
	// fixed day-part slots instead of their own times.
	ProgramTag
)

// tagProgramName is the plan-grid program label that marks a tag spot.
const tagProgramName = "Tag"

// ScheduledSpot is one planned airing of a commercial. A repeat-count cell of
// N in the plan grid produces N identical spots, each needing independent
// corroboration from the broadcast log.
type ScheduledSpot struct {
	Program        string    `json:"program"`
	CommercialName string    `json:"commercial_name"`
	Duration       string    `json:"duration"`
	Language       string    `json:"language"`
	TimeLabel      string    `json:"time_label"` // raw "start-end" or single time
	DateLabel      string    `json:"date_label"` // raw grid label, e.g. "21 Jan - 2026"
	Date           time.Time `json:"date"`       // zero when the label did not parse
	RateCardRate   *float64  `json:"rate_card_rate,omitempty"`
	NegotiatedRate *float64  `json:"negotiated_rate,omitempty"`
	Channel        string    `json:"channel"`
	Advertiser     string    `json:"advertiser"`
}

// Kind returns the program kind of the spot.
func (s ScheduledSpot) Kind() ProgramKind {
	if s.Program == tagProgramName {
		return ProgramTag
	}
	return ProgramRegular
}

// DateKey returns the canonical date string used for equality matching, empty
// when the spot's date is unknown.
func (s ScheduledSpot) DateKey() string {
	return normalize.DateKey(s.Date)
}

// Key returns the coarse equality key used to find broadcast-log candidates.
func (s ScheduledSpot) Key() MatchKey {
	return MatchKey{
		Advertiser: s.Advertiser,
		Channel:    s.Channel,
		DateKey:    s.DateKey(),
		Duration:   s.Duration,
		Program:    s.Program,
	}
}

// MatchKey identifies the group of spots that compete for the same pool of
// broadcast-log candidates.
type MatchKey struct {
	Advertiser string
	Channel    string
	DateKey    string
	Duration   string
	Program    string
}

// UnmatchedRecord is a scheduled spot that found no (or insufficient)
// corroboration, tagged with the reason.
type UnmatchedRecord struct {
	Spot   ScheduledSpot `json:"spot"`
	Reason string        `json:"unmatched_reason"`
}
