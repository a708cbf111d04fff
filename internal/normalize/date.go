package normalize

import (
	"fmt"
	"strings"
	"time"
)

// scheduleDateLayout matches the raw labels composed from the plan grid's
// day-number and month-year cells, e.g. "21 Jan - 2026" or "2 Jan - 2026".
const scheduleDateLayout = "2 Jan - 2006"

// dateLayouts are tried in order when parsing log dates. Day-first forms come
// before month-first ones: broadcast logs in this domain are day-first.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
	"2 Jan 2006",
	"2-Jan-2006",
	scheduleDateLayout,
}

// ParseScheduleDate parses a grid date label like "21 Jan - 2026".
func ParseScheduleDate(label string) (time.Time, bool) {
	t, err := time.Parse(scheduleDateLayout, strings.TrimSpace(label))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseDate parses a calendar date from any of the supported layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CombineDMY builds a date from separate day, month and year components.
func CombineDMY(day, month, year string) (time.Time, bool) {
	joined := fmt.Sprintf("%s-%s-%s",
		strings.TrimSpace(day), strings.TrimSpace(month), strings.TrimSpace(year))
	t, err := time.Parse("2-1-2006", joined)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateKey renders the canonical equality key (ISO date). Zero dates, which
// stand for unparsable cells, yield an empty key that matches nothing.
func DateKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// DisplayDate renders a date for table previews as DD/MM/YYYY.
func DisplayDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}
