package reconcile

import (
	"time"

	"github.com/spotaudit/spotaudit/internal/model"
	"github.com/spotaudit/spotaudit/internal/normalize"
)

// TimeWindow is the time-of-day interval within which a broadcast record
// corroborates a scheduled spot. Start > End means the window spans midnight.
type TimeWindow struct {
	Start normalize.Clock
	End   normalize.Clock
}

// Contains reports whether the clock falls inside the window, honoring
// midnight wraparound. Unset clocks are never inside.
func (w TimeWindow) Contains(c normalize.Clock) bool {
	if !c.IsSet() || !w.Start.IsSet() || !w.End.IsSet() {
		return false
	}
	if w.Start > w.End {
		return c >= w.Start || c <= w.End
	}
	return w.Start <= c && c <= w.End
}

// Tag spots are not matched against their own scheduled time; they belong to
// one of two fixed day-part slots.
var (
	tagMorningSlot = TimeWindow{Start: normalize.NewClock(6, 0, 0), End: normalize.NewClock(18, 0, 0)}
	tagEveningSlot = TimeWindow{Start: normalize.NewClock(18, 0, 0), End: normalize.NewClock(22, 59, 0)}
)

// windowFor derives the tolerance window for a spot. ok is false when no
// window can be derived: a Tag spot outside both slots, or a spot without a
// usable start time.
func (e *Engine) windowFor(st *spotState) (w TimeWindow, ok bool) {
	start := st.progTime

	switch st.spot.Kind() {
	case model.ProgramTag:
		if !start.IsSet() {
			return TimeWindow{}, false
		}
		if start >= tagMorningSlot.Start && start < tagMorningSlot.End {
			return tagMorningSlot, true
		}
		if start >= tagEveningSlot.Start && start <= tagEveningSlot.End {
			return tagEveningSlot, true
		}
		return TimeWindow{}, false

	default:
		if !start.IsSet() {
			return TimeWindow{}, false
		}
		end := st.endTime
		if !end.IsSet() {
			end = start
		}
		return TimeWindow{
			Start: start.Add(-e.opts.EarlyTolerance),
			End:   end.Add(e.opts.LateTolerance),
		}, true
	}
}

// Default tolerances around a regular spot's scheduled slot.
const (
	defaultEarlyTolerance = 7 * time.Minute
	defaultLateTolerance  = 5 * time.Minute
)
