package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spotaudit/spotaudit/internal/model"
	"github.com/spotaudit/spotaudit/internal/normalize"
)

func TestTimeWindow_Contains(t *testing.T) {
	w := TimeWindow{Start: normalize.NewClock(20, 53, 0), End: normalize.NewClock(21, 35, 0)}

	assert.True(t, w.Contains(normalize.NewClock(20, 53, 0)))
	assert.True(t, w.Contains(normalize.NewClock(21, 35, 0)))
	assert.False(t, w.Contains(normalize.NewClock(21, 36, 0)))
	assert.False(t, w.Contains(normalize.ClockUnset))
}

func TestTimeWindow_Contains_WrapsMidnight(t *testing.T) {
	w := TimeWindow{Start: normalize.NewClock(23, 50, 0), End: normalize.NewClock(0, 10, 0)}

	assert.True(t, w.Contains(normalize.NewClock(23, 55, 0)))
	assert.True(t, w.Contains(normalize.NewClock(0, 5, 0)))
	assert.False(t, w.Contains(normalize.NewClock(12, 0, 0)))
}

func TestWindowFor_Regular(t *testing.T) {
	e := New(Options{})
	st := &spotState{
		spot:     model.ScheduledSpot{Program: "News at Nine"},
		progTime: normalize.NewClock(21, 0, 0),
		endTime:  normalize.NewClock(21, 30, 0),
	}

	w, ok := e.windowFor(st)
	require.True(t, ok)
	assert.Equal(t, "20:53:00", w.Start.String())
	assert.Equal(t, "21:35:00", w.End.String())
}

func TestWindowFor_Regular_MissingEndUsesStart(t *testing.T) {
	e := New(Options{})
	st := &spotState{
		spot:     model.ScheduledSpot{Program: "News at Nine"},
		progTime: normalize.NewClock(10, 0, 0),
		endTime:  normalize.ClockUnset,
	}

	w, ok := e.windowFor(st)
	require.True(t, ok)
	assert.Equal(t, "09:53:00", w.Start.String())
	assert.Equal(t, "10:05:00", w.End.String())
}

func TestWindowFor_Regular_WrapsMidnight(t *testing.T) {
	e := New(Options{})
	st := &spotState{
		spot:     model.ScheduledSpot{Program: "Late Movie"},
		progTime: normalize.NewClock(23, 55, 0),
		endTime:  normalize.NewClock(0, 25, 0),
	}

	w, ok := e.windowFor(st)
	require.True(t, ok)
	assert.Greater(t, w.Start, w.End) // interpreted as spanning midnight
	assert.True(t, w.Contains(normalize.NewClock(23, 50, 0)))
	assert.True(t, w.Contains(normalize.NewClock(0, 30, 0)))
	assert.False(t, w.Contains(normalize.NewClock(12, 0, 0)))
}

func TestWindowFor_Tag(t *testing.T) {
	e := New(Options{})

	tests := []struct {
		name  string
		start normalize.Clock
		want  TimeWindow
		ok    bool
	}{
		{"morning slot", normalize.NewClock(7, 0, 0), tagMorningSlot, true},
		{"morning boundary", normalize.NewClock(6, 0, 0), tagMorningSlot, true},
		{"evening slot", normalize.NewClock(20, 0, 0), tagEveningSlot, true},
		{"evening start is evening", normalize.NewClock(18, 0, 0), tagEveningSlot, true},
		{"evening boundary", normalize.NewClock(22, 59, 0), tagEveningSlot, true},
		{"late night outside", normalize.NewClock(23, 30, 0), TimeWindow{}, false},
		{"early morning outside", normalize.NewClock(4, 0, 0), TimeWindow{}, false},
		{"unset", normalize.ClockUnset, TimeWindow{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &spotState{spot: model.ScheduledSpot{Program: "Tag"}, progTime: tt.start, endTime: normalize.ClockUnset}
			w, ok := e.windowFor(st)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, w)
		})
	}
}

func TestNew_DefaultTolerances(t *testing.T) {
	e := New(Options{})
	assert.Equal(t, defaultEarlyTolerance, e.opts.EarlyTolerance)
	assert.Equal(t, defaultLateTolerance, e.opts.LateTolerance)
}
