package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Clock
	}{
		{"full", "07:02:00", NewClock(7, 2, 0)},
		{"no seconds", "21:30", NewClock(21, 30, 0)},
		{"twelve hour", "9:15 PM", NewClock(21, 15, 0)},
		{"datetime", "2026-01-21 06:45:10", NewClock(6, 45, 10)},
		{"padded", "  18:00:00  ", NewClock(18, 0, 0)},
		{"empty", "", ClockUnset},
		{"garbage", "morning", ClockUnset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseClock(tt.in))
		})
	}
}

func TestClock_Add_WrapsMidnight(t *testing.T) {
	late := NewClock(23, 58, 0)
	assert.Equal(t, NewClock(0, 3, 0), late.Add(5*time.Minute))

	early := NewClock(0, 4, 0)
	assert.Equal(t, NewClock(23, 57, 0), early.Add(-7*time.Minute))

	assert.Equal(t, ClockUnset, ClockUnset.Add(time.Hour))
}

func TestClock_String(t *testing.T) {
	assert.Equal(t, "06:00:00", NewClock(6, 0, 0).String())
	assert.Equal(t, "22:59:00", NewClock(22, 59, 0).String())
	assert.Equal(t, "", ClockUnset.String())
}
