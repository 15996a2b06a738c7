package reconcile

import (
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
)

// NightWindow is the nightly interval as offsets from local midnight. End <=
// Start means the window crosses midnight.
type NightWindow struct {
	Start time.Duration
	End   time.Duration
}

// NightSeconds returns the part of [start, end) that falls into night windows in loc.
func (w NightWindow) NightSeconds(start, end time.Time, loc *time.Location) float64 {
	if !end.After(start) || w.Start == w.End {
		return 0
	}
	length := w.End - w.Start
	if w.End <= w.Start {
		length += 24 * time.Hour
	}

	s := start.In(loc)
	var total time.Duration
	for day := time.Date(s.Year(), s.Month(), s.Day()-1, 0, 0, 0, 0, loc); day.Before(end); day = day.AddDate(0, 0, 1) {
		ws := day.Add(w.Start)
		we := ws.Add(length)
		lo, hi := maxTime(start, ws), minTime(end, we)
		if hi.After(lo) {
			total += hi.Sub(lo)
		}
	}
	return total.Seconds()
}

type breakFunc func(day, night, brk float64) (float64, float64)

var breakStrategies = map[network.BreakStrategy]breakFunc{
	network.BreakHalfNightHalfDay: func(day, night, brk float64) (float64, float64) {
		day, rest := take(day, brk/2)
		night, rest2 := take(night, brk/2+rest)
		day, _ = take(day, rest2)
		return day, night
	},
	network.BreakInPriorityFromNight: func(day, night, brk float64) (float64, float64) {
		night, rest := take(night, brk)
		day, _ = take(day, rest)
		return day, night
	},
	network.BreakInPriorityFromBiggerPart: func(day, night, brk float64) (float64, float64) {
		if night > day {
			night, rest := take(night, brk)
			day, _ = take(day, rest)
			return day, night
		}
		day, rest := take(day, brk)
		night, _ = take(night, rest)
		return day, night
	},
}

// take subtracts amount from v and returns the clamped value and the part of
// amount that did not fit.
func take(v, amount float64) (float64, float64) {
	if amount <= v {
		return v - amount, 0
	}
	return 0, amount - v
}

// WorkHours splits [start, end) minus breakSeconds into day and night hours.
// Unknown strategies fall back to half_night_half_day.
func WorkHours(start, end time.Time, breakSeconds float64, w NightWindow, loc *time.Location, strategy network.BreakStrategy) (dayHours, nightHours float64) {
	if !end.After(start) {
		return 0, 0
	}
	total := end.Sub(start).Seconds()
	night := w.NightSeconds(start, end, loc)
	day := total - night

	fn, ok := breakStrategies[strategy]
	if !ok {
		fn = breakStrategies[network.BreakHalfNightHalfDay]
	}
	if breakSeconds < 0 {
		breakSeconds = 0
	}
	day, night = fn(day, night, breakSeconds)
	return day / 3600, night / 3600
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
