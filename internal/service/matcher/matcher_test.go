package matcher

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/tick"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(day, h, m int) time.Time {
	return time.Date(2024, 3, day, h, m, 0, 0, time.UTC)
}

func plan(id string, date int, start, end time.Time) workerday.WorkerDay {
	return workerday.WorkerDay{
		ID:           id,
		BusinessDate: time.Date(2024, 3, date, 0, 0, 0, 0, time.UTC),
		Start:        &start,
		End:          &end,
		IsPlan:       true,
		IsApproved:   true,
	}
}

func defaults() Settings {
	return SettingsFrom(network.Default("n1"))
}

func TestMatch_Scenarios(t *testing.T) {
	day := plan("p1", 1, ts(1, 10, 0), ts(1, 20, 0))
	overnight := plan("p-night", 1, ts(1, 22, 0), ts(2, 7, 0))

	late := defaults()
	late.AllowedLateArrival = 15 * time.Minute

	tests := []struct {
		name         string
		at           time.Time
		kind         tick.Kind
		plans        []workerday.WorkerDay
		settings     Settings
		wantPlan     string
		wantKind     tick.Kind
		wantClass    tick.Classification
		wantLateness time.Duration
	}{
		{"happy path arrival", ts(1, 9, 58), tick.KindArrival, []workerday.WorkerDay{day}, defaults(), "p1", tick.KindArrival, tick.ClassOnTime, 0},
		{"happy path departure", ts(1, 20, 5), tick.KindDeparture, []workerday.WorkerDay{day}, defaults(), "p1", tick.KindDeparture, tick.ClassOnTime, 0},
		{"late arrival", ts(1, 10, 20), tick.KindArrival, []workerday.WorkerDay{day}, late, "p1", tick.KindArrival, tick.ClassLateArrival, 20 * time.Minute},
		{"late within allowance", ts(1, 10, 10), tick.KindArrival, []workerday.WorkerDay{day}, late, "p1", tick.KindArrival, tick.ClassOnTime, 10 * time.Minute},
		{"early departure", ts(1, 19, 0), tick.KindDeparture, []workerday.WorkerDay{day}, defaults(), "p1", tick.KindDeparture, tick.ClassEarlyDeparture, time.Hour},
		{"late departure", ts(1, 20, 30), tick.KindDeparture, []workerday.WorkerDay{day}, defaults(), "p1", tick.KindDeparture, tick.ClassLateDeparture, 0},
		{"overnight arrival", ts(1, 22, 5), tick.KindArrival, []workerday.WorkerDay{overnight}, late, "p-night", tick.KindArrival, tick.ClassOnTime, 5 * time.Minute},
		{"overnight departure next day", ts(2, 7, 10), tick.KindDeparture, []workerday.WorkerDay{overnight}, defaults(), "p-night", tick.KindDeparture, tick.ClassLateDeparture, 0},
		{"untyped resolves to arrival", ts(1, 10, 2), tick.KindUntyped, []workerday.WorkerDay{day}, defaults(), "p1", tick.KindArrival, tick.ClassLateArrival, 2 * time.Minute},
		{"untyped resolves to departure", ts(1, 19, 59), tick.KindUntyped, []workerday.WorkerDay{day}, defaults(), "p1", tick.KindDeparture, tick.ClassEarlyDeparture, time.Minute},
		{"break inside plan", ts(1, 14, 0), tick.KindBreakStart, []workerday.WorkerDay{day}, defaults(), "p1", tick.KindBreakStart, tick.ClassOnTime, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Match(tt.at, tt.kind, tt.plans, tt.settings)
			require.NotNil(t, v.Plan)
			assert.Equal(t, tt.wantPlan, v.Plan.ID)
			assert.Equal(t, tt.wantKind, v.Kind)
			assert.Equal(t, tt.wantClass, v.Classification)
			if tt.wantLateness < 0 {
				assert.Nil(t, v.Lateness)
				return
			}
			require.NotNil(t, v.Lateness)
			assert.Equal(t, tt.wantLateness, *v.Lateness)
		})
	}
}

func TestMatch_OvernightClosestBoundary(t *testing.T) {
	prev := plan("prev", 1, ts(1, 16, 30), ts(2, 0, 30))
	today := plan("today", 2, ts(2, 0, 5), ts(2, 8, 0))
	nextDay := plan("next", 3, ts(3, 10, 0), ts(3, 18, 0))
	plans := []workerday.WorkerDay{today, prev, nextDay}

	for _, kind := range []tick.Kind{tick.KindDeparture, tick.KindUntyped} {
		v := Match(ts(2, 0, 20), kind, plans, defaults())
		require.NotNil(t, v.Plan, kind)
		assert.Equal(t, "prev", v.Plan.ID, kind)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), v.BusinessDate(time.Time{}))
	}

	// Without a competing plan the previous day's shift still owns the tick.
	v := Match(ts(2, 0, 20), tick.KindDeparture, []workerday.WorkerDay{prev}, defaults())
	require.NotNil(t, v.Plan)
	assert.Equal(t, "prev", v.Plan.ID)
	assert.Equal(t, tick.ClassEarlyDeparture, v.Classification)
	assert.Equal(t, 10*time.Minute, *v.Lateness)
}

func TestMatch_NoPlan(t *testing.T) {
	day := plan("p1", 1, ts(1, 10, 0), ts(1, 20, 0))

	v := Match(ts(1, 2, 0), tick.KindArrival, []workerday.WorkerDay{day}, defaults())
	assert.Nil(t, v.Plan)
	assert.Nil(t, v.Lateness)
	assert.Equal(t, tick.ClassNoPlan, v.Classification)

	fallback := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, fallback, v.BusinessDate(fallback))

	v = Match(ts(1, 10, 0), tick.KindUntyped, nil, defaults())
	assert.Equal(t, tick.KindUntyped, v.Kind)
	assert.Equal(t, tick.ClassNoPlan, v.Classification)
}

func TestMatch_MaxDiffTolerance(t *testing.T) {
	day := plan("p1", 1, ts(1, 10, 0), ts(1, 20, 0))

	v := Match(ts(1, 8, 0), tick.KindArrival, []workerday.WorkerDay{day}, defaults())
	require.NotNil(t, v.Plan)
	assert.True(t, v.Tolerance)
	assert.Equal(t, time.Duration(0), *v.Lateness)

	s := defaults()
	s.MaxDiff = 0
	v = Match(ts(1, 8, 0), tick.KindArrival, []workerday.WorkerDay{day}, s)
	assert.Nil(t, v.Plan)
}

func TestMatch_BackToBackChain(t *testing.T) {
	a := plan("a", 1, ts(1, 8, 0), ts(1, 12, 0))
	b := plan("b", 1, ts(1, 12, 0), ts(1, 16, 0))
	c := plan("c", 1, ts(1, 16, 0), ts(1, 20, 0))
	plans := []workerday.WorkerDay{c, a, b}

	arrival := Match(ts(1, 7, 58), tick.KindArrival, plans, defaults())
	require.NotNil(t, arrival.Plan)
	assert.Equal(t, "a", arrival.Plan.ID)
	assert.Equal(t, []string{"a", "b", "c"}, arrival.Chain)
	assert.Equal(t, []time.Time{ts(1, 12, 0), ts(1, 16, 0)}, arrival.AutoBoundaries)
	length, ok := arrival.PlannedLength()
	require.True(t, ok)
	assert.Equal(t, 12*time.Hour, length)

	// A departure near the inner boundary is measured against the chain tail.
	departure := Match(ts(1, 12, 1), tick.KindDeparture, plans, defaults())
	require.NotNil(t, departure.Plan)
	assert.Equal(t, "c", departure.Plan.ID)
	assert.Equal(t, tick.ClassEarlyDeparture, departure.Classification)

	departure = Match(ts(1, 20, 2), tick.KindDeparture, plans, defaults())
	assert.Equal(t, "c", departure.Plan.ID)
	assert.Equal(t, tick.ClassOnTime, departure.Classification)
}

func TestMatch_ChainAcrossBusinessDates(t *testing.T) {
	evening := plan("evening", 1, ts(1, 16, 0), ts(2, 0, 0))
	night := plan("night", 2, ts(2, 0, 0), ts(2, 4, 0))
	plans := []workerday.WorkerDay{night, evening}

	departure := Match(ts(2, 4, 2), tick.KindDeparture, plans, defaults())
	require.NotNil(t, departure.Plan)
	assert.Equal(t, "night", departure.Plan.ID)
	assert.Equal(t, []string{"evening", "night"}, departure.Chain)
	assert.Equal(t, ts(1, 16, 0), departure.ChainStart)
	assert.Equal(t, ts(2, 4, 0), departure.ChainEnd)

	fallback := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), departure.BusinessDate(fallback))
}

func TestMatch_IgnoresVacanciesAndOpenPlans(t *testing.T) {
	vac := plan("vac", 1, ts(1, 10, 0), ts(1, 20, 0))
	vac.IsVacancy = true
	open := workerday.WorkerDay{ID: "open", IsPlan: true, Start: func() *time.Time { v := ts(1, 10, 0); return &v }()}

	v := Match(ts(1, 10, 0), tick.KindArrival, []workerday.WorkerDay{vac, open}, defaults())
	assert.Nil(t, v.Plan)
}
