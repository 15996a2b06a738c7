package coverage

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/demand"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/vacancy"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hm(h, m int) time.Time {
	return time.Date(2024, 3, 1, h, m, 0, 0, time.UTC)
}

var day1 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestGrid(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		to   time.Time
		loc  *time.Location
		want []time.Time
	}{
		{"aligned", hm(10, 0), hm(11, 0), time.UTC, []time.Time{hm(10, 0), hm(10, 30)}},
		{"unaligned start rounds down", hm(10, 10), hm(11, 1), time.UTC, []time.Time{hm(10, 0), hm(10, 30), hm(11, 0)}},
		{"offset zone aligns to local midnight", hm(10, 10), hm(11, 0), time.FixedZone("X", 45*60), []time.Time{hm(9, 45), hm(10, 15), hm(10, 45)}},
		{"empty window", hm(10, 0), hm(10, 0), time.UTC, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Grid(tt.from, tt.to, 30*time.Minute, tt.loc))
		})
	}
}

func TestDemandSeries(t *testing.T) {
	grid := []time.Time{hm(10, 0), hm(10, 30), hm(11, 0)}
	buckets := []demand.Bucket{
		{WorkTypeID: "cash", Start: hm(10, 0), Value: 60},
		{WorkTypeID: "hall", Start: hm(10, 0), Value: 30},
		{WorkTypeID: "cash", Start: hm(10, 30), Value: 30},
		{WorkTypeID: "cash", Start: hm(12, 0), Value: 999},
	}
	d, missing := DemandSeries(grid, buckets, DemandParams{
		Step:                   30 * time.Minute,
		AbsenteeismCoefficient: 1.1,
		SpeedCoefficients:      map[string]float64{"cash": 1.5},
	})

	require.Len(t, d, 3)
	assert.InDelta(t, 60.0/30*1.1*1.5+30.0/30*1.1, d[0], 1e-9)
	assert.InDelta(t, 30.0/30*1.1*1.5, d[1], 1e-9)
	assert.Zero(t, d[2])
	assert.Equal(t, []bool{false, false, true}, missing)
}

func plan(id, emp string, kind workerday.Kind, details ...workerday.Detail) workerday.WorkerDay {
	start, end := details[0].Start, details[len(details)-1].End
	wd := workerday.WorkerDay{
		ID:           id,
		ShopID:       "shop-1",
		BusinessDate: day1,
		Kind:         kind,
		Start:        &start,
		End:          &end,
		IsPlan:       true,
		IsApproved:   true,
		Details:      details,
	}
	if emp != "" {
		wd.EmployeeID = &emp
	}
	return wd
}

func vacancyDay(id string, state vacancy.State, wt string, start, end time.Time) workerday.WorkerDay {
	wd := plan(id, "", workerday.KindWorkday, workerday.Detail{WorkTypeID: wt, Start: start, End: end})
	s := string(state)
	wd.IsVacancy = true
	wd.VacancyState = &s
	return wd
}

func TestCoverageSeries(t *testing.T) {
	grid := []time.Time{hm(10, 0), hm(10, 30), hm(11, 0), hm(11, 30)}
	active := map[time.Time]map[string]bool{day1: {"e1": true, "e2": true, "e3": true}}

	days := []workerday.WorkerDay{
		// counts once per bucket although split in two details
		plan("p1", "e1", workerday.KindWorkday,
			workerday.Detail{WorkTypeID: "cash", Start: hm(10, 0), End: hm(10, 45)},
			workerday.Detail{WorkTypeID: "cash", Start: hm(10, 45), End: hm(11, 30)},
		),
		// other work type
		plan("p2", "e2", workerday.KindWorkday, workerday.Detail{WorkTypeID: "hall", Start: hm(10, 0), End: hm(12, 0)}),
		// not a working day
		plan("p3", "e3", workerday.KindVacation, workerday.Detail{WorkTypeID: "cash", Start: hm(10, 0), End: hm(12, 0)}),
		// employment not active
		plan("p4", "e4", workerday.KindWorkday, workerday.Detail{WorkTypeID: "cash", Start: hm(10, 0), End: hm(12, 0)}),
		vacancyDay("v-open", vacancy.StateOpen, "cash", hm(11, 0), hm(12, 0)),
		vacancyDay("v-assigned", vacancy.StateAssigned, "cash", hm(11, 30), hm(12, 0)),
		vacancyDay("v-cancelled", vacancy.StateCancelled, "cash", hm(10, 0), hm(12, 0)),
	}

	params := CoverageParams{
		Step:        30 * time.Minute,
		WorkTypeIDs: map[string]bool{"cash": true},
		Active:      active,
	}
	assert.Equal(t, []float64{1, 1, 1, 1}, CoverageSeries(grid, days, params))

	params.IncludeVacancies = true
	assert.Equal(t, []float64{1, 1, 2, 2}, CoverageSeries(grid, days, params))

	params.ExcludeVacancyID = "v-open"
	assert.Equal(t, []float64{1, 1, 1, 1}, CoverageSeries(grid, days, params))
}

func TestCoverageSeries_PartialBucketOverlap(t *testing.T) {
	grid := []time.Time{hm(10, 0), hm(10, 30)}
	days := []workerday.WorkerDay{
		plan("p1", "e1", workerday.KindWorkday, workerday.Detail{WorkTypeID: "cash", Start: hm(10, 29), End: hm(10, 31)}),
		plan("p2", "e2", workerday.KindWorkday, workerday.Detail{WorkTypeID: "cash", Start: hm(9, 0), End: hm(10, 0)}),
	}
	got := CoverageSeries(grid, days, CoverageParams{Step: 30 * time.Minute, WorkTypeIDs: map[string]bool{"cash": true}})
	assert.Equal(t, []float64{1, 1}, got)
}
