package coverage

import (
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/demand"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/vacancy"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
)

// Grid returns bucket starts covering [from, to), aligned to step counted from
// the local midnight of from in loc.
func Grid(from, to time.Time, step time.Duration, loc *time.Location) []time.Time {
	if step <= 0 || !to.After(from) {
		return nil
	}
	l := from.In(loc)
	midnight := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
	start := midnight.Add(from.Sub(midnight) / step * step)

	n := int((to.Sub(start) + step - 1) / step)
	grid := make([]time.Time, 0, n)
	for t := start; t.Before(to); t = t.Add(step) {
		grid = append(grid, t.UTC())
	}
	return grid
}

// DemandParams converts forecast values into worker-equivalents.
type DemandParams struct {
	Step                   time.Duration
	AbsenteeismCoefficient float64
	// SpeedCoefficients maps work type id to a load multiplier; absent means 1.
	SpeedCoefficients map[string]float64
}

// DemandSeries sums the converted forecast of every selected work type per
// bucket. A bucket with no forecast value for any work type is marked missing
// and carries D=0.
func DemandSeries(grid []time.Time, buckets []demand.Bucket, p DemandParams) ([]float64, []bool) {
	d := make([]float64, len(grid))
	missing := make([]bool, len(grid))
	if len(grid) == 0 {
		return d, missing
	}

	index := make(map[int64]int, len(grid))
	for i, g := range grid {
		index[g.Unix()] = i
		missing[i] = true
	}

	stepMinutes := p.Step.Minutes()
	abs := p.AbsenteeismCoefficient
	if abs <= 0 {
		abs = 1
	}
	for _, b := range buckets {
		i, ok := index[b.Start.Unix()]
		if !ok {
			continue
		}
		speed := 1.0
		if c, ok := p.SpeedCoefficients[b.WorkTypeID]; ok && c > 0 {
			speed = c
		}
		v := b.Value / stepMinutes * abs * speed
		if v < 0 {
			v = 0
		}
		d[i] += v
		missing[i] = false
	}
	return d, missing
}

// CoverageParams selects which worker days count toward S.
type CoverageParams struct {
	Step             time.Duration
	WorkTypeIDs      map[string]bool
	IncludeVacancies bool
	// Active maps business date (UTC midnight) to employees with an active
	// employment at the shop. A nil map disables employment scoping.
	Active map[time.Time]map[string]bool
	// ExcludeVacancyID drops one vacancy from the count.
	ExcludeVacancyID string
}

// Counts reports whether wd contributes to coverage under p.
func (p CoverageParams) Counts(wd workerday.WorkerDay) bool {
	if wd.IsVacancy {
		if wd.ID == p.ExcludeVacancyID || wd.VacancyState == nil {
			return false
		}
		switch vacancy.State(*wd.VacancyState) {
		case vacancy.StateAssigned, vacancy.StateConfirmed:
			return true
		case vacancy.StateOpen:
			return p.IncludeVacancies
		}
		return false
	}
	if wd.Kind != "" && wd.Kind != workerday.KindWorkday {
		return false
	}
	if p.Active == nil {
		return true
	}
	return p.Active[wd.BusinessDate][wd.Employee()]
}

// CoverageSeries counts, per bucket, the worker days with at least one
// selected detail intersecting the bucket. Overlap is not weighted.
func CoverageSeries(grid []time.Time, days []workerday.WorkerDay, p CoverageParams) []float64 {
	s := make([]float64, len(grid))
	if len(grid) == 0 {
		return s
	}
	first := grid[0]
	last := len(grid) - 1

	for _, wd := range days {
		if !p.Counts(wd) {
			continue
		}
		hit := make(map[int]bool)
		for _, det := range wd.CoveredDetails() {
			if len(p.WorkTypeIDs) > 0 && !p.WorkTypeIDs[det.WorkTypeID] {
				continue
			}
			if !det.End.After(det.Start) || !det.End.After(first) {
				continue
			}
			lo := 0
			if det.Start.After(first) {
				lo = int(det.Start.Sub(first) / p.Step)
			}
			hi := int((det.End.Sub(first) - 1) / p.Step)
			if hi > last {
				hi = last
			}
			for i := lo; i <= hi; i++ {
				hit[i] = true
			}
		}
		for i := range hit {
			s[i]++
		}
	}
	return s
}
