package vacancy

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/coverage"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/vacancy"
)

// PlanParams are the hysteresis thresholds of one partition cycle.
type PlanParams struct {
	CreateThreshold float64
	CancelThreshold float64
	MinShift        time.Duration
	// Shortage runs are searched only among buckets starting in [From, To).
	From time.Time
	To   time.Time
}

type run struct {
	start time.Time
	end   time.Time
}

// Plan decides cancel, create and extend actions for one (shop, work type,
// date) partition. series must exclude open vacancies from coverage and span
// every vacancy in existing.
func Plan(series coverage.Series, existing []vacancy.Vacancy, p PlanParams) []vacancy.Action {
	var actions []vacancy.Action

	// Open vacancies that survive this cycle, by id.
	open := make(map[string]*vacancy.Vacancy)
	var cancelled []run
	for i := range existing {
		v := existing[i]
		if v.State != vacancy.StateOpen {
			continue
		}
		if inSurplus(series, v.Start, v.End, p.CancelThreshold) {
			actions = append(actions, vacancy.Action{Kind: vacancy.ActionCancel, VacancyID: v.ID, Start: v.Start, End: v.End})
			cancelled = append(cancelled, run{v.Start, v.End})
			continue
		}
		open[v.ID] = &v
	}

	for _, r := range shortageRuns(series, p) {
		for _, part := range subtract(r, open, cancelled) {
			if part.end.Sub(part.start) >= p.MinShift {
				actions = append(actions, vacancy.Action{Kind: vacancy.ActionCreate, Start: part.start, End: part.end})
				continue
			}
			if v := nearest(open, part, p.MinShift/2); v != nil {
				if part.start.Before(v.Start) {
					v.Start = part.start
				}
				if part.end.After(v.End) {
					v.End = part.end
				}
				actions = upsertExtend(actions, v)
			}
		}
	}
	return actions
}

// inSurplus reports S-D >= threshold for every bucket of [start, end).
// Buckets without data count as D=0, S=0.
func inSurplus(s coverage.Series, start, end time.Time, threshold float64) bool {
	seen := false
	for i, b := range s.Buckets {
		if !b.Before(end) || !s.BucketEnd(i).After(start) {
			continue
		}
		seen = true
		if -s.Gap(i) < threshold {
			return false
		}
	}
	return seen
}

func shortageRuns(s coverage.Series, p PlanParams) []run {
	var runs []run
	var cur *run
	for i, b := range s.Buckets {
		inHorizon := !b.Before(p.From) && b.Before(p.To)
		if inHorizon && s.Gap(i) >= p.CreateThreshold {
			if cur != nil && cur.end.Equal(b) {
				cur.end = s.BucketEnd(i)
				continue
			}
			if cur != nil {
				runs = append(runs, *cur)
			}
			cur = &run{start: b, end: s.BucketEnd(i)}
			continue
		}
		if cur != nil {
			runs = append(runs, *cur)
			cur = nil
		}
	}
	if cur != nil {
		runs = append(runs, *cur)
	}
	return runs
}

// subtract removes the parts of r already covered by an open vacancy or by a
// vacancy cancelled in this cycle.
func subtract(r run, open map[string]*vacancy.Vacancy, cancelled []run) []run {
	blocks := append([]run(nil), cancelled...)
	for _, v := range open {
		blocks = append(blocks, run{v.Start, v.End})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].start.Before(blocks[j].start) })

	parts := []run{r}
	for _, b := range blocks {
		var next []run
		for _, part := range parts {
			if !b.start.Before(part.end) || !part.start.Before(b.end) {
				next = append(next, part)
				continue
			}
			if part.start.Before(b.start) {
				next = append(next, run{part.start, b.start})
			}
			if b.end.Before(part.end) {
				next = append(next, run{b.end, part.end})
			}
		}
		parts = next
	}
	return parts
}

// nearest returns the open vacancy closest to part whose gap is below maxGap.
func nearest(open map[string]*vacancy.Vacancy, part run, maxGap time.Duration) *vacancy.Vacancy {
	var best *vacancy.Vacancy
	bestGap := maxGap
	ids := make([]string, 0, len(open))
	for id := range open {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		v := open[id]
		var gap time.Duration
		switch {
		case !part.start.Before(v.End):
			gap = part.start.Sub(v.End)
		case !v.Start.Before(part.end):
			gap = v.Start.Sub(part.end)
		default:
			gap = 0
		}
		if gap < bestGap {
			best, bestGap = v, gap
		}
	}
	return best
}

func upsertExtend(actions []vacancy.Action, v *vacancy.Vacancy) []vacancy.Action {
	for i := range actions {
		if actions[i].Kind == vacancy.ActionExtend && actions[i].VacancyID == v.ID {
			actions[i].Start, actions[i].End = v.Start, v.End
			return actions
		}
	}
	return append(actions, vacancy.Action{Kind: vacancy.ActionExtend, VacancyID: v.ID, Start: v.Start, End: v.End})
}
