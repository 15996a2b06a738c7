// Package matcher resolves which approved plan a tick belongs to and
// classifies the tick against that plan's boundary.
package matcher

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/tick"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
)

type Settings struct {
	DeltaComingIn         time.Duration
	DeltaLeaving          time.Duration
	MaxDiff               time.Duration
	AllowedLateArrival    time.Duration
	AllowedEarlyDeparture time.Duration
	AllowedLateDeparture  time.Duration
}

func SettingsFrom(n network.Network) Settings {
	return Settings{
		DeltaComingIn:         n.DeltaForComingIn,
		DeltaLeaving:          n.DeltaForLeaving,
		MaxDiff:               n.MaxDiff,
		AllowedLateArrival:    n.AllowedLateArrival,
		AllowedEarlyDeparture: n.AllowedEarlyDeparture,
		AllowedLateDeparture:  n.AllowedLateDeparture,
	}
}

// Verdict is the outcome of matching one tick.
type Verdict struct {
	// Plan is the plan whose boundary the tick was measured against; nil means no plan.
	Plan *workerday.WorkerDay
	// Kind is the tick kind after resolving untyped ticks to the nearest boundary.
	Kind           tick.Kind
	Classification tick.Classification
	// Lateness is the boundary excess: late arrival or early departure. Nil without a plan.
	Lateness *time.Duration
	// Chain lists back-to-back plan ids containing Plan, in time order.
	Chain []string
	// ChainStart and ChainEnd span the whole chain. Zero without a plan.
	ChainStart time.Time
	ChainEnd   time.Time
	// Date is the business date of the chain head; the fact day is keyed by it.
	Date time.Time
	// AutoBoundaries are inner chain boundaries synthesized without a tick.
	AutoBoundaries []time.Time
	// Tolerance is set when the plan was found only through the MaxDiff window.
	Tolerance bool
}

// BusinessDate returns the business date of the matched chain, or fallback
// when unmatched.
func (v Verdict) BusinessDate(fallback time.Time) time.Time {
	if v.Plan == nil {
		return fallback
	}
	if !v.Date.IsZero() {
		return v.Date
	}
	return v.Plan.BusinessDate
}

// PlannedLength is the length of the matched chain.
func (v Verdict) PlannedLength() (time.Duration, bool) {
	if v.Plan == nil || v.ChainStart.IsZero() {
		return 0, false
	}
	return v.ChainEnd.Sub(v.ChainStart), true
}

type candidate struct {
	plan     workerday.WorkerDay
	start    time.Time
	end      time.Time
	distance time.Duration
	boundary tick.Kind
}

// Match picks the plan for a tick at t. plans are the employee's approved
// plan days of the tick's business date and its neighbours.
func Match(t time.Time, kind tick.Kind, plans []workerday.WorkerDay, s Settings) Verdict {
	usable := make([]workerday.WorkerDay, 0, len(plans))
	for _, p := range plans {
		if _, _, ok := p.Interval(); ok && p.IsPlan && !p.IsVacancy {
			usable = append(usable, p)
		}
	}

	cands := collect(t, kind, usable, s.DeltaComingIn, s.DeltaLeaving)
	tolerance := false
	if len(cands) == 0 && s.MaxDiff > 0 {
		cands = collect(t, kind, usable, s.MaxDiff, s.MaxDiff)
		tolerance = len(cands) > 0
	}
	if len(cands) == 0 {
		return Verdict{Kind: kind, Classification: tick.ClassNoPlan}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].distance != cands[j].distance {
			return cands[i].distance < cands[j].distance
		}
		return cands[i].start.Before(cands[j].start)
	})
	best := cands[0]

	chain := chainOf(best.plan, usable)
	v := Verdict{
		Kind:       best.boundary,
		Tolerance:  tolerance,
		ChainStart: *chain[0].Start,
		ChainEnd:   *chain[len(chain)-1].End,
		Date:       chain[0].BusinessDate,
	}
	for _, p := range chain {
		v.Chain = append(v.Chain, p.ID)
	}
	for i := 1; i < len(chain); i++ {
		v.AutoBoundaries = append(v.AutoBoundaries, *chain[i].Start)
	}

	switch best.boundary {
	case tick.KindArrival:
		head := chain[0]
		v.Plan = &head
		late := nonNegative(t.Sub(*head.Start))
		v.Lateness = &late
		v.Classification = tick.ClassOnTime
		if late > s.AllowedLateArrival {
			v.Classification = tick.ClassLateArrival
		}
	case tick.KindDeparture:
		tail := chain[len(chain)-1]
		v.Plan = &tail
		early := nonNegative(tail.End.Sub(t))
		v.Lateness = &early
		v.Classification = tick.ClassOnTime
		if early > s.AllowedEarlyDeparture {
			v.Classification = tick.ClassEarlyDeparture
		} else if t.Sub(*tail.End) > s.AllowedLateDeparture {
			v.Classification = tick.ClassLateDeparture
		}
	default:
		p := best.plan
		v.Plan = &p
		v.Kind = kind
		v.Classification = tick.ClassOnTime
	}
	return v
}

// collect returns plans whose [start-before, end+after] window contains t,
// with the distance to the boundary relevant for kind.
func collect(t time.Time, kind tick.Kind, plans []workerday.WorkerDay, before, after time.Duration) []candidate {
	var out []candidate
	for _, p := range plans {
		start, end, _ := p.Interval()
		if t.Before(start.Add(-before)) || t.After(end.Add(after)) {
			continue
		}
		c := candidate{plan: p, start: start, end: end}
		toStart := abs(t.Sub(start))
		toEnd := abs(t.Sub(end))
		switch kind {
		case tick.KindArrival:
			c.boundary, c.distance = tick.KindArrival, toStart
		case tick.KindDeparture:
			c.boundary, c.distance = tick.KindDeparture, toEnd
		case tick.KindUntyped:
			if toStart <= toEnd {
				c.boundary, c.distance = tick.KindArrival, toStart
			} else {
				c.boundary, c.distance = tick.KindDeparture, toEnd
			}
		default:
			c.boundary = kind
			c.distance = min(toStart, toEnd)
			if !t.Before(start) && !t.After(end) {
				c.distance = 0
			}
		}
		out = append(out, c)
	}
	return out
}

// chainOf returns the run of back-to-back plans (a.End == b.Start) containing p.
func chainOf(p workerday.WorkerDay, plans []workerday.WorkerDay) []workerday.WorkerDay {
	chain := []workerday.WorkerDay{p}
	seen := map[string]bool{p.ID: true}

	for {
		head := chain[0]
		prev, ok := find(plans, seen, func(q workerday.WorkerDay) bool { return q.End.Equal(*head.Start) })
		if !ok {
			break
		}
		seen[prev.ID] = true
		chain = append([]workerday.WorkerDay{prev}, chain...)
	}
	for {
		tail := chain[len(chain)-1]
		next, ok := find(plans, seen, func(q workerday.WorkerDay) bool { return q.Start.Equal(*tail.End) })
		if !ok {
			break
		}
		seen[next.ID] = true
		chain = append(chain, next)
	}
	return chain
}

func find(plans []workerday.WorkerDay, seen map[string]bool, pred func(workerday.WorkerDay) bool) (workerday.WorkerDay, bool) {
	for _, q := range plans {
		if !seen[q.ID] && pred(q) {
			return q, true
		}
	}
	return workerday.WorkerDay{}, false
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
