package workerday

import (
	"fmt"
	"sort"
	"time"
)

type Kind string

const (
	KindWorkday  Kind = "workday"
	KindHoliday  Kind = "holiday"
	KindSick     Kind = "sick"
	KindVacation Kind = "vacation"
)

// Source marks how a fact boundary was produced.
type Source string

const (
	SourceTick     Source = "tick"
	SourceAuto     Source = "auto"
	SourceOverride Source = "override"
)

// WorkerDay is one plan or fact record of an employee on a business date.
// Vacancies are worker days with IsVacancy set and no bound employee until
// assignment.
type WorkerDay struct {
	ID           string
	EmployeeID   *string
	ShopID       string
	BusinessDate time.Time
	Kind         Kind
	Start        *time.Time
	End          *time.Time
	IsPlan       bool
	IsFact       bool
	IsApproved   bool
	IsVacancy    bool
	VacancyState *string
	Details      []Detail

	// Fact-only bookkeeping
	PlanID         *string
	SuspiciousGap  bool
	BreakSeconds   int64
	OpenBreakStart *time.Time
	DayHours       float64
	NightHours     float64
	Revision       int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Detail assigns a range of the parent interval to a work type.
type Detail struct {
	WorkTypeID string
	Start      time.Time
	End        time.Time
}

// Key identifies the fact record a tick reconciles into.
type Key struct {
	EmployeeID   string
	BusinessDate time.Time
	ShopID       string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s", k.EmployeeID, k.BusinessDate.Format("2006-01-02"), k.ShopID)
}

// Interval returns [Start, End) when both are set.
func (w WorkerDay) Interval() (time.Time, time.Time, bool) {
	if w.Start == nil || w.End == nil {
		return time.Time{}, time.Time{}, false
	}
	return *w.Start, *w.End, true
}

// IsOpen reports a fact day that has an arrival but no departure yet.
func (w WorkerDay) IsOpen() bool {
	return w.IsFact && w.Start != nil && w.End == nil
}

// Employee returns the bound employee id or "".
func (w WorkerDay) Employee() string {
	if w.EmployeeID == nil {
		return ""
	}
	return *w.EmployeeID
}

// CoveredDetails returns the details used for coverage. A workday without
// details is treated as a single detail of the whole interval with an empty
// work type.
func (w WorkerDay) CoveredDetails() []Detail {
	if len(w.Details) > 0 {
		return w.Details
	}
	start, end, ok := w.Interval()
	if !ok {
		return nil
	}
	return []Detail{{Start: start, End: end}}
}

// Validate checks end >= start and that details are disjoint and contained in
// the parent interval.
func (w WorkerDay) Validate() error {
	if w.Start != nil && w.End != nil && w.End.Before(*w.Start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidInterval, w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	if len(w.Details) == 0 {
		return nil
	}
	start, end, ok := w.Interval()
	if !ok {
		return fmt.Errorf("%w: details on an unbounded day", ErrInvalidDetails)
	}

	details := append([]Detail(nil), w.Details...)
	sort.Slice(details, func(i, j int) bool { return details[i].Start.Before(details[j].Start) })
	for i, d := range details {
		if !d.End.After(d.Start) {
			return fmt.Errorf("%w: empty detail range", ErrInvalidDetails)
		}
		if d.Start.Before(start) || d.End.After(end) {
			return fmt.Errorf("%w: detail outside parent interval", ErrInvalidDetails)
		}
		if i > 0 && d.Start.Before(details[i-1].End) {
			return fmt.Errorf("%w: overlapping details", ErrInvalidDetails)
		}
	}
	return nil
}

// OpenFact is an open fact day together with the end of its plan.
type OpenFact struct {
	WorkerDay
	PlanEnd time.Time
}

// Override is an admin-authored revision of a fact day's boundaries. The
// newest revision wins over tick-derived values when reading effective facts.
type Override struct {
	ID          string
	WorkerDayID string
	Revision    int
	Start       *time.Time
	End         *time.Time
	AuthorID    string
	Reason      string
	CreatedAt   time.Time
}

// Effective returns w with the override boundaries applied.
func (w WorkerDay) Effective(o *Override) WorkerDay {
	if o == nil {
		return w
	}
	if o.Start != nil {
		w.Start = o.Start
	}
	if o.End != nil {
		w.End = o.End
	}
	w.Revision = o.Revision
	return w
}
