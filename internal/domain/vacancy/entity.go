package vacancy

import (
	"time"
)

type State string

const (
	StateOpen      State = "open"
	StateAssigned  State = "assigned"
	StateConfirmed State = "confirmed"
	StateCancelled State = "cancelled"
)

var transitions = map[State][]State{
	StateOpen:     {StateAssigned, StateCancelled},
	StateAssigned: {StateConfirmed},
}

// CanTransition reports whether from -> to is an edge of
// open -> assigned -> confirmed | open -> cancelled.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateCancelled
}

func (s State) Valid() bool {
	switch s {
	case StateOpen, StateAssigned, StateConfirmed, StateCancelled:
		return true
	}
	return false
}

// Vacancy is an unfilled plan worker day of one work type.
type Vacancy struct {
	ID           string
	ShopID       string
	WorkTypeID   string
	BusinessDate time.Time
	Start        time.Time
	End          time.Time
	State        State
	EmployeeID   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// ProposedEmployeeID is the donor worker last proposed for this vacancy.
	ProposedEmployeeID *string
}

// Duration returns End - Start.
func (v Vacancy) Duration() time.Duration {
	return v.End.Sub(v.Start)
}

// Overlaps reports whether [start, end) intersects the vacancy interval.
func (v Vacancy) Overlaps(start, end time.Time) bool {
	return v.Start.Before(end) && start.Before(v.End)
}

// Transition moves v to the next state, binding employeeID on assignment.
func (v *Vacancy) Transition(to State, employeeID *string) error {
	if !CanTransition(v.State, to) {
		return ErrInvalidTransition
	}
	if to == StateAssigned {
		if employeeID == nil || *employeeID == "" {
			return ErrEmployeeRequired
		}
		v.EmployeeID = employeeID
	}
	v.State = to
	return nil
}

// ActionKind enumerates what a controller cycle decided for a partition.
type ActionKind string

const (
	ActionCreate   ActionKind = "create"
	ActionExtend   ActionKind = "extend"
	ActionCancel   ActionKind = "cancel"
	ActionReassign ActionKind = "reassign"
)

// Action is one compensating staffing decision.
type Action struct {
	Kind       ActionKind
	VacancyID  string
	ShopID     string
	WorkTypeID string
	Start      time.Time
	End        time.Time

	// Reassign only
	EmployeeID   string
	DonorShopID  string
	DonorPlanID  string
	AutoAssigned bool
}
