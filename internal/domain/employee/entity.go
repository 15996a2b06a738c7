package employee

import (
	"time"
)

type Employee struct {
	ID                  string
	UserID              string
	NetworkID           string
	FullName            string
	BiometricsPartnerID *string
	URVPin              *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Employment binds an employee to a shop for a date range. WorkTypeNames lists
// the work types the position is eligible for.
type Employment struct {
	ID            string
	EmployeeID    string
	ShopID        string
	PositionID    *string
	FunctionGroup *string
	WorkTypeNames []string
	HireDate      time.Time
	FireDate      *time.Time
}

// IsActiveOn reports hire-date <= d and (no fire-date or fire-date >= d). Dates
// are compared as calendar dates.
func (e Employment) IsActiveOn(d time.Time) bool {
	day := truncate(d)
	if truncate(e.HireDate).After(day) {
		return false
	}
	if e.FireDate != nil && truncate(*e.FireDate).Before(day) {
		return false
	}
	return true
}

// CanWork reports whether the employment allows the named work type. An empty
// list allows every work type of the shop.
func (e Employment) CanWork(workTypeName string) bool {
	if len(e.WorkTypeNames) == 0 {
		return true
	}
	for _, n := range e.WorkTypeNames {
		if n == workTypeName {
			return true
		}
	}
	return false
}

// Blackout is a weekly window in which the employee cannot be scheduled.
type Blackout struct {
	Weekday time.Weekday
	Start   time.Duration
	End     time.Duration
}

// Constraints are the per-employee limits checked before reassignment.
type Constraints struct {
	EmployeeID           string
	MinRestBetweenShifts time.Duration
	WeeklyMaxHours       float64
	Blackouts            []Blackout
}

// Blocks reports whether [start, end) in loc touches any blackout window.
func (c Constraints) Blocks(start, end time.Time, loc *time.Location) bool {
	for day := truncate(start.In(loc)).AddDate(0, 0, -1); !day.After(end.In(loc)); day = day.AddDate(0, 0, 1) {
		midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
		for _, b := range c.Blackouts {
			if midnight.Weekday() != b.Weekday {
				continue
			}
			bs := midnight.Add(b.Start)
			be := midnight.Add(b.End)
			if b.End <= b.Start {
				be = be.Add(24 * time.Hour)
			}
			if start.Before(be) && bs.Before(end) {
				return true
			}
		}
	}
	return false
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
