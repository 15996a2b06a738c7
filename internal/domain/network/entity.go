package network

import (
	"time"
)

// BreakStrategy names how break time is taken out of day and night hours.
type BreakStrategy string

const (
	BreakHalfNightHalfDay         BreakStrategy = "half_night_half_day"
	BreakInPriorityFromNight      BreakStrategy = "in_priority_from_night"
	BreakInPriorityFromBiggerPart BreakStrategy = "in_priority_from_bigger_part"
)

func (s BreakStrategy) Valid() bool {
	switch s {
	case BreakHalfNightHalfDay, BreakInPriorityFromNight, BreakInPriorityFromBiggerPart:
		return true
	}
	return false
}

// Network is a tenant together with every attendance and vacancy policy toggle.
type Network struct {
	ID   string
	Name string

	// Tick intake
	AllowedGeoDistanceKm    *float64
	RequireActiveEmployment bool
	RequireSchedule         bool
	TrustTickRequest        bool
	StrictBiometrics        bool

	// Reconciliation
	AllowUnplannedWork   bool
	StrictFactPlan       bool
	CreateTickOnlyRecord bool

	// Matching
	DeltaForComingIn      time.Duration
	DeltaForLeaving       time.Duration
	MaxDiff               time.Duration
	AllowedLateArrival    time.Duration
	AllowedEarlyDeparture time.Duration
	AllowedLateDeparture  time.Duration

	// Work hours
	BreakStrategy BreakStrategy
	NightStart    time.Duration // offset from local midnight
	NightEnd      time.Duration

	// Demand and vacancies
	AbsenteeismPercent          float64
	CheckLackTimegap            time.Duration
	WorkerSelectTimegap         time.Duration
	CreateVacancyLackMin        float64
	DeleteVacancyLackMax        float64
	WorkerSelectOverflowMin     float64
	RequireReassignConfirmation bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Default returns a network carrying the stock policy values.
func Default(id string) Network {
	return Network{
		ID:                          id,
		RequireActiveEmployment:     true,
		CreateTickOnlyRecord:        true,
		DeltaForComingIn:            5 * time.Minute,
		DeltaForLeaving:             5 * time.Minute,
		MaxDiff:                     4 * time.Hour,
		AllowedLateDeparture:        5 * time.Minute,
		BreakStrategy:               BreakHalfNightHalfDay,
		NightStart:                  22 * time.Hour,
		NightEnd:                    6 * time.Hour,
		CheckLackTimegap:            24 * time.Hour,
		WorkerSelectTimegap:         4 * time.Hour,
		CreateVacancyLackMin:        0.4,
		DeleteVacancyLackMax:        0.5,
		WorkerSelectOverflowMin:     0.6,
		RequireReassignConfirmation: true,
	}
}

// AbsenteeismCoefficient returns 1 + absenteeism_percent/100.
func (n Network) AbsenteeismCoefficient() float64 {
	return 1 + n.AbsenteeismPercent/100
}

// GeoCheckEnabled reports whether ticks must carry coordinates near the shop.
func (n Network) GeoCheckEnabled() bool {
	return n.AllowedGeoDistanceKm != nil
}
