package tick

import (
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
)

type Kind string

const (
	KindArrival    Kind = "arrival"
	KindDeparture  Kind = "departure"
	KindBreakStart Kind = "break_start"
	KindBreakEnd   Kind = "break_end"
	KindUntyped    Kind = "untyped"
)

var kindByLetter = map[string]Kind{
	"C": KindArrival,
	"L": KindDeparture,
	"S": KindBreakStart,
	"E": KindBreakEnd,
	"N": KindUntyped,
}

// KindFromLetter maps the C/L/S/E/N type letters to a kind.
func KindFromLetter(letter string) (Kind, bool) {
	k, ok := kindByLetter[letter]
	return k, ok
}

func (k Kind) Valid() bool {
	switch k {
	case KindArrival, KindDeparture, KindBreakStart, KindBreakEnd, KindUntyped:
		return true
	}
	return false
}

type Source string

const (
	SourceTerminal      Source = "terminal"
	SourceMobile        Source = "mobile"
	SourceIPBound       Source = "ip_bound"
	SourceOfflineManual Source = "offline_manual"
)

func (s Source) Valid() bool {
	switch s {
	case SourceTerminal, SourceMobile, SourceIPBound, SourceOfflineManual:
		return true
	}
	return false
}

// Classification is the boundary verdict of a tick against its plan.
type Classification string

const (
	ClassOnTime         Classification = "on_time"
	ClassLateArrival    Classification = "late_arrival"
	ClassEarlyDeparture Classification = "early_departure"
	ClassLateDeparture  Classification = "late_departure"
	ClassNoPlan         Classification = "no_plan"
	ClassAuto           Classification = "auto"
)

// Tick is an append-only attendance event.
type Tick struct {
	ID              string
	EmployeeID      string
	UserID          *string
	ShopID          string
	Dttm            time.Time
	BusinessDate    time.Time
	Kind            Kind
	Source          Source
	PrincipalKind   principal.Kind
	Verified        bool
	BiometricsCheck bool
	Liveness        *float64
	Score           *float64
	PhotoKey        *string
	Latitude        *float64
	Longitude       *float64
	LatenessSeconds *int64
	Classification  Classification
	PlanWorkerDayID *string
	FactWorkerDayID *string
	ExternalID      *string
	ReceivedAt      time.Time
}
