package shop

import (
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/geo"
)

type Shop struct {
	ID                    string
	NetworkID             string
	Code                  string
	Name                  string
	TimezoneOffsetMinutes int
	Latitude              *float64
	Longitude             *float64
	ForecastStepMinutes   int
	MinShiftMinutes       int
	URVZone               *string
	OpeningHours          []OpeningHours
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// OpeningHours is the open interval of one weekday as offsets from local midnight.
type OpeningHours struct {
	Weekday time.Weekday
	Open    time.Duration
	Close   time.Duration
}

// WorkType is a capability slot inside a shop. SpeedCoefficient scales demand.
type WorkType struct {
	ID               string
	ShopID           string
	Name             string
	SpeedCoefficient float64
}

// TerminalKind distinguishes fixed clock terminals from shop-IP bound browsers.
type TerminalKind string

const (
	TerminalKindTerminal TerminalKind = "terminal"
	TerminalKindShopIP   TerminalKind = "shop_ip"
)

type Terminal struct {
	ID         string
	ShopID     string
	Kind       TerminalKind
	SecretHash string
	AllowedIP  *string
	Active     bool
}

const (
	DefaultForecastStep = 30 * time.Minute
	DefaultMinShift     = 4 * time.Hour
)

// Location returns the shop's fixed-offset zone.
func (s Shop) Location() *time.Location {
	return time.FixedZone(s.Code, s.TimezoneOffsetMinutes*60)
}

// ForecastStep returns the bucket width, falling back to DefaultForecastStep.
func (s Shop) ForecastStep() time.Duration {
	if s.ForecastStepMinutes <= 0 {
		return DefaultForecastStep
	}
	return time.Duration(s.ForecastStepMinutes) * time.Minute
}

func (s Shop) MinShift() time.Duration {
	if s.MinShiftMinutes <= 0 {
		return DefaultMinShift
	}
	return time.Duration(s.MinShiftMinutes) * time.Minute
}

// Coordinates returns the shop position, or false when it has none.
func (s Shop) Coordinates() (geo.Point, bool) {
	if s.Latitude == nil || s.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *s.Latitude, Lon: *s.Longitude}, true
}

// BusinessDate returns the local calendar date of t in the shop's zone, as UTC midnight.
func (s Shop) BusinessDate(t time.Time) time.Time {
	return DateOf(t, s.Location())
}

// LocalMidnight returns the instant the given business date starts in the shop's zone.
func (s Shop) LocalMidnight(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.Location())
}

// DateOf truncates t to its calendar date in loc and returns it as UTC midnight.
func DateOf(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
}
