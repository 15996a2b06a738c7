package outbox

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventVacancyCreated          EventType = "vacancy_created"
	EventVacancyCancelled        EventType = "vacancy_cancelled"
	EventVacancyReassignProposed EventType = "vacancy_reassign_proposed"
	EventVacancyAssigned         EventType = "vacancy_assigned"
	EventDuplicateBiometrics     EventType = "duplicate_biometrics_detected"
	EventSuspiciousGap           EventType = "suspicious_gap"
	EventInvariantViolation      EventType = "invariant_violation"
)

// Event is a pending notification written in the same transaction as the
// change it describes.
type Event struct {
	ID           string
	Type         EventType
	ShopID       string
	Payload      json.RawMessage
	Attempts     int
	LastError    *string
	CreatedAt    time.Time
	DispatchedAt *time.Time
}

// New builds an event with payload marshalled to JSON.
func New(eventType EventType, shopID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, ShopID: shopID, Payload: raw}, nil
}
