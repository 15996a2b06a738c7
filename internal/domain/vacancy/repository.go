package vacancy

import (
	"context"
	"time"
)

type VacancyRepository interface {
	// GetForUpdate locks and returns a vacancy.
	GetForUpdate(ctx context.Context, id string) (Vacancy, error)

	// ListByPartition returns vacancies of (shop, work type) in any state whose
	// interval overlaps [from, to).
	ListByPartition(ctx context.Context, shopID, workTypeID string, from, to time.Time) ([]Vacancy, error)

	// HasOpen reports whether shopID has an open vacancy on the business date.
	HasOpen(ctx context.Context, shopID string, date time.Time) (bool, error)

	Create(ctx context.Context, v Vacancy) (Vacancy, error)
	UpdateInterval(ctx context.Context, id string, start, end time.Time) error
	UpdateState(ctx context.Context, v Vacancy) error

	// SetProposal records the donor worker proposed for an open vacancy.
	SetProposal(ctx context.Context, id, employeeID string) error
}

// PartitionLocker serializes controller cycles per (shop, work type, date)
// for the life of the surrounding transaction.
type PartitionLocker interface {
	LockPartition(ctx context.Context, shopID, workTypeID string, date time.Time) error
}
