package workerday

import (
	"context"
	"time"
)

type WorkerDayRepository interface {
	GetByID(ctx context.Context, id string) (WorkerDay, error)

	// ListApprovedPlans returns approved, non-vacancy plan days of the employee
	// whose business date lies in [from, to].
	ListApprovedPlans(ctx context.Context, employeeID string, from, to time.Time) ([]WorkerDay, error)

	// HasApprovedPlan reports whether the employee has an approved plan at shopID on date.
	HasApprovedPlan(ctx context.Context, employeeID, shopID string, date time.Time) (bool, error)

	// GetFactForUpdate locks and returns the approved fact of (employee, date).
	// It returns ErrWorkerDayNotFound when none exists.
	GetFactForUpdate(ctx context.Context, employeeID string, date time.Time) (WorkerDay, error)

	CreateFact(ctx context.Context, wd WorkerDay) (WorkerDay, error)
	UpdateFact(ctx context.Context, wd WorkerDay) error

	// ListPlansOverlapping returns approved plan days, vacancies included, of
	// shopID that overlap [from, to).
	ListPlansOverlapping(ctx context.Context, shopID string, from, to time.Time) ([]WorkerDay, error)

	// ListFactsOverlapping returns approved fact days of shopID overlapping [from, to).
	ListFactsOverlapping(ctx context.Context, shopID string, from, to time.Time) ([]WorkerDay, error)

	// ListEmployeePlans returns the employee's approved plans, vacancies
	// assigned to them included, overlapping [from, to).
	ListEmployeePlans(ctx context.Context, employeeID string, from, to time.Time) ([]WorkerDay, error)

	// DeletePlan removes an approved, non-vacancy plan day. It returns
	// ErrWorkerDayNotFound when id is not such a plan.
	DeletePlan(ctx context.Context, id string) error

	// ListStaleOpenFacts returns open facts whose plan ended before cutoff and
	// which are not yet marked suspicious.
	ListStaleOpenFacts(ctx context.Context, cutoff time.Time, limit int) ([]OpenFact, error)
	MarkSuspicious(ctx context.Context, id string) error

	CreateOverride(ctx context.Context, o Override) (Override, error)
	GetLatestOverride(ctx context.Context, workerDayID string) (*Override, error)
}
