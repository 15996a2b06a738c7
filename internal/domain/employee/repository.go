package employee

import (
	"context"
	"time"
)

type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (Employee, error)

	// GetMostRecentForUser returns the employee with the latest hire date for the user.
	GetMostRecentForUser(ctx context.Context, userID string) (Employee, error)

	GetByBiometricsPartnerID(ctx context.Context, partnerID string) (Employee, error)
	GetByURVPin(ctx context.Context, pin string) (Employee, error)
	SetBiometricsPartnerID(ctx context.Context, id string, partnerID *string) error
}

type EmploymentRepository interface {
	ListByEmployee(ctx context.Context, employeeID string) ([]Employment, error)

	// ListActiveByShop returns employments of shopID active on date.
	ListActiveByShop(ctx context.Context, shopID string, date time.Time) ([]Employment, error)

	GetConstraints(ctx context.Context, employeeID string) (Constraints, error)
}
