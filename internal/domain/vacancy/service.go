package vacancy

import (
	"context"
	"time"
)

type VacancyService interface {
	// RunShop executes one controller cycle for every partition of the shop.
	RunShop(ctx context.Context, shopID string, at time.Time) (RunResponse, error)
	Assign(ctx context.Context, req AssignRequest) (VacancyResponse, error)
	Confirm(ctx context.Context, id string) (VacancyResponse, error)
	Cancel(ctx context.Context, id string) (VacancyResponse, error)
	List(ctx context.Context, req ListRequest) ([]VacancyResponse, error)
}
