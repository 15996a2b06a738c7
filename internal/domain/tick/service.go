package tick

import (
	"context"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
)

type TickService interface {
	// Create runs the intake pipeline: policies, verification, matching,
	// persistence and reconciliation.
	Create(ctx context.Context, p principal.Principal, req CreateTickRequest) (TickResponse, error)
}
