package workerday

import "context"

type OverrideService interface {
	// Override appends an admin revision to a fact day and returns the
	// effective boundaries.
	Override(ctx context.Context, req OverrideRequest, authorID string) (WorkerDayResponse, error)
}
