package reconcile

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/google/uuid"
)

// Override records an admin revision of a fact day's boundaries. Tick-derived
// values stay untouched; reads apply the newest revision on top.
func (r *ReconcilerImpl) Override(ctx context.Context, req workerday.OverrideRequest, authorID string) (workerday.WorkerDayResponse, error) {
	if err := req.Validate(); err != nil {
		return workerday.WorkerDayResponse{}, err
	}

	var effective workerday.WorkerDay
	err := r.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		wd, err := r.WorkerDayRepository.GetByID(txCtx, req.WorkerDayID)
		if err != nil {
			return err
		}
		if !wd.IsFact {
			return workerday.ErrNotFact
		}

		latest, err := r.WorkerDayRepository.GetLatestOverride(txCtx, wd.ID)
		if err != nil {
			return fmt.Errorf("failed to load latest override: %w", err)
		}
		base := wd.Effective(latest)

		o := workerday.Override{
			ID:          uuid.NewString(),
			WorkerDayID: wd.ID,
			Revision:    base.Revision + 1,
			Start:       base.Start,
			End:         base.End,
			AuthorID:    authorID,
			Reason:      req.Reason,
		}
		if req.StartTime != nil {
			o.Start = req.StartTime
		}
		if req.EndTime != nil {
			o.End = req.EndTime
		}

		effective = wd.Effective(&o)
		if err := effective.Validate(); err != nil {
			return err
		}

		if _, err := r.WorkerDayRepository.CreateOverride(txCtx, o); err != nil {
			return fmt.Errorf("failed to create override: %w", err)
		}
		wd.Revision = o.Revision
		if err := r.WorkerDayRepository.UpdateFact(txCtx, wd); err != nil {
			return fmt.Errorf("failed to bump fact revision: %w", err)
		}

		sh, err := r.ShopRepository.GetByID(txCtx, wd.ShopID)
		if err != nil {
			return err
		}
		net, err := r.NetworkRepository.GetByID(txCtx, sh.NetworkID)
		if err != nil {
			return err
		}
		r.recompute(&effective, Input{Network: net, Shop: sh})
		return nil
	})
	if err != nil {
		return workerday.WorkerDayResponse{}, err
	}
	return workerday.NewWorkerDayResponse(effective), nil
}
