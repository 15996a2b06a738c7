package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/outbox"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
)

const staleBatchSize = 500

// MarkStaleOpenFacts flags open fact days whose plan ended more than the
// network's MaxDiff ago. The days are never closed automatically.
func (r *ReconcilerImpl) MarkStaleOpenFacts(ctx context.Context) (int, error) {
	now := r.now()
	rows, err := r.WorkerDayRepository.ListStaleOpenFacts(ctx, now, staleBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale open facts: %w", err)
	}

	networks := make(map[string]network.Network)
	marked := 0
	for _, row := range rows {
		sh, err := r.ShopRepository.GetByID(ctx, row.ShopID)
		if err != nil {
			return marked, err
		}
		net, ok := networks[sh.NetworkID]
		if !ok {
			if net, err = r.NetworkRepository.GetByID(ctx, sh.NetworkID); err != nil {
				return marked, err
			}
			networks[sh.NetworkID] = net
		}
		fact := row.WorkerDay
		end, err := r.chainEnd(ctx, fact, row.PlanEnd)
		if err != nil {
			return marked, err
		}
		if now.Sub(end) <= net.MaxDiff {
			continue
		}

		err = r.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
			if err := r.WorkerDayRepository.MarkSuspicious(txCtx, fact.ID); err != nil {
				return err
			}
			return r.Publisher.Publish(txCtx, outbox.EventSuspiciousGap, fact.ShopID, map[string]any{
				"worker_day_id": fact.ID,
				"employee_id":   fact.Employee(),
				"dt":            fact.BusinessDate.Format("2006-01-02"),
				"dttm_start":    fact.Start,
				"plan_end":      end,
				"open":          true,
			})
		})
		if err != nil {
			return marked, fmt.Errorf("failed to mark fact %s suspicious: %w", fact.ID, err)
		}
		marked++
	}

	if marked > 0 {
		slog.Info("Marked stale open fact days", "count", marked)
	}
	return marked, nil
}

// chainEnd follows back-to-back plans of the fact's employee from planEnd and
// returns where the chain finishes.
func (r *ReconcilerImpl) chainEnd(ctx context.Context, fact workerday.WorkerDay, planEnd time.Time) (time.Time, error) {
	plans, err := r.WorkerDayRepository.ListApprovedPlans(ctx, fact.Employee(), fact.BusinessDate, fact.BusinessDate.AddDate(0, 0, 1))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to list plans of fact %s: %w", fact.ID, err)
	}
	end := planEnd
	for i := 0; i < len(plans); i++ {
		next := false
		for _, p := range plans {
			if p.Start != nil && p.End != nil && p.Start.Equal(end) {
				end, next = *p.End, true
				break
			}
		}
		if !next {
			break
		}
	}
	return end, nil
}
