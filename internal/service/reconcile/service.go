package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/outbox"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/tick"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/keylock"
	"github.com/cmlabs-hris/wfm-backend-go/internal/service/matcher"
	"github.com/google/uuid"
)

// Action describes what a tick did to the fact day.
type Action string

const (
	ActionOpened       Action = "opened"
	ActionStartMoved   Action = "start_moved"
	ActionClosed       Action = "closed"
	ActionEndMoved     Action = "end_moved"
	ActionBreakStarted Action = "break_started"
	ActionBreakEnded   Action = "break_ended"
	ActionIgnored      Action = "ignored"
	ActionTickOnly     Action = "tick_only"
)

const (
	maxAttempts = 3
	// unplannedFactCap bounds a fact day without a plan before it is flagged suspicious.
	unplannedFactCap = 16 * time.Hour
)

// Input is one verified tick ready for reconciliation.
type Input struct {
	Tick    tick.Tick
	Verdict matcher.Verdict
	Network network.Network
	Shop    shop.Shop
	// HasOpenVacancy is set when the shop has an open vacancy on the business date.
	HasOpenVacancy bool
}

type Result struct {
	Fact   *workerday.WorkerDay
	Kind   tick.Kind
	Action Action
}

type ReconcilerImpl struct {
	tx database.Transactor
	workerday.WorkerDayRepository
	shop.ShopRepository
	network.NetworkRepository
	outbox.Publisher
	locks *keylock.Map
	now   func() time.Time
}

func NewReconciler(
	tx database.Transactor,
	workerDayRepo workerday.WorkerDayRepository,
	shopRepo shop.ShopRepository,
	networkRepo network.NetworkRepository,
	publisher outbox.Publisher,
	locks *keylock.Map,
) *ReconcilerImpl {
	return &ReconcilerImpl{
		tx:                  tx,
		WorkerDayRepository: workerDayRepo,
		ShopRepository:      shopRepo,
		NetworkRepository:   networkRepo,
		Publisher:           publisher,
		locks:               locks,
		now:                 time.Now,
	}
}

// KeyFor returns the fact key a tick reconciles into.
func KeyFor(in Input) workerday.Key {
	return workerday.Key{
		EmployeeID:   in.Tick.EmployeeID,
		BusinessDate: in.Verdict.BusinessDate(in.Shop.BusinessDate(in.Tick.Dttm)),
		ShopID:       in.Tick.ShopID,
	}
}

// Serialize runs fn in a transaction while holding the in-process lock of key.
// Lock and serialization conflicts are retried; the final conflict surfaces as
// workerday.ErrConflict.
func (r *ReconcilerImpl) Serialize(ctx context.Context, key workerday.Key, fn func(txCtx context.Context) error) error {
	unlock := r.locks.Lock(key.String())
	defer unlock()

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = r.tx.WithinTransaction(ctx, fn)
		if err == nil || !database.IsConflict(err) {
			return err
		}
		slog.Warn("Fact worker day conflict, retrying", "key", key.String(), "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt*25) * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: %s: %v", workerday.ErrConflict, key.String(), err)
}

// Reconcile applies one tick to the fact day. It must run inside Serialize.
func (r *ReconcilerImpl) Reconcile(txCtx context.Context, in Input) (Result, error) {
	t := in.Tick.Dttm
	key := KeyFor(in)
	plan := in.Verdict.Plan

	fact, err := r.loadFact(txCtx, key.EmployeeID, key.BusinessDate)
	if err != nil {
		return Result{}, err
	}
	if fact != nil && fact.ShopID != key.ShopID {
		return Result{}, fmt.Errorf("%w: %s", workerday.ErrOtherShop, fact.ID)
	}

	kind := in.Verdict.Kind
	if kind == "" {
		kind = in.Tick.Kind
	}
	if kind == tick.KindUntyped {
		kind = tick.KindArrival
		if fact != nil && fact.Start != nil {
			kind = tick.KindDeparture
		}
	}

	// An unplanned departure may close yesterday's open unplanned day.
	if fact == nil && plan == nil && kind == tick.KindDeparture {
		prev, err := r.loadFact(txCtx, key.EmployeeID, key.BusinessDate.AddDate(0, 0, -1))
		if err != nil {
			return Result{}, err
		}
		if prev != nil && prev.ShopID == key.ShopID && prev.IsOpen() && t.Sub(*prev.Start) <= 24*time.Hour {
			fact = prev
		}
	}

	res := Result{Kind: kind}
	isNew := false
	switch kind {
	case tick.KindArrival:
		if fact == nil {
			if plan == nil && !unplannedAllowed(in) {
				return Result{}, tick.Reject(tick.CodeUnplannedWork, "no plan and no open vacancy")
			}
			fact, isNew = r.newFact(key, plan), true
			fact.Start = &t
			res.Action = ActionOpened
			break
		}
		switch {
		case fact.Start == nil && (fact.End == nil || !t.After(*fact.End)):
			fact.Start = &t
			res.Action = ActionOpened
		case fact.Start != nil && t.Before(*fact.Start):
			fact.Start = &t
			res.Action = ActionStartMoved
		default:
			res.Action = ActionIgnored
		}

	case tick.KindDeparture:
		if fact == nil {
			if plan == nil {
				if in.Network.CreateTickOnlyRecord {
					res.Action = ActionTickOnly
					return res, nil
				}
				if !unplannedAllowed(in) {
					return Result{}, tick.Reject(tick.CodeUnplannedWork, "departure without plan or fact day")
				}
			}
			fact, isNew = r.newFact(key, plan), true
			fact.End = &t
			res.Action = ActionClosed
			break
		}
		switch {
		case fact.Start != nil && t.Before(*fact.Start):
			res.Action = ActionIgnored
		case fact.End == nil:
			fact.End = &t
			res.Action = ActionClosed
		case t.After(*fact.End):
			fact.End = &t
			res.Action = ActionEndMoved
		default:
			res.Action = ActionIgnored
		}

	case tick.KindBreakStart:
		if fact == nil {
			res.Action = ActionTickOnly
			return res, nil
		}
		if fact.OpenBreakStart == nil && fact.End == nil {
			fact.OpenBreakStart = &t
			res.Action = ActionBreakStarted
		} else {
			res.Action = ActionIgnored
		}

	case tick.KindBreakEnd:
		if fact == nil {
			res.Action = ActionTickOnly
			return res, nil
		}
		if fact.OpenBreakStart != nil && t.After(*fact.OpenBreakStart) {
			fact.BreakSeconds += int64(t.Sub(*fact.OpenBreakStart) / time.Second)
			fact.OpenBreakStart = nil
			res.Action = ActionBreakEnded
		} else {
			res.Action = ActionIgnored
		}

	default:
		return Result{}, fmt.Errorf("unsupported tick kind %q", kind)
	}

	if fact.PlanID == nil && plan != nil && plan.BusinessDate.Equal(fact.BusinessDate) {
		fact.PlanID = &plan.ID
	}

	if res.Action == ActionIgnored {
		res.Fact = fact
		return res, nil
	}

	r.recompute(fact, in)
	if err := fact.Validate(); err != nil {
		slog.Error("Fact worker day invariant violated", "alert", true, "fact_id", fact.ID, "key", key.String(), "error", err)
		return Result{}, fmt.Errorf("%w: %v", workerday.ErrInvariant, err)
	}

	becameSuspicious, err := r.flagGap(txCtx, fact, in)
	if err != nil {
		return Result{}, err
	}

	if isNew {
		created, err := r.WorkerDayRepository.CreateFact(txCtx, *fact)
		if err != nil {
			return Result{}, fmt.Errorf("failed to create fact worker day: %w", err)
		}
		fact = &created
	} else if err := r.WorkerDayRepository.UpdateFact(txCtx, *fact); err != nil {
		return Result{}, fmt.Errorf("failed to update fact worker day: %w", err)
	}

	if becameSuspicious {
		slog.Warn("Suspicious gap on fact worker day", "fact_id", fact.ID, "employee_id", key.EmployeeID, "date", key.BusinessDate.Format("2006-01-02"))
	}

	res.Fact = fact
	return res, nil
}

func (r *ReconcilerImpl) loadFact(ctx context.Context, employeeID string, date time.Time) (*workerday.WorkerDay, error) {
	fact, err := r.WorkerDayRepository.GetFactForUpdate(ctx, employeeID, date)
	if err != nil {
		if errors.Is(err, workerday.ErrWorkerDayNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load fact worker day: %w", err)
	}
	return &fact, nil
}

func (r *ReconcilerImpl) newFact(key workerday.Key, plan *workerday.WorkerDay) *workerday.WorkerDay {
	emp := key.EmployeeID
	wd := &workerday.WorkerDay{
		ID:           uuid.NewString(),
		EmployeeID:   &emp,
		ShopID:       key.ShopID,
		BusinessDate: key.BusinessDate,
		Kind:         workerday.KindWorkday,
		IsFact:       true,
		IsApproved:   true,
	}
	if plan != nil {
		id := plan.ID
		wd.PlanID = &id
	}
	return wd
}

func (r *ReconcilerImpl) recompute(fact *workerday.WorkerDay, in Input) {
	start, end, ok := fact.Interval()
	if !ok {
		fact.DayHours, fact.NightHours = 0, 0
		return
	}
	window := NightWindow{Start: in.Network.NightStart, End: in.Network.NightEnd}
	fact.DayHours, fact.NightHours = WorkHours(start, end, float64(fact.BreakSeconds), window, in.Shop.Location(), in.Network.BreakStrategy)
}

// flagGap marks a closed fact whose length exceeds the planned length of its
// back-to-back chain by more than MaxDiff. Both boundaries stay as recorded.
func (r *ReconcilerImpl) flagGap(ctx context.Context, fact *workerday.WorkerDay, in Input) (bool, error) {
	start, end, ok := fact.Interval()
	if !ok || fact.SuspiciousGap || in.Network.MaxDiff <= 0 {
		return false, nil
	}

	limit := unplannedFactCap
	if planned, ok := in.Verdict.PlannedLength(); ok {
		limit = planned + in.Network.MaxDiff
	}
	if end.Sub(start) <= limit {
		return false, nil
	}

	fact.SuspiciousGap = true
	err := r.Publisher.Publish(ctx, outbox.EventSuspiciousGap, fact.ShopID, map[string]any{
		"worker_day_id": fact.ID,
		"employee_id":   fact.Employee(),
		"dt":            fact.BusinessDate.Format("2006-01-02"),
		"dttm_start":    start,
		"dttm_end":      end,
	})
	return true, err
}

func unplannedAllowed(in Input) bool {
	return in.HasOpenVacancy || in.Network.AllowUnplannedWork || !in.Network.StrictFactPlan
}
