package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/demand"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/outbox"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/tick"
	"github.com/google/uuid"
)

type tickRepository struct{ s *Store }

func (s *Store) TickRepo() tick.TickRepository { return tickRepository{s} }

func (r tickRepository) Insert(ctx context.Context, t tick.Tick) (tick.Tick, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("tick.Insert"); err != nil {
		return tick.Tick{}, false, err
	}
	for _, other := range r.s.data.ticks {
		if other.EmployeeID == t.EmployeeID && other.ShopID == t.ShopID && other.Dttm.Equal(t.Dttm) && other.Kind == t.Kind {
			return other, false, nil
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	r.s.data.ticks = append(r.s.data.ticks, t)
	return t, true, nil
}

func (r tickRepository) AttachFact(ctx context.Context, tickID, factID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.data.ticks {
		if r.s.data.ticks[i].ID == tickID {
			id := factID
			r.s.data.ticks[i].FactWorkerDayID = &id
			return nil
		}
	}
	return tick.ErrTickNotFound
}

func (r tickRepository) GetByID(ctx context.Context, id string) (tick.Tick, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.ticks {
		if t.ID == id {
			return t, nil
		}
	}
	return tick.Tick{}, tick.ErrTickNotFound
}

func (r tickRepository) ListByEmployee(ctx context.Context, employeeID, shopID string, from, to time.Time) ([]tick.Tick, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []tick.Tick
	for _, t := range r.s.data.ticks {
		if t.EmployeeID == employeeID && t.ShopID == shopID && !t.Dttm.Before(from) && t.Dttm.Before(to) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Dttm.Before(out[j].Dttm) })
	return out, nil
}

type demandRepository struct{ s *Store }

func (s *Store) Demand() demand.DemandRepository { return demandRepository{s} }

func (r demandRepository) ListBuckets(ctx context.Context, shopID string, workTypeIDs []string, from, to time.Time) ([]demand.Bucket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("demand.ListBuckets"); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(workTypeIDs))
	for _, id := range workTypeIDs {
		wanted[id] = true
	}
	var out []demand.Bucket
	for _, b := range r.s.data.buckets {
		if b.ShopID == shopID && wanted[b.WorkTypeID] && !b.Start.Before(from) && b.Start.Before(to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].WorkTypeID < out[j].WorkTypeID
	})
	return out, nil
}

func (r demandRepository) ReplaceRange(ctx context.Context, f demand.Forecast) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("demand.ReplaceRange"); err != nil {
		return err
	}
	for k, b := range r.s.data.buckets {
		if b.ShopID == f.ShopID && b.WorkTypeID == f.WorkTypeID && !b.Start.Before(f.From) && b.Start.Before(f.To) {
			delete(r.s.data.buckets, k)
		}
	}
	for _, b := range f.Buckets {
		b.ShopID, b.WorkTypeID = f.ShopID, f.WorkTypeID
		r.s.data.buckets[bucketKey(b.ShopID, b.WorkTypeID, b.Start)] = b
	}
	return nil
}

type outboxRepository struct{ s *Store }

func (s *Store) Outbox() outbox.OutboxRepository { return outboxRepository{s} }

func (r outboxRepository) Add(ctx context.Context, e outbox.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("outbox.Add"); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = r.s.now()
	r.s.data.outbox = append(r.s.data.outbox, e)
	return nil
}

func (r outboxRepository) ClaimPending(ctx context.Context, limit, maxAttempts int) ([]outbox.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("outbox.ClaimPending"); err != nil {
		return nil, err
	}
	var out []outbox.Event
	for _, e := range r.s.data.outbox {
		if e.DispatchedAt == nil && (maxAttempts <= 0 || e.Attempts < maxAttempts) {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r outboxRepository) MarkDispatched(ctx context.Context, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	done := make(map[string]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	now := r.s.now()
	for i := range r.s.data.outbox {
		if done[r.s.data.outbox[i].ID] {
			r.s.data.outbox[i].DispatchedAt = &now
		}
	}
	return nil
}

func (r outboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.data.outbox {
		if r.s.data.outbox[i].ID == id {
			r.s.data.outbox[i].Attempts++
			msg := reason
			r.s.data.outbox[i].LastError = &msg
			return nil
		}
	}
	return nil
}

type cursorRepository struct{ s *Store }

func (s *Store) Cursors() tick.CursorRepository { return cursorRepository{s} }

func (r cursorRepository) GetCursor(ctx context.Context, source string) (time.Time, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("cursor.Get"); err != nil {
		return time.Time{}, false, err
	}
	at, ok := r.s.data.urvCursors[source]
	return at, ok, nil
}

func (r cursorRepository) SaveCursor(ctx context.Context, source string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("cursor.Save"); err != nil {
		return err
	}
	r.s.data.urvCursors[source] = at
	return nil
}
