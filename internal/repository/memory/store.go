// Package memory is an in-process implementation of every repository
// interface. Transactions are serialized and roll back by restoring a
// snapshot, which is enough for service tests and local runs without
// PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/demand"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/outbox"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/tick"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
)

type state struct {
	networks    map[string]network.Network
	shops       map[string]shop.Shop
	workTypes   map[string]shop.WorkType
	terminals   map[string]shop.Terminal
	employees   map[string]employee.Employee
	employments []employee.Employment
	constraints map[string]employee.Constraints
	workerDays  map[string]workerday.WorkerDay
	overrides   []workerday.Override
	ticks       []tick.Tick
	buckets     map[string]demand.Bucket
	outbox      []outbox.Event
	urvCursors  map[string]time.Time
	proposals   map[string]string
}

func newState() *state {
	return &state{
		networks:    make(map[string]network.Network),
		shops:       make(map[string]shop.Shop),
		workTypes:   make(map[string]shop.WorkType),
		terminals:   make(map[string]shop.Terminal),
		employees:   make(map[string]employee.Employee),
		constraints: make(map[string]employee.Constraints),
		workerDays:  make(map[string]workerday.WorkerDay),
		buckets:     make(map[string]demand.Bucket),
		urvCursors:  make(map[string]time.Time),
		proposals:   make(map[string]string),
	}
}

// clone copies every collection. Records are values, so a shallow copy of
// each map or slice is a full snapshot.
func (st *state) clone() *state {
	c := &state{
		networks:    cloneMap(st.networks),
		shops:       cloneMap(st.shops),
		workTypes:   cloneMap(st.workTypes),
		terminals:   cloneMap(st.terminals),
		employees:   cloneMap(st.employees),
		employments: append([]employee.Employment(nil), st.employments...),
		constraints: cloneMap(st.constraints),
		workerDays:  cloneMap(st.workerDays),
		overrides:   append([]workerday.Override(nil), st.overrides...),
		ticks:       append([]tick.Tick(nil), st.ticks...),
		buckets:     cloneMap(st.buckets),
		outbox:      append([]outbox.Event(nil), st.outbox...),
		urvCursors:  cloneMap(st.urvCursors),
		proposals:   cloneMap(st.proposals),
	}
	return c
}

func cloneMap[V any](m map[string]V) map[string]V {
	c := make(map[string]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

type fault struct {
	err       error
	remaining int
}

type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data *state

	faults         map[string]*fault
	partitionLocks []string
	now            func() time.Time
}

func NewStore() *Store {
	return &Store{
		data:   newState(),
		faults: make(map[string]*fault),
		now:    time.Now,
	}
}

// SetNow replaces the clock used for CreatedAt and UpdatedAt stamps.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Fail makes every call of op return err until cleared with a nil err.
// Operations are named "<repository>.<Method>", e.g. "workerday.UpdateFact".
func (s *Store) Fail(op string, err error) {
	s.FailN(op, err, 0)
}

// FailN makes the next n calls of op return err. n <= 0 means every call.
func (s *Store) FailN(op string, err error, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = &fault{err: err, remaining: n}
}

// check returns the injected error of op. Callers hold s.mu.
func (s *Store) check(op string) error {
	f, ok := s.faults[op]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(s.faults, op)
		}
	}
	return f.err
}

type txKey struct{}

// WithinTransaction implements database.Transactor. Nested calls join the
// outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	if err := s.check("tx.Begin"); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := s.data.clone()
	s.mu.Unlock()

	err := fn(context.WithValue(ctx, txKey{}, true))
	if err == nil {
		s.mu.Lock()
		err = s.check("tx.Commit")
		s.mu.Unlock()
	}
	if err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// LockPartition implements vacancy.PartitionLocker by recording the call.
func (s *Store) LockPartition(ctx context.Context, shopID, workTypeID string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Value(txKey{}) == nil {
		return fmt.Errorf("partition lock requires a transaction")
	}
	if err := s.check("vacancy.LockPartition"); err != nil {
		return err
	}
	s.partitionLocks = append(s.partitionLocks, fmt.Sprintf("%s|%s|%s", shopID, workTypeID, date.Format("2006-01-02")))
	return nil
}

// PartitionLocks returns every partition key locked so far.
func (s *Store) PartitionLocks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.partitionLocks...)
}

func (s *Store) AddNetwork(n network.Network) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.networks[n.ID] = n
}

func (s *Store) AddShop(sh shop.Shop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.shops[sh.ID] = sh
}

func (s *Store) AddWorkType(wt shop.WorkType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.workTypes[wt.ID] = wt
}

func (s *Store) AddTerminal(t shop.Terminal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.terminals[t.ID] = t
}

func (s *Store) AddEmployee(e employee.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.employees[e.ID] = e
}

func (s *Store) AddEmployment(e employee.Employment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.employments = append(s.data.employments, e)
}

func (s *Store) SetConstraints(c employee.Constraints) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.constraints[c.EmployeeID] = c
}

// AddWorkerDay stores a plan, fact or vacancy record as is.
func (s *Store) AddWorkerDay(wd workerday.WorkerDay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.workerDays[wd.ID] = wd
}

func (s *Store) AddBuckets(buckets ...demand.Bucket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range buckets {
		s.data.buckets[bucketKey(b.ShopID, b.WorkTypeID, b.Start)] = b
	}
}

// Facts returns every fact worker day ordered by business date.
func (s *Store) Facts() []workerday.WorkerDay {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []workerday.WorkerDay
	for _, wd := range s.data.workerDays {
		if wd.IsFact {
			out = append(out, wd)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BusinessDate.Equal(out[j].BusinessDate) {
			return out[i].BusinessDate.Before(out[j].BusinessDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) WorkerDay(id string) (workerday.WorkerDay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wd, ok := s.data.workerDays[id]
	return wd, ok
}

func (s *Store) Ticks() []tick.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tick.Tick(nil), s.data.ticks...)
}

func (s *Store) Events() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Event(nil), s.data.outbox...)
}

// EventsOf returns outbox events of one type.
func (s *Store) EventsOf(t outbox.EventType) []outbox.Event {
	var out []outbox.Event
	for _, e := range s.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) Employee(id string) (employee.Employee, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.employees[id]
	return e, ok
}

func bucketKey(shopID, workTypeID string, start time.Time) string {
	return fmt.Sprintf("%s|%s|%d", shopID, workTypeID, start.Unix())
}

func overlaps(start, end *time.Time, from, to time.Time) bool {
	if start == nil || end == nil {
		return false
	}
	return start.Before(to) && from.Before(*end)
}
