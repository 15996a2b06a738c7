package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/outbox"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/tick"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/vacancy"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/keylock"
	"github.com/cmlabs-hris/wfm-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/wfm-backend-go/internal/service/matcher"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const empID = "0b7f3c1e-5d2a-4c8e-9f61-2a4b6c8d0e11"

type fixture struct {
	store *memory.Store
	r     *ReconcilerImpl
	net   network.Network
	shop  shop.Shop
}

func newFixture(t *testing.T, mutate func(n *network.Network)) *fixture {
	t.Helper()
	s := memory.NewStore()
	net := network.Default("net-1")
	if mutate != nil {
		mutate(&net)
	}
	sh := shop.Shop{ID: "shop-1", NetworkID: net.ID, Code: "S1"}
	s.AddNetwork(net)
	s.AddShop(sh)
	s.AddShop(shop.Shop{ID: "shop-2", NetworkID: net.ID, Code: "S2"})

	r := NewReconciler(s, s.WorkerDays(), s.Shops(), s.Networks(), outbox.NewPublisher(s.Outbox()), keylock.New())
	return &fixture{store: s, r: r, net: net, shop: sh}
}

func at(day, h, m int) time.Time {
	return time.Date(2024, 3, day, h, m, 0, 0, time.UTC)
}

func date(day int) time.Time {
	return time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) plan(id string, day int, start, end time.Time) {
	emp := empID
	f.store.AddWorkerDay(workerday.WorkerDay{
		ID:           id,
		EmployeeID:   &emp,
		ShopID:       f.shop.ID,
		BusinessDate: date(day),
		Kind:         workerday.KindWorkday,
		Start:        &start,
		End:          &end,
		IsPlan:       true,
		IsApproved:   true,
	})
}

func (f *fixture) feedAt(t *testing.T, sh shop.Shop, ts time.Time, kind tick.Kind) (Result, error) {
	t.Helper()
	ctx := context.Background()
	d := sh.BusinessDate(ts)
	plans, err := f.store.WorkerDays().ListApprovedPlans(ctx, empID, d.AddDate(0, 0, -1), d.AddDate(0, 0, 1))
	require.NoError(t, err)

	in := Input{
		Tick:    tick.Tick{ID: uuid.NewString(), EmployeeID: empID, ShopID: sh.ID, Dttm: ts, Kind: kind},
		Verdict: matcher.Match(ts, kind, plans, matcher.SettingsFrom(f.net)),
		Network: f.net,
		Shop:    sh,
	}
	in.HasOpenVacancy, err = f.store.Vacancies().HasOpen(ctx, sh.ID, in.Verdict.BusinessDate(d))
	require.NoError(t, err)

	var res Result
	err = f.r.Serialize(ctx, KeyFor(in), func(txCtx context.Context) error {
		var err error
		res, err = f.r.Reconcile(txCtx, in)
		return err
	})
	return res, err
}

func (f *fixture) feed(t *testing.T, ts time.Time, kind tick.Kind) Result {
	t.Helper()
	res, err := f.feedAt(t, f.shop, ts, kind)
	require.NoError(t, err)
	return res
}

func (f *fixture) onlyFact(t *testing.T) workerday.WorkerDay {
	t.Helper()
	facts := f.store.Facts()
	require.Len(t, facts, 1)
	return facts[0]
}

func TestReconcile_HappyPathSingleShift(t *testing.T) {
	f := newFixture(t, nil)
	f.plan("plan-1", 1, at(1, 10, 0), at(1, 20, 0))

	assert.Equal(t, ActionOpened, f.feed(t, at(1, 9, 58), tick.KindArrival).Action)
	assert.Equal(t, ActionClosed, f.feed(t, at(1, 20, 5), tick.KindDeparture).Action)

	fact := f.onlyFact(t)
	assert.Equal(t, date(1), fact.BusinessDate)
	assert.Equal(t, at(1, 9, 58), *fact.Start)
	assert.Equal(t, at(1, 20, 5), *fact.End)
	require.NotNil(t, fact.PlanID)
	assert.Equal(t, "plan-1", *fact.PlanID)
	assert.False(t, fact.SuspiciousGap)
	assert.InDelta(t, 10+7.0/60, fact.DayHours, 1e-9)
	assert.Zero(t, fact.NightHours)
}

func TestReconcile_Idempotent(t *testing.T) {
	f := newFixture(t, nil)
	f.plan("plan-1", 1, at(1, 10, 0), at(1, 20, 0))

	f.feed(t, at(1, 9, 58), tick.KindArrival)
	f.feed(t, at(1, 20, 5), tick.KindDeparture)
	once := f.onlyFact(t)

	assert.Equal(t, ActionIgnored, f.feed(t, at(1, 9, 58), tick.KindArrival).Action)
	assert.Equal(t, ActionIgnored, f.feed(t, at(1, 20, 5), tick.KindDeparture).Action)
	twice := f.onlyFact(t)

	assert.Equal(t, once.Start, twice.Start)
	assert.Equal(t, once.End, twice.End)
	assert.Equal(t, once.DayHours, twice.DayHours)
}

func TestReconcile_LateArrivalOpensAtTick(t *testing.T) {
	f := newFixture(t, func(n *network.Network) { n.AllowedLateArrival = 15 * time.Minute })
	f.plan("plan-1", 1, at(1, 10, 0), at(1, 20, 0))

	f.feed(t, at(1, 10, 20), tick.KindArrival)

	fact := f.onlyFact(t)
	assert.Equal(t, at(1, 10, 20), *fact.Start)
	assert.Nil(t, fact.End)
	assert.True(t, fact.IsOpen())
}

func TestReconcile_OvernightShift(t *testing.T) {
	f := newFixture(t, nil)
	f.plan("plan-night", 1, at(1, 22, 0), at(2, 7, 0))

	f.feed(t, at(1, 22, 5), tick.KindArrival)
	f.feed(t, at(2, 7, 10), tick.KindDeparture)

	fact := f.onlyFact(t)
	assert.Equal(t, date(1), fact.BusinessDate)
	assert.Equal(t, at(1, 22, 5), *fact.Start)
	assert.Equal(t, at(2, 7, 10), *fact.End)
	assert.InDelta(t, 7+55.0/60, fact.NightHours, 1e-9)
	assert.InDelta(t, 1+10.0/60, fact.DayHours, 1e-9)
}

func TestReconcile_EarliestArrivalAndLatestDepartureWin(t *testing.T) {
	f := newFixture(t, nil)
	f.plan("plan-1", 1, at(1, 10, 0), at(1, 20, 0))

	f.feed(t, at(1, 10, 3), tick.KindArrival)
	assert.Equal(t, ActionStartMoved, f.feed(t, at(1, 9, 57), tick.KindArrival).Action)
	assert.Equal(t, ActionIgnored, f.feed(t, at(1, 10, 1), tick.KindArrival).Action)

	f.feed(t, at(1, 19, 58), tick.KindDeparture)
	assert.Equal(t, ActionEndMoved, f.feed(t, at(1, 20, 4), tick.KindDeparture).Action)
	assert.Equal(t, ActionIgnored, f.feed(t, at(1, 19, 59), tick.KindDeparture).Action)

	fact := f.onlyFact(t)
	assert.Equal(t, at(1, 9, 57), *fact.Start)
	assert.Equal(t, at(1, 20, 4), *fact.End)
}

func TestReconcile_Breaks(t *testing.T) {
	f := newFixture(t, nil)
	f.plan("plan-1", 1, at(1, 10, 0), at(1, 20, 0))

	f.feed(t, at(1, 10, 0), tick.KindArrival)
	assert.Equal(t, ActionBreakStarted, f.feed(t, at(1, 13, 0), tick.KindBreakStart).Action)
	assert.Equal(t, ActionIgnored, f.feed(t, at(1, 13, 5), tick.KindBreakStart).Action)
	assert.Equal(t, ActionBreakEnded, f.feed(t, at(1, 13, 30), tick.KindBreakEnd).Action)
	f.feed(t, at(1, 20, 0), tick.KindDeparture)

	fact := f.onlyFact(t)
	assert.Equal(t, int64(1800), fact.BreakSeconds)
	assert.Nil(t, fact.OpenBreakStart)
	assert.InDelta(t, 9.5, fact.DayHours, 1e-9)
}

func TestReconcile_UnplannedWorkPolicy(t *testing.T) {
	strict := func(n *network.Network) {
		n.StrictFactPlan = true
		n.AllowUnplannedWork = false
	}

	t.Run("rejected without open vacancy", func(t *testing.T) {
		f := newFixture(t, strict)
		_, err := f.feedAt(t, f.shop, at(1, 10, 0), tick.KindArrival)
		rej, ok := tick.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, tick.CodeUnplannedWork, rej.Code)
		assert.Empty(t, f.store.Facts())
	})

	t.Run("allowed with open vacancy", func(t *testing.T) {
		f := newFixture(t, strict)
		f.store.AddVacancy(vacancy.Vacancy{
			ID: "vac-1", ShopID: f.shop.ID, WorkTypeID: "wt-1", BusinessDate: date(1),
			Start: at(1, 9, 0), End: at(1, 18, 0), State: vacancy.StateOpen,
		})
		res := f.feed(t, at(1, 10, 0), tick.KindArrival)
		assert.Equal(t, ActionOpened, res.Action)
		assert.Nil(t, f.onlyFact(t).PlanID)
	})

	t.Run("allowed by network toggle", func(t *testing.T) {
		f := newFixture(t, func(n *network.Network) {
			strict(n)
			n.AllowUnplannedWork = true
		})
		f.feed(t, at(1, 10, 0), tick.KindArrival)
		f.onlyFact(t)
	})
}

func TestReconcile_UnplannedDepartureWithoutFact(t *testing.T) {
	t.Run("tick only", func(t *testing.T) {
		f := newFixture(t, nil)
		assert.Equal(t, ActionTickOnly, f.feed(t, at(1, 18, 0), tick.KindDeparture).Action)
		assert.Empty(t, f.store.Facts())
	})

	t.Run("end only fact when tick-only records are off", func(t *testing.T) {
		f := newFixture(t, func(n *network.Network) { n.CreateTickOnlyRecord = false })
		res := f.feed(t, at(1, 18, 0), tick.KindDeparture)
		assert.Equal(t, ActionClosed, res.Action)
		fact := f.onlyFact(t)
		assert.Nil(t, fact.Start)
		assert.Equal(t, at(1, 18, 0), *fact.End)
	})

	t.Run("planned departure opens and closes", func(t *testing.T) {
		f := newFixture(t, nil)
		f.plan("plan-1", 1, at(1, 10, 0), at(1, 20, 0))
		assert.Equal(t, ActionClosed, f.feed(t, at(1, 20, 0), tick.KindDeparture).Action)
		fact := f.onlyFact(t)
		assert.Equal(t, "plan-1", *fact.PlanID)
	})
}

func TestReconcile_UnplannedDepartureClosesYesterday(t *testing.T) {
	f := newFixture(t, nil)

	f.feed(t, at(1, 21, 0), tick.KindArrival)
	assert.Equal(t, ActionClosed, f.feed(t, at(2, 5, 0), tick.KindDeparture).Action)

	fact := f.onlyFact(t)
	assert.Equal(t, date(1), fact.BusinessDate)
	assert.Equal(t, at(2, 5, 0), *fact.End)
}

func TestReconcile_UntypedWithoutPlanFollowsFactState(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, tick.KindArrival, f.feed(t, at(1, 9, 0), tick.KindUntyped).Kind)
	res := f.feed(t, at(1, 17, 0), tick.KindUntyped)
	assert.Equal(t, tick.KindDeparture, res.Kind)
	assert.Equal(t, ActionClosed, res.Action)
}

func TestReconcile_FactAtAnotherShop(t *testing.T) {
	f := newFixture(t, nil)
	f.feed(t, at(1, 9, 0), tick.KindArrival)

	other, err := f.store.Shops().GetByID(context.Background(), "shop-2")
	require.NoError(t, err)
	_, err = f.feedAt(t, other, at(1, 12, 0), tick.KindArrival)
	assert.ErrorIs(t, err, workerday.ErrOtherShop)
}

func TestReconcile_SuspiciousGap(t *testing.T) {
	f := newFixture(t, nil)
	f.plan("plan-1", 1, at(1, 10, 0), at(1, 20, 0))

	f.feed(t, at(1, 6, 0), tick.KindArrival)
	f.feed(t, at(1, 23, 59), tick.KindDeparture)

	fact := f.onlyFact(t)
	assert.True(t, fact.SuspiciousGap)
	assert.Equal(t, at(1, 6, 0), *fact.Start)
	assert.Equal(t, at(1, 23, 59), *fact.End)
	assert.Len(t, f.store.EventsOf(outbox.EventSuspiciousGap), 1)
}

func TestReconcile_BackToBackChainIsNotSuspicious(t *testing.T) {
	f := newFixture(t, nil)
	f.plan("evening", 1, at(1, 16, 0), at(2, 0, 0))
	f.plan("night", 2, at(2, 0, 0), at(2, 4, 0))

	assert.Equal(t, ActionOpened, f.feed(t, at(1, 15, 58), tick.KindArrival).Action)
	assert.Equal(t, ActionClosed, f.feed(t, at(2, 4, 2), tick.KindDeparture).Action)

	fact := f.onlyFact(t)
	assert.Equal(t, date(1), fact.BusinessDate)
	assert.Equal(t, at(1, 15, 58), *fact.Start)
	assert.Equal(t, at(2, 4, 2), *fact.End)
	assert.False(t, fact.SuspiciousGap)
	assert.Empty(t, f.store.EventsOf(outbox.EventSuspiciousGap))
}

func TestReconcile_ConcurrentTicksSerialize(t *testing.T) {
	f := newFixture(t, nil)
	f.plan("plan-1", 1, at(1, 10, 0), at(1, 20, 0))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			_, err := f.feedAt(t, f.shop, at(1, 9, 55+offset%10/2), tick.KindArrival)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	fact := f.onlyFact(t)
	assert.Equal(t, at(1, 9, 55), *fact.Start)
}

func TestReconcile_RetriesConflicts(t *testing.T) {
	f := newFixture(t, nil)
	f.plan("plan-1", 1, at(1, 10, 0), at(1, 20, 0))
	f.feed(t, at(1, 10, 2), tick.KindArrival)

	f.store.FailN("workerday.UpdateFact", database.ErrConflict, 2)
	f.feed(t, at(1, 9, 58), tick.KindArrival)
	assert.Equal(t, at(1, 9, 58), *f.onlyFact(t).Start)

	f.store.FailN("workerday.UpdateFact", database.ErrConflict, maxAttempts)
	_, err := f.feedAt(t, f.shop, at(1, 9, 50), tick.KindArrival)
	assert.ErrorIs(t, err, workerday.ErrConflict)
	assert.Equal(t, at(1, 9, 58), *f.onlyFact(t).Start)
}

func TestReconcile_StorageErrorRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	f.plan("plan-1", 1, at(1, 10, 0), at(1, 20, 0))
	boom := errors.New("disk on fire")
	f.store.Fail("workerday.CreateFact", boom)

	_, err := f.feedAt(t, f.shop, at(1, 10, 0), tick.KindArrival)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.store.Facts())
}

func TestOverride_WritesRevisionLayer(t *testing.T) {
	f := newFixture(t, nil)
	f.plan("plan-1", 1, at(1, 10, 0), at(1, 20, 0))
	f.feed(t, at(1, 9, 58), tick.KindArrival)
	f.feed(t, at(1, 20, 5), tick.KindDeparture)
	fact := f.onlyFact(t)

	end := at(1, 19, 0).Format(time.RFC3339)
	resp, err := f.r.Override(context.Background(), workerday.OverrideRequest{
		WorkerDayID: fact.ID,
		End:         &end,
		Reason:      "left early, forgot to clock out",
	}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Revision)
	assert.Equal(t, at(1, 19, 0), *resp.End)
	assert.Equal(t, at(1, 9, 58), *resp.Start)
	assert.InDelta(t, 9+2.0/60, resp.DayHours, 1e-9)

	stored := f.onlyFact(t)
	assert.Equal(t, at(1, 20, 5), *stored.End)
	assert.Equal(t, 1, stored.Revision)

	latest, err := f.store.WorkerDays().GetLatestOverride(context.Background(), fact.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "admin-1", latest.AuthorID)
}

func TestOverride_RejectsPlanDay(t *testing.T) {
	f := newFixture(t, nil)
	id := uuid.NewString()
	f.plan(id, 1, at(1, 10, 0), at(1, 20, 0))

	end := at(1, 19, 0).Format(time.RFC3339)
	_, err := f.r.Override(context.Background(), workerday.OverrideRequest{WorkerDayID: id, End: &end, Reason: "x"}, "admin-1")
	assert.ErrorIs(t, err, workerday.ErrNotFact)
}

func TestMarkStaleOpenFacts(t *testing.T) {
	f := newFixture(t, nil)
	f.plan("plan-1", 1, at(1, 10, 0), at(1, 20, 0))
	f.feed(t, at(1, 10, 0), tick.KindArrival)

	f.r.now = func() time.Time { return at(1, 23, 0) }
	marked, err := f.r.MarkStaleOpenFacts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, marked)

	f.r.now = func() time.Time { return at(2, 0, 30) }
	marked, err = f.r.MarkStaleOpenFacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	fact := f.onlyFact(t)
	assert.True(t, fact.SuspiciousGap)
	assert.True(t, fact.IsOpen())
	assert.Len(t, f.store.EventsOf(outbox.EventSuspiciousGap), 1)

	marked, err = f.r.MarkStaleOpenFacts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, marked)
}

func TestMarkStaleOpenFacts_WaitsForChainEnd(t *testing.T) {
	f := newFixture(t, nil)
	f.plan("evening", 1, at(1, 16, 0), at(2, 0, 0))
	f.plan("night", 2, at(2, 0, 0), at(2, 4, 0))
	f.feed(t, at(1, 16, 0), tick.KindArrival)

	// Past the evening plan by more than MaxDiff, still inside the chain.
	f.r.now = func() time.Time { return at(2, 4, 30) }
	marked, err := f.r.MarkStaleOpenFacts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, marked)

	f.r.now = func() time.Time { return at(2, 8, 30) }
	marked, err = f.r.MarkStaleOpenFacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)
}
