package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/demand"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/outbox"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/tick"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/vacancy"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/wfm-backend-go/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func seeded(t *testing.T) *TestDatabaseSetup {
	setup := NewTestDatabase(t)
	require.NoError(t, setup.Seed(context.Background()))
	return setup
}

func TestReferenceRepositories(t *testing.T) {
	setup := seeded(t)
	ctx := context.Background()

	n, err := postgresql.NewNetworkRepository(setup.DB).GetByID(ctx, "net-1")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, n.DeltaForComingIn)
	assert.Equal(t, 24*time.Hour, n.CheckLackTimegap)
	assert.Equal(t, 0.4, n.CreateVacancyLackMin)
	assert.False(t, n.GeoCheckEnabled())

	shops := postgresql.NewShopRepository(setup.DB)
	s, err := shops.GetByURVZone(ctx, "zone-1")
	require.NoError(t, err)
	assert.Equal(t, "S1", s.Code)
	require.Len(t, s.OpeningHours, 1)
	assert.Equal(t, time.Friday, s.OpeningHours[0].Weekday)
	assert.Equal(t, 8*time.Hour, s.OpeningHours[0].Open)

	_, err = shops.GetByCode(ctx, "net-1", "missing")
	assert.ErrorIs(t, err, shop.ErrShopNotFound)

	wt, err := postgresql.NewWorkTypeRepository(setup.DB).FindByName(ctx, "shop-1", "Cashier")
	require.NoError(t, err)
	assert.Equal(t, 1.5, wt.SpeedCoefficient)

	emp, err := postgresql.NewEmployeeRepository(setup.DB).GetMostRecentForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "emp-1", emp.ID)

	employments := postgresql.NewEmploymentRepository(setup.DB)
	active, err := employments.ListActiveByShop(ctx, "shop-1", day)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].CanWork("Cashier"))

	c, err := employments.GetConstraints(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 11*time.Hour, c.MinRestBetweenShifts)
	assert.True(t, c.Blocks(at(13, 30), at(15, 0), time.UTC))
}

func TestWorkerDayRepository_Facts(t *testing.T) {
	setup := seeded(t)
	ctx := context.Background()
	tx := postgresql.NewTxManager(setup.DB)
	repo := postgresql.NewWorkerDayRepository(setup.DB)

	_, err := setup.DB.Exec(ctx, `
		INSERT INTO worker_days (id, employee_id, shop_id, business_date, start_at, end_at, is_plan, is_approved)
		VALUES ('plan-1', 'emp-1', 'shop-1', $1, $2, $3, TRUE, TRUE)`, day, at(10, 0), at(18, 0))
	require.NoError(t, err)

	emp := "emp-1"
	plan := "plan-1"
	start := at(9, 58)
	fact := workerday.WorkerDay{
		EmployeeID:   &emp,
		ShopID:       "shop-1",
		BusinessDate: day,
		Kind:         workerday.KindWorkday,
		Start:        &start,
		IsApproved:   true,
		PlanID:       &plan,
		Details:      []workerday.Detail{{WorkTypeID: "wt-1", Start: at(10, 0), End: at(18, 0)}},
	}

	t.Run("rollback discards the fact", func(t *testing.T) {
		boom := errors.New("boom")
		err := tx.WithinTransaction(ctx, func(txCtx context.Context) error {
			_, err := repo.CreateFact(txCtx, fact)
			require.NoError(t, err)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = repo.GetFactForUpdate(ctx, emp, day)
		assert.ErrorIs(t, err, workerday.ErrWorkerDayNotFound)
	})

	t.Run("second fact for the date conflicts", func(t *testing.T) {
		created, err := repo.CreateFact(ctx, fact)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)

		_, err = repo.CreateFact(ctx, fact)
		assert.True(t, database.IsConflict(err))
	})

	t.Run("locked read and update", func(t *testing.T) {
		err := tx.WithinTransaction(ctx, func(txCtx context.Context) error {
			wd, err := repo.GetFactForUpdate(txCtx, emp, day)
			if err != nil {
				return err
			}
			require.Len(t, wd.Details, 1)
			wd.Revision++
			return repo.UpdateFact(txCtx, wd)
		})
		require.NoError(t, err)

		wd, err := repo.GetFactForUpdate(ctx, emp, day)
		require.NoError(t, err)
		assert.Equal(t, 1, wd.Revision)
	})

	t.Run("open fact past its plan is stale", func(t *testing.T) {
		stale, err := repo.ListStaleOpenFacts(ctx, at(20, 0), 10)
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.True(t, stale[0].PlanEnd.Equal(at(18, 0)))

		require.NoError(t, repo.MarkSuspicious(ctx, stale[0].ID))
		stale, err = repo.ListStaleOpenFacts(ctx, at(20, 0), 10)
		require.NoError(t, err)
		assert.Empty(t, stale)
	})
}

func TestWorkerDayRepository_OnePlanPerDate(t *testing.T) {
	setup := seeded(t)
	ctx := context.Background()
	days := postgresql.NewWorkerDayRepository(setup.DB)
	vacancies := postgresql.NewVacancyRepository(setup.DB)

	insertPlan := func(id string, start, end time.Time) error {
		_, err := setup.DB.Exec(ctx, `
			INSERT INTO worker_days (id, employee_id, shop_id, business_date, start_at, end_at, is_plan, is_approved)
			VALUES ($1, 'emp-1', 'shop-1', $2, $3, $4, TRUE, TRUE)`, id, day, start, end)
		return err
	}
	require.NoError(t, insertPlan("plan-1", at(8, 0), at(12, 0)))

	err := insertPlan("plan-2", at(14, 0), at(18, 0))
	assert.True(t, database.IsConflict(err))

	v, err := vacancies.Create(ctx, vacancy.Vacancy{
		ShopID:       "shop-1",
		WorkTypeID:   "wt-1",
		BusinessDate: day,
		Start:        at(14, 0),
		End:          at(18, 0),
		State:        vacancy.StateOpen,
	})
	require.NoError(t, err)

	require.NoError(t, vacancies.SetProposal(ctx, v.ID, "emp-1"))
	v, err = vacancies.GetForUpdate(ctx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, v.ProposedEmployeeID)
	assert.Equal(t, "emp-1", *v.ProposedEmployeeID)

	emp := "emp-1"
	require.NoError(t, v.Transition(vacancy.StateAssigned, &emp))
	assert.True(t, database.IsConflict(vacancies.UpdateState(ctx, v)))

	assert.ErrorIs(t, days.DeletePlan(ctx, v.ID), workerday.ErrWorkerDayNotFound)
	require.NoError(t, days.DeletePlan(ctx, "plan-1"))
	assert.ErrorIs(t, days.DeletePlan(ctx, "plan-1"), workerday.ErrWorkerDayNotFound)

	require.NoError(t, vacancies.UpdateState(ctx, v))
	plans, err := days.ListEmployeePlans(ctx, emp, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, v.ID, plans[0].ID)
}

func TestVacancyRepository(t *testing.T) {
	setup := seeded(t)
	ctx := context.Background()
	tx := postgresql.NewTxManager(setup.DB)
	repo := postgresql.NewVacancyRepository(setup.DB)
	locker := postgresql.NewPartitionLocker(setup.DB)

	var created vacancy.Vacancy
	err := tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := locker.LockPartition(txCtx, "shop-1", "wt-1", day); err != nil {
			return err
		}
		var err error
		created, err = repo.Create(txCtx, vacancy.Vacancy{
			ShopID:       "shop-1",
			WorkTypeID:   "wt-1",
			BusinessDate: day,
			Start:        at(12, 0),
			End:          at(16, 0),
			State:        vacancy.StateOpen,
		})
		return err
	})
	require.NoError(t, err)

	open, err := repo.HasOpen(ctx, "shop-1", day)
	require.NoError(t, err)
	assert.True(t, open)

	require.NoError(t, repo.UpdateInterval(ctx, created.ID, at(12, 0), at(18, 0)))

	list, err := repo.ListByPartition(ctx, "shop-1", "wt-1", at(17, 0), at(19, 0))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].End.Equal(at(18, 0)))

	emp := "emp-1"
	v := list[0]
	require.NoError(t, v.Transition(vacancy.StateAssigned, &emp))
	require.NoError(t, repo.UpdateState(ctx, v))

	plans, err := postgresql.NewWorkerDayRepository(setup.DB).ListEmployeePlans(ctx, emp, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.True(t, plans[0].IsVacancy)

	_, err = repo.GetForUpdate(ctx, "missing")
	assert.ErrorIs(t, err, vacancy.ErrVacancyNotFound)
}

func TestTickRepository_DuplicateInsert(t *testing.T) {
	setup := seeded(t)
	ctx := context.Background()
	repo := postgresql.NewTickRepository(setup.DB)

	tk := tick.Tick{
		EmployeeID:    "emp-1",
		ShopID:        "shop-1",
		Dttm:          at(9, 58),
		BusinessDate:  day,
		Kind:          tick.KindArrival,
		Source:        tick.SourceTerminal,
		PrincipalKind: principal.KindTerminal,
		Verified:      true,
	}

	first, inserted, err := repo.Insert(ctx, tk)
	require.NoError(t, err)
	assert.True(t, inserted)

	second, inserted, err := repo.Insert(ctx, tk)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ID, second.ID)

	ticks, err := repo.ListByEmployee(ctx, "emp-1", "shop-1", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, ticks, 1)

	cursors := postgresql.NewCursorRepository(setup.DB)
	_, ok, err := cursors.GetCursor(ctx, "urv")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, cursors.SaveCursor(ctx, "urv", at(10, 0)))
	require.NoError(t, cursors.SaveCursor(ctx, "urv", at(11, 0)))
	pos, ok, err := cursors.GetCursor(ctx, "urv")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, pos.Equal(at(11, 0)))
}

func TestDemandRepository_ReplaceRange(t *testing.T) {
	setup := seeded(t)
	ctx := context.Background()
	tx := postgresql.NewTxManager(setup.DB)
	repo := postgresql.NewDemandRepository(setup.DB)

	write := func(values ...float64) {
		f := demand.Forecast{ShopID: "shop-1", WorkTypeID: "wt-1", From: at(10, 0), To: at(12, 0)}
		for i, v := range values {
			f.Buckets = append(f.Buckets, demand.Bucket{Start: at(10, 30*i), Value: v})
		}
		require.NoError(t, tx.WithinTransaction(ctx, func(txCtx context.Context) error {
			return repo.ReplaceRange(txCtx, f)
		}))
	}

	write(10, 20, 30, 40)
	write(5, 6)

	buckets, err := repo.ListBuckets(ctx, "shop-1", []string{"wt-1"}, at(0, 0), at(23, 0))
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, 5.0, buckets[0].Value)
	assert.Equal(t, 6.0, buckets[1].Value)
}

func TestOutboxRepository(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewOutboxRepository(setup.DB)

	for _, shopID := range []string{"shop-1", "shop-2"} {
		e, err := outbox.New(outbox.EventVacancyCreated, shopID, map[string]string{"shop_id": shopID})
		require.NoError(t, err)
		require.NoError(t, repo.Add(ctx, e))
	}

	claimed, err := repo.ClaimPending(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.JSONEq(t, `{"shop_id":"shop-1"}`, string(claimed[0].Payload))

	require.NoError(t, repo.MarkDispatched(ctx, []string{claimed[0].ID}))
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.MarkFailed(ctx, claimed[1].ID, "sink down"))
	}

	claimed, err = repo.ClaimPending(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}
