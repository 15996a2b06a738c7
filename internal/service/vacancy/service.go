package vacancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/coverage"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/outbox"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/vacancy"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/keylock"
	coveragesvc "github.com/cmlabs-hris/wfm-backend-go/internal/service/coverage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// SeriesBuilder computes coverage for a shop whose network is already loaded.
type SeriesBuilder interface {
	BuildForShop(ctx context.Context, sh shop.Shop, net network.Network, q coverage.Query) (coverage.Series, error)
}

type ControllerImpl struct {
	tx     database.Transactor
	locker vacancy.PartitionLocker
	vacancy.VacancyRepository
	shop.ShopRepository
	shop.WorkTypeRepository
	network.NetworkRepository
	workerday.WorkerDayRepository
	employee.EmploymentRepository
	outbox.Publisher
	series      SeriesBuilder
	locks       *keylock.Map
	concurrency int
	now         func() time.Time
}

func NewController(
	tx database.Transactor,
	locker vacancy.PartitionLocker,
	vacancyRepo vacancy.VacancyRepository,
	shopRepo shop.ShopRepository,
	workTypeRepo shop.WorkTypeRepository,
	networkRepo network.NetworkRepository,
	workerDayRepo workerday.WorkerDayRepository,
	employmentRepo employee.EmploymentRepository,
	publisher outbox.Publisher,
	series SeriesBuilder,
	concurrency int,
) *ControllerImpl {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &ControllerImpl{
		tx:                   tx,
		locker:               locker,
		VacancyRepository:    vacancyRepo,
		ShopRepository:       shopRepo,
		WorkTypeRepository:   workTypeRepo,
		NetworkRepository:    networkRepo,
		WorkerDayRepository:  workerDayRepo,
		EmploymentRepository: employmentRepo,
		Publisher:            publisher,
		series:               series,
		locks:                keylock.New(),
		concurrency:          concurrency,
		now:                  time.Now,
	}
}

type partition struct {
	shop     shop.Shop
	net      network.Network
	workType shop.WorkType
	date     time.Time
	from     time.Time
	to       time.Time
}

func (p partition) key() string {
	return fmt.Sprintf("%s|%s|%s", p.shop.ID, p.workType.ID, p.date.Format("2006-01-02"))
}

// RunAll runs one cycle for every shop of every network.
func (s *ControllerImpl) RunAll(ctx context.Context) error {
	networks, err := s.NetworkRepository.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list networks: %w", err)
	}
	at := s.now()
	var errs []error
	for _, net := range networks {
		shops, err := s.ShopRepository.ListByNetwork(ctx, net.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to list shops of network %s: %w", net.ID, err))
			continue
		}
		for _, sh := range shops {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.runShop(ctx, sh, net, at)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if len(res.Actions) > 0 || res.Failed > 0 {
				slog.Info("Vacancy cycle finished", "shop_id", sh.ID, "partitions", res.Partitions, "failed", res.Failed, "actions", len(res.Actions))
			}
		}
	}
	return errors.Join(errs...)
}

// RunShop implements vacancy.VacancyService.
func (s *ControllerImpl) RunShop(ctx context.Context, shopID string, at time.Time) (vacancy.RunResponse, error) {
	sh, err := s.ShopRepository.GetByID(ctx, shopID)
	if err != nil {
		return vacancy.RunResponse{}, err
	}
	net, err := s.NetworkRepository.GetByID(ctx, sh.NetworkID)
	if err != nil {
		return vacancy.RunResponse{}, fmt.Errorf("failed to load network of shop %s: %w", sh.ID, err)
	}
	if at.IsZero() {
		at = s.now()
	}
	return s.runShop(ctx, sh, net, at)
}

func (s *ControllerImpl) runShop(ctx context.Context, sh shop.Shop, net network.Network, at time.Time) (vacancy.RunResponse, error) {
	res := vacancy.RunResponse{ShopID: sh.ID, Actions: []vacancy.ActionResponse{}}

	from := at.Add(net.CheckLackTimegap)
	to := from.Add(net.WorkerSelectTimegap)
	if !to.After(from) {
		return res, nil
	}

	workTypes, err := s.WorkTypeRepository.ListByShop(ctx, sh.ID)
	if err != nil {
		return res, fmt.Errorf("failed to list work types of shop %s: %w", sh.ID, err)
	}

	var parts []partition
	for _, wt := range workTypes {
		for _, piece := range splitByDate(sh, from, to) {
			parts = append(parts, partition{shop: sh, net: net, workType: wt, date: piece.date, from: piece.from, to: piece.to})
		}
	}
	res.Partitions = len(parts)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)
	for _, p := range parts {
		p := p
		g.Go(func() error {
			actions, err := s.runPartition(ctx, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				if errors.Is(err, vacancy.ErrPartitionBusy) {
					slog.Debug("Vacancy partition busy, skipped", "partition", p.key())
				} else {
					slog.Error("Vacancy partition cycle failed", "partition", p.key(), "error", err)
				}
				return nil
			}
			for _, a := range actions {
				res.Actions = append(res.Actions, vacancy.NewActionResponse(a))
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(res.Actions, func(i, j int) bool {
		if !res.Actions[i].Start.Equal(res.Actions[j].Start) {
			return res.Actions[i].Start.Before(res.Actions[j].Start)
		}
		return res.Actions[i].WorkTypeID < res.Actions[j].WorkTypeID
	})
	return res, nil
}

// runPartition runs one cycle in a single transaction. On error nothing of the
// cycle is persisted.
func (s *ControllerImpl) runPartition(ctx context.Context, p partition) ([]vacancy.Action, error) {
	unlock, ok := s.locks.TryLock(p.key())
	if !ok {
		return nil, vacancy.ErrPartitionBusy
	}
	defer unlock()

	var applied []vacancy.Action
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		applied = nil
		if err := s.locker.LockPartition(txCtx, p.shop.ID, p.workType.ID, p.date); err != nil {
			return fmt.Errorf("failed to lock partition: %w", err)
		}

		existing, err := s.VacancyRepository.ListByPartition(txCtx, p.shop.ID, p.workType.ID, p.from, p.to)
		if err != nil {
			return fmt.Errorf("failed to list vacancies: %w", err)
		}

		from, to := p.from, p.to
		for _, v := range existing {
			if v.Start.Before(from) {
				from = v.Start
			}
			if v.End.After(to) {
				to = v.End
			}
		}
		series, err := s.series.BuildForShop(txCtx, p.shop, p.net, coverage.Query{
			ShopID:      p.shop.ID,
			WorkTypeIDs: []string{p.workType.ID},
			From:        from,
			To:          to,
		})
		if err != nil {
			return fmt.Errorf("failed to build coverage: %w", err)
		}
		if n := countMissing(series); n > 0 {
			slog.Warn("Vacancy partition has buckets without forecast", "partition", p.key(), "missing", n)
		}

		horizon := coveragesvc.Grid(p.from, p.to, series.Step, p.shop.Location())
		if len(horizon) == 0 {
			return nil
		}
		actions := Plan(series, existing, PlanParams{
			CreateThreshold: p.net.CreateVacancyLackMin,
			CancelThreshold: p.net.DeleteVacancyLackMax,
			MinShift:        p.shop.MinShift(),
			From:            horizon[0],
			To:              p.to,
		})

		byID := make(map[string]vacancy.Vacancy, len(existing))
		for _, v := range existing {
			byID[v.ID] = v
		}

		touched := make(map[string]bool, len(actions))
		var unmet []vacancy.Vacancy
		for _, a := range actions {
			a.ShopID, a.WorkTypeID = p.shop.ID, p.workType.ID
			v, err := s.apply(txCtx, p, a, byID)
			if err != nil {
				return err
			}
			a.VacancyID = v.ID
			touched[v.ID] = true
			applied = append(applied, a)
			if a.Kind != vacancy.ActionCancel {
				unmet = append(unmet, v)
			}
		}
		// Open vacancies of earlier cycles still short of a worker.
		for _, v := range existing {
			if !touched[v.ID] && v.State == vacancy.StateOpen && v.ProposedEmployeeID == nil {
				unmet = append(unmet, v)
			}
		}

		for _, v := range unmet {
			proposal, err := s.findDonor(txCtx, p, v)
			if err != nil {
				return err
			}
			if proposal == nil {
				continue
			}
			if err := s.propose(txCtx, p, v, proposal); err != nil {
				return err
			}
			applied = append(applied, *proposal)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

func (s *ControllerImpl) apply(ctx context.Context, p partition, a vacancy.Action, byID map[string]vacancy.Vacancy) (vacancy.Vacancy, error) {
	switch a.Kind {
	case vacancy.ActionCreate:
		v, err := s.VacancyRepository.Create(ctx, vacancy.Vacancy{
			ID:           uuid.NewString(),
			ShopID:       p.shop.ID,
			WorkTypeID:   p.workType.ID,
			BusinessDate: p.date,
			Start:        a.Start,
			End:          a.End,
			State:        vacancy.StateOpen,
		})
		if err != nil {
			return vacancy.Vacancy{}, fmt.Errorf("failed to create vacancy: %w", err)
		}
		return v, s.Publisher.Publish(ctx, outbox.EventVacancyCreated, p.shop.ID, eventPayload(v))

	case vacancy.ActionExtend:
		v := byID[a.VacancyID]
		v.Start, v.End = a.Start, a.End
		if err := s.VacancyRepository.UpdateInterval(ctx, v.ID, v.Start, v.End); err != nil {
			return vacancy.Vacancy{}, fmt.Errorf("failed to extend vacancy %s: %w", v.ID, err)
		}
		return v, nil

	case vacancy.ActionCancel:
		v := byID[a.VacancyID]
		if err := v.Transition(vacancy.StateCancelled, nil); err != nil {
			return vacancy.Vacancy{}, err
		}
		if err := s.VacancyRepository.UpdateState(ctx, v); err != nil {
			return vacancy.Vacancy{}, fmt.Errorf("failed to cancel vacancy %s: %w", v.ID, err)
		}
		return v, s.Publisher.Publish(ctx, outbox.EventVacancyCancelled, p.shop.ID, eventPayload(v))
	}
	return vacancy.Vacancy{}, fmt.Errorf("unsupported vacancy action %q", a.Kind)
}

// findDonor looks for a worker planned in another shop of the network whose
// shop keeps a surplus of the same work type for the whole plan the worker
// would give up.
func (s *ControllerImpl) findDonor(ctx context.Context, p partition, v vacancy.Vacancy) (*vacancy.Action, error) {
	shops, err := s.ShopRepository.ListByNetwork(ctx, p.net.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list donor shops: %w", err)
	}
	for _, donor := range shops {
		if donor.ID == p.shop.ID {
			continue
		}
		wt, err := s.WorkTypeRepository.FindByName(ctx, donor.ID, p.workType.Name)
		if err != nil {
			if errors.Is(err, shop.ErrWorkTypeNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to resolve donor work type: %w", err)
		}

		plans, err := s.WorkerDayRepository.ListPlansOverlapping(ctx, donor.ID, v.Start, v.End)
		if err != nil {
			return nil, fmt.Errorf("failed to list donor plans: %w", err)
		}
		sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
		for _, plan := range plans {
			if plan.IsVacancy || plan.Employee() == "" || !hasWorkType(plan, wt.ID) {
				continue
			}
			ps, pe, ok := plan.Interval()
			if !ok {
				continue
			}

			series, err := s.series.BuildForShop(ctx, donor, p.net, coverage.Query{
				ShopID:      donor.ID,
				WorkTypeIDs: []string{wt.ID},
				From:        ps,
				To:          pe,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to build donor coverage: %w", err)
			}
			if !inSurplus(series, ps, pe, p.net.WorkerSelectOverflowMin) {
				continue
			}

			started, err := s.onSite(ctx, plan)
			if err != nil {
				return nil, err
			}
			if started {
				continue
			}
			err = s.eligible(ctx, plan.Employee(), p.shop, p.workType.Name, v.Start, v.End, plan.ID)
			if errors.Is(err, vacancy.ErrNotEligible) {
				slog.Debug("Donor worker not eligible", "vacancy_id", v.ID, "employee_id", plan.Employee(), "reason", err)
				continue
			}
			if err != nil {
				return nil, err
			}
			return &vacancy.Action{
				Kind:         vacancy.ActionReassign,
				VacancyID:    v.ID,
				ShopID:       p.shop.ID,
				WorkTypeID:   p.workType.ID,
				Start:        v.Start,
				End:          v.End,
				EmployeeID:   plan.Employee(),
				DonorShopID:  donor.ID,
				DonorPlanID:  plan.ID,
				AutoAssigned: !p.net.RequireReassignConfirmation,
			}, nil
		}
	}
	return nil, nil
}

// onSite reports whether the plan's worker already has a fact on its date.
func (s *ControllerImpl) onSite(ctx context.Context, plan workerday.WorkerDay) (bool, error) {
	_, err := s.WorkerDayRepository.GetFactForUpdate(ctx, plan.Employee(), plan.BusinessDate)
	if errors.Is(err, workerday.ErrWorkerDayNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check fact of plan %s: %w", plan.ID, err)
	}
	return true, nil
}

func (s *ControllerImpl) propose(ctx context.Context, p partition, v vacancy.Vacancy, a *vacancy.Action) error {
	err := s.Publisher.Publish(ctx, outbox.EventVacancyReassignProposed, p.shop.ID, map[string]any{
		"vacancy_id":    v.ID,
		"employee_id":   a.EmployeeID,
		"donor_shop_id": a.DonorShopID,
		"donor_plan_id": a.DonorPlanID,
		"dttm_start":    v.Start,
		"dttm_end":      v.End,
	})
	if err != nil {
		return err
	}
	if !a.AutoAssigned {
		if err := s.VacancyRepository.SetProposal(ctx, v.ID, a.EmployeeID); err != nil {
			return fmt.Errorf("failed to record proposal for vacancy %s: %w", v.ID, err)
		}
		return nil
	}
	return s.bind(ctx, &v, a.EmployeeID, a.DonorPlanID)
}

// bind assigns v to employeeID. A non-empty donorPlanID is removed first so
// the worker keeps a single plan for the date.
func (s *ControllerImpl) bind(ctx context.Context, v *vacancy.Vacancy, employeeID, donorPlanID string) error {
	if donorPlanID != "" {
		if err := s.WorkerDayRepository.DeletePlan(ctx, donorPlanID); err != nil {
			return fmt.Errorf("failed to release donor plan %s: %w", donorPlanID, err)
		}
	}
	emp := employeeID
	if err := v.Transition(vacancy.StateAssigned, &emp); err != nil {
		return err
	}
	if err := s.VacancyRepository.UpdateState(ctx, *v); err != nil {
		return fmt.Errorf("failed to assign vacancy %s: %w", v.ID, err)
	}
	payload := eventPayload(*v)
	if donorPlanID != "" {
		payload["donor_plan_id"] = donorPlanID
	}
	return s.Publisher.Publish(ctx, outbox.EventVacancyAssigned, v.ShopID, payload)
}

// eligible checks employment, other plans of the date, rest time, weekly
// hours and blackout windows of employeeID for [start, end) at sh.
// ignorePlanID is the plan being given up and is left out.
func (s *ControllerImpl) eligible(ctx context.Context, employeeID string, sh shop.Shop, workTypeName string, start, end time.Time, ignorePlanID string) error {
	date := sh.BusinessDate(start)
	employments, err := s.EmploymentRepository.ListByEmployee(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("failed to list employments: %w", err)
	}
	employed := false
	for _, e := range employments {
		if e.ShopID == sh.ID && e.IsActiveOn(date) && e.CanWork(workTypeName) {
			employed = true
			break
		}
	}
	if !employed {
		return fmt.Errorf("%w: no active employment for %s", vacancy.ErrNotEligible, workTypeName)
	}

	c, err := s.EmploymentRepository.GetConstraints(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("failed to load constraints: %w", err)
	}
	loc := sh.Location()
	if c.Blocks(start, end, loc) {
		return fmt.Errorf("%w: blackout window", vacancy.ErrNotEligible)
	}

	weekStart := sh.LocalMidnight(date).AddDate(0, 0, -((int(date.Weekday()) + 6) % 7))
	weekEnd := weekStart.AddDate(0, 0, 7)
	restFrom, restTo := start.Add(-c.MinRestBetweenShifts), end.Add(c.MinRestBetweenShifts)

	plans, err := s.WorkerDayRepository.ListEmployeePlans(ctx, employeeID, minTime(weekStart, restFrom), maxTime(weekEnd, restTo))
	if err != nil {
		return fmt.Errorf("failed to list employee plans: %w", err)
	}
	var weekly time.Duration
	for _, plan := range plans {
		if plan.ID == ignorePlanID {
			continue
		}
		if plan.BusinessDate.Equal(date) {
			return fmt.Errorf("%w: already planned on %s", vacancy.ErrNotEligible, date.Format("2006-01-02"))
		}
		if plan.Kind != "" && plan.Kind != workerday.KindWorkday {
			continue
		}
		ps, pe, ok := plan.Interval()
		if !ok {
			continue
		}
		if ps.Before(restTo) && restFrom.Before(pe) {
			return fmt.Errorf("%w: rest between shifts below %s", vacancy.ErrNotEligible, c.MinRestBetweenShifts)
		}
		weekly += overlap(ps, pe, weekStart, weekEnd)
	}
	weekly += overlap(start, end, weekStart, weekEnd)
	if c.WeeklyMaxHours > 0 && weekly.Hours() > c.WeeklyMaxHours {
		return fmt.Errorf("%w: weekly hours %.1f exceed %.1f", vacancy.ErrNotEligible, weekly.Hours(), c.WeeklyMaxHours)
	}
	return nil
}

// Assign implements vacancy.VacancyService.
func (s *ControllerImpl) Assign(ctx context.Context, req vacancy.AssignRequest) (vacancy.VacancyResponse, error) {
	if err := req.Validate(); err != nil {
		return vacancy.VacancyResponse{}, err
	}
	var out vacancy.Vacancy
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		v, err := s.VacancyRepository.GetForUpdate(txCtx, req.VacancyID)
		if err != nil {
			return err
		}
		if !vacancy.CanTransition(v.State, vacancy.StateAssigned) {
			return vacancy.ErrInvalidTransition
		}
		sh, err := s.ShopRepository.GetByID(txCtx, v.ShopID)
		if err != nil {
			return err
		}
		wt, err := s.WorkTypeRepository.GetByID(txCtx, v.WorkTypeID)
		if err != nil {
			return err
		}
		if req.DonorPlanID != "" {
			if err := s.checkDonorPlan(txCtx, req.DonorPlanID, req.EmployeeID); err != nil {
				return err
			}
		}
		if err := s.eligible(txCtx, req.EmployeeID, sh, wt.Name, v.Start, v.End, req.DonorPlanID); err != nil {
			return err
		}
		if err := s.bind(txCtx, &v, req.EmployeeID, req.DonorPlanID); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return vacancy.VacancyResponse{}, err
	}
	return vacancy.NewVacancyResponse(out), nil
}

// checkDonorPlan verifies that planID is an approved plan of employeeID
// that has not started on site yet.
func (s *ControllerImpl) checkDonorPlan(ctx context.Context, planID, employeeID string) error {
	plan, err := s.WorkerDayRepository.GetByID(ctx, planID)
	if errors.Is(err, workerday.ErrWorkerDayNotFound) {
		return fmt.Errorf("%w: donor plan %s not found", vacancy.ErrNotEligible, planID)
	}
	if err != nil {
		return err
	}
	if !plan.IsPlan || !plan.IsApproved || plan.IsVacancy || plan.Employee() != employeeID {
		return fmt.Errorf("%w: plan %s is not an approved plan of the employee", vacancy.ErrNotEligible, planID)
	}
	started, err := s.onSite(ctx, plan)
	if err != nil {
		return err
	}
	if started {
		return fmt.Errorf("%w: worker already on site for plan %s", vacancy.ErrNotEligible, planID)
	}
	return nil
}

// Confirm implements vacancy.VacancyService.
func (s *ControllerImpl) Confirm(ctx context.Context, id string) (vacancy.VacancyResponse, error) {
	return s.transition(ctx, id, vacancy.StateConfirmed, "")
}

// Cancel implements vacancy.VacancyService.
func (s *ControllerImpl) Cancel(ctx context.Context, id string) (vacancy.VacancyResponse, error) {
	return s.transition(ctx, id, vacancy.StateCancelled, outbox.EventVacancyCancelled)
}

func (s *ControllerImpl) transition(ctx context.Context, id string, to vacancy.State, event outbox.EventType) (vacancy.VacancyResponse, error) {
	var out vacancy.Vacancy
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		v, err := s.VacancyRepository.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if err := v.Transition(to, nil); err != nil {
			return err
		}
		if err := s.VacancyRepository.UpdateState(txCtx, v); err != nil {
			return fmt.Errorf("failed to update vacancy state: %w", err)
		}
		out = v
		if event == "" {
			return nil
		}
		return s.Publisher.Publish(txCtx, event, v.ShopID, eventPayload(v))
	})
	if err != nil {
		return vacancy.VacancyResponse{}, err
	}
	return vacancy.NewVacancyResponse(out), nil
}

// List implements vacancy.VacancyService.
func (s *ControllerImpl) List(ctx context.Context, req vacancy.ListRequest) ([]vacancy.VacancyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	items, err := s.VacancyRepository.ListByPartition(ctx, req.ShopID, req.WorkTypeID, req.FromTime, req.ToTime)
	if err != nil {
		return nil, err
	}
	out := make([]vacancy.VacancyResponse, 0, len(items))
	for _, v := range items {
		out = append(out, vacancy.NewVacancyResponse(v))
	}
	return out, nil
}

type datePiece struct {
	date time.Time
	from time.Time
	to   time.Time
}

// splitByDate cuts [from, to) at the shop's local midnights.
func splitByDate(sh shop.Shop, from, to time.Time) []datePiece {
	var pieces []datePiece
	for cur := from; cur.Before(to); {
		date := sh.BusinessDate(cur)
		next := sh.LocalMidnight(date.AddDate(0, 0, 1))
		end := minTime(next, to)
		pieces = append(pieces, datePiece{date: date, from: cur, to: end})
		cur = end
	}
	return pieces
}

func eventPayload(v vacancy.Vacancy) map[string]any {
	return map[string]any{
		"vacancy_id":   v.ID,
		"work_type_id": v.WorkTypeID,
		"dt":           v.BusinessDate.Format("2006-01-02"),
		"dttm_start":   v.Start,
		"dttm_end":     v.End,
		"state":        v.State,
		"employee_id":  v.EmployeeID,
	}
}

func hasWorkType(wd workerday.WorkerDay, workTypeID string) bool {
	for _, d := range wd.Details {
		if d.WorkTypeID == workTypeID {
			return true
		}
	}
	return false
}

func countMissing(s coverage.Series) int {
	n := 0
	for _, m := range s.Missing {
		if m {
			n++
		}
	}
	return n
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start, end := maxTime(aStart, bStart), minTime(aEnd, bEnd)
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
