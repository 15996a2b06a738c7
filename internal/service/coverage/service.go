package coverage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/coverage"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/demand"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
)

type CoverageServiceImpl struct {
	tx database.Transactor
	network.NetworkRepository
	shop.ShopRepository
	shop.WorkTypeRepository
	demand.DemandRepository
	workerday.WorkerDayRepository
	employee.EmploymentRepository
	now func() time.Time
}

func NewCoverageService(
	tx database.Transactor,
	networkRepo network.NetworkRepository,
	shopRepo shop.ShopRepository,
	workTypeRepo shop.WorkTypeRepository,
	demandRepo demand.DemandRepository,
	workerDayRepo workerday.WorkerDayRepository,
	employmentRepo employee.EmploymentRepository,
) *CoverageServiceImpl {
	return &CoverageServiceImpl{
		tx:                   tx,
		NetworkRepository:    networkRepo,
		ShopRepository:       shopRepo,
		WorkTypeRepository:   workTypeRepo,
		DemandRepository:     demandRepo,
		WorkerDayRepository:  workerDayRepo,
		EmploymentRepository: employmentRepo,
		now:                  time.Now,
	}
}

// Build implements coverage.CoverageService.
func (s *CoverageServiceImpl) Build(ctx context.Context, q coverage.Query) (coverage.Series, error) {
	sh, err := s.ShopRepository.GetByID(ctx, q.ShopID)
	if err != nil {
		return coverage.Series{}, err
	}
	net, err := s.NetworkRepository.GetByID(ctx, sh.NetworkID)
	if err != nil {
		return coverage.Series{}, fmt.Errorf("failed to load network of shop %s: %w", sh.ID, err)
	}
	return s.BuildForShop(ctx, sh, net, q)
}

// BuildForShop is Build for callers that already loaded the shop and its network.
func (s *CoverageServiceImpl) BuildForShop(ctx context.Context, sh shop.Shop, net network.Network, q coverage.Query) (coverage.Series, error) {
	if len(q.WorkTypeIDs) == 0 {
		return coverage.Series{}, coverage.ErrNoWorkTypes
	}
	step := sh.ForecastStep()
	grid := Grid(q.From, q.To, step, sh.Location())
	if len(grid) == 0 {
		return coverage.Series{}, coverage.ErrEmptyWindow
	}
	end := grid[len(grid)-1].Add(step)

	workTypes, err := s.WorkTypeRepository.ListByShop(ctx, sh.ID)
	if err != nil {
		return coverage.Series{}, fmt.Errorf("failed to list work types: %w", err)
	}
	speeds := make(map[string]float64, len(workTypes))
	for _, wt := range workTypes {
		speeds[wt.ID] = wt.SpeedCoefficient
	}
	selected := make(map[string]bool, len(q.WorkTypeIDs))
	for _, id := range q.WorkTypeIDs {
		if _, ok := speeds[id]; !ok {
			return coverage.Series{}, fmt.Errorf("%w: %s in shop %s", shop.ErrWorkTypeNotFound, id, sh.ID)
		}
		selected[id] = true
	}

	buckets, err := s.DemandRepository.ListBuckets(ctx, sh.ID, q.WorkTypeIDs, grid[0], end)
	if err != nil {
		return coverage.Series{}, fmt.Errorf("failed to list demand buckets: %w", err)
	}
	d, missing := DemandSeries(grid, buckets, DemandParams{
		Step:                   step,
		AbsenteeismCoefficient: net.AbsenteeismCoefficient(),
		SpeedCoefficients:      speeds,
	})

	var days []workerday.WorkerDay
	if q.UseFact {
		days, err = s.WorkerDayRepository.ListFactsOverlapping(ctx, sh.ID, grid[0], end)
	} else {
		days, err = s.WorkerDayRepository.ListPlansOverlapping(ctx, sh.ID, grid[0], end)
	}
	if err != nil {
		return coverage.Series{}, fmt.Errorf("failed to list worker days: %w", err)
	}

	active, err := s.activeEmployees(ctx, sh.ID, days)
	if err != nil {
		return coverage.Series{}, err
	}

	cov := CoverageSeries(grid, days, CoverageParams{
		Step:             step,
		WorkTypeIDs:      selected,
		IncludeVacancies: q.IncludeVacancies,
		Active:           active,
	})

	if n := countTrue(missing); n > 0 {
		slog.Debug("Coverage window has buckets without forecast", "shop_id", sh.ID, "missing", n, "buckets", len(grid))
	}

	return coverage.Series{
		ShopID:   sh.ID,
		Step:     step,
		Buckets:  grid,
		Demand:   d,
		Coverage: cov,
		Missing:  missing,
	}, nil
}

func (s *CoverageServiceImpl) activeEmployees(ctx context.Context, shopID string, days []workerday.WorkerDay) (map[time.Time]map[string]bool, error) {
	active := make(map[time.Time]map[string]bool)
	for _, wd := range days {
		if wd.IsVacancy {
			continue
		}
		if _, done := active[wd.BusinessDate]; done {
			continue
		}
		emps, err := s.EmploymentRepository.ListActiveByShop(ctx, shopID, wd.BusinessDate)
		if err != nil {
			return nil, fmt.Errorf("failed to list active employments: %w", err)
		}
		set := make(map[string]bool, len(emps))
		for _, e := range emps {
			set[e.EmployeeID] = true
		}
		active[wd.BusinessDate] = set
	}
	return active, nil
}

// WriteForecast implements coverage.CoverageService.
func (s *CoverageServiceImpl) WriteForecast(ctx context.Context, f demand.Forecast) error {
	sh, err := s.ShopRepository.GetByID(ctx, f.ShopID)
	if err != nil {
		return err
	}
	if _, err := s.WorkTypeRepository.GetByID(ctx, f.WorkTypeID); err != nil {
		return err
	}
	if !f.To.After(f.From) {
		return coverage.ErrEmptyWindow
	}

	today := sh.BusinessDate(s.now())
	if sh.BusinessDate(f.From).Before(today) {
		return fmt.Errorf("%w: horizon starts %s, today is %s", demand.ErrPastBucket,
			sh.BusinessDate(f.From).Format("2006-01-02"), today.Format("2006-01-02"))
	}

	step := sh.ForecastStep()
	for _, b := range f.Buckets {
		if b.Start.Before(f.From) || !b.Start.Before(f.To) {
			return fmt.Errorf("%w: %s", demand.ErrOutOfHorizon, b.Start.Format(time.RFC3339))
		}
		midnight := sh.LocalMidnight(sh.BusinessDate(b.Start))
		if b.Start.Sub(midnight)%step != 0 {
			return fmt.Errorf("%w: %s", demand.ErrMisaligned, b.Start.Format(time.RFC3339))
		}
	}

	return s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		return s.DemandRepository.ReplaceRange(txCtx, f)
	})
}

func countTrue(v []bool) int {
	n := 0
	for _, b := range v {
		if b {
			n++
		}
	}
	return n
}
