package urv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/tick"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/zkteco"
)

// CursorSource names the URV feed in the cursor table.
const CursorSource = "urv"

const (
	DefaultPageSize = 500
	DefaultOverlap  = 10 * time.Minute
	DefaultLookback = 24 * time.Hour
	maxPages        = 1000
)

// EventSource lists attendance transactions of the URV server.
type EventSource interface {
	ListEvents(ctx context.Context, page, size int, from, to time.Time) ([]zkteco.Event, bool, error)
}

type Config struct {
	PageSize int
	// Overlap re-reads the tail of the previous window to pick up events the
	// server committed late. Duplicates are absorbed by tick intake.
	Overlap time.Duration
	// Lookback is the first window when no cursor is saved.
	Lookback time.Duration
	// Location is the zone the URV server reports wall times in.
	Location *time.Location
}

// PollResult counts what one poll did with the fetched events.
type PollResult struct {
	Fetched    int
	Accepted   int
	Duplicates int
	Skipped    int
	Rejected   int
}

type PollerImpl struct {
	source EventSource
	tick.CursorRepository
	shop.ShopRepository
	employee.EmployeeRepository
	ticks tick.TickService
	cfg   Config
	now   func() time.Time
}

func NewPoller(
	source EventSource,
	cursorRepo tick.CursorRepository,
	shopRepo shop.ShopRepository,
	employeeRepo employee.EmployeeRepository,
	ticks tick.TickService,
	cfg Config,
) *PollerImpl {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &PollerImpl{
		source:             source,
		CursorRepository:   cursorRepo,
		ShopRepository:     shopRepo,
		EmployeeRepository: employeeRepo,
		ticks:              ticks,
		cfg:                cfg,
		now:                time.Now,
	}
}

// Poll reads every event since the saved cursor and feeds it through tick
// intake. The cursor only moves when the whole window was processed, so a
// failed poll is retried in full next time.
func (p *PollerImpl) Poll(ctx context.Context) (PollResult, error) {
	var res PollResult

	to := p.now().Truncate(time.Second)
	from := to.Add(-p.cfg.Lookback)
	cursor, ok, err := p.CursorRepository.GetCursor(ctx, CursorSource)
	if err != nil {
		return res, fmt.Errorf("failed to load urv cursor: %w", err)
	}
	if ok {
		from = cursor.Add(-p.cfg.Overlap)
	}
	if !to.After(from) {
		return res, nil
	}

	shops := make(map[string]*shop.Shop)
	employees := make(map[string]*employee.Employee)

	for page := 1; page <= maxPages; page++ {
		events, more, err := p.source.ListEvents(ctx, page, p.cfg.PageSize, from.In(p.cfg.Location), to.In(p.cfg.Location))
		if err != nil {
			return res, fmt.Errorf("failed to list urv events page %d: %w", page, err)
		}
		res.Fetched += len(events)

		for _, ev := range events {
			if err := p.ingest(ctx, ev, shops, employees, &res); err != nil {
				return res, err
			}
		}
		if !more {
			break
		}
	}

	if err := p.CursorRepository.SaveCursor(ctx, CursorSource, to); err != nil {
		return res, fmt.Errorf("failed to save urv cursor: %w", err)
	}
	if res.Fetched > 0 {
		slog.Info("URV poll finished",
			"from", from,
			"to", to,
			"fetched", res.Fetched,
			"accepted", res.Accepted,
			"duplicates", res.Duplicates,
			"skipped", res.Skipped,
			"rejected", res.Rejected,
		)
	}
	return res, nil
}

// Run adapts Poll to the cron job signature.
func (p *PollerImpl) Run(ctx context.Context) error {
	_, err := p.Poll(ctx)
	return err
}

func (p *PollerImpl) ingest(ctx context.Context, ev zkteco.Event, shops map[string]*shop.Shop, employees map[string]*employee.Employee, res *PollResult) error {
	sh, err := p.lookupShop(ctx, ev.AccZone, shops)
	if err != nil {
		return err
	}
	emp, err := p.lookupEmployee(ctx, ev.Pin, employees)
	if err != nil {
		return err
	}
	if sh == nil || emp == nil {
		slog.Warn("URV event skipped", "event_id", ev.ID, "pin", ev.Pin, "zone", ev.AccZone, "shop_known", sh != nil, "employee_known", emp != nil)
		res.Skipped++
		return nil
	}

	at, err := ev.Time(p.cfg.Location)
	if err != nil {
		slog.Warn("URV event has malformed time", "event_id", ev.ID, "event_time", ev.EventTime)
		res.Skipped++
		return nil
	}

	dttm := at.UTC().Format(time.RFC3339)
	eventID := ev.ID
	empID := emp.ID
	req := tick.CreateTickRequest{
		EmployeeID: &empID,
		ShopCode:   sh.Code,
		Kind:       string(tick.KindUntyped),
		Dttm:       &dttm,
		Source:     string(tick.SourceTerminal),
		ExternalID: &eventID,
	}

	resp, err := p.ticks.Create(ctx, principal.System(sh.NetworkID), req)
	if err != nil {
		if rej, ok := tick.AsRejection(err); ok && !rej.Retryable() {
			slog.Warn("URV event rejected", "event_id", ev.ID, "employee_id", emp.ID, "shop_id", sh.ID, "code", rej.Code)
			res.Rejected++
			return nil
		}
		return fmt.Errorf("failed to ingest urv event %s: %w", ev.ID, err)
	}
	if resp.Duplicate {
		res.Duplicates++
	} else {
		res.Accepted++
	}
	return nil
}

// lookupShop returns nil for unknown zones. Results, including misses, are
// memoized for the poll.
func (p *PollerImpl) lookupShop(ctx context.Context, zone string, cache map[string]*shop.Shop) (*shop.Shop, error) {
	if sh, ok := cache[zone]; ok {
		return sh, nil
	}
	sh, err := p.ShopRepository.GetByURVZone(ctx, zone)
	if errors.Is(err, shop.ErrShopNotFound) {
		cache[zone] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve urv zone %q: %w", zone, err)
	}
	cache[zone] = &sh
	return &sh, nil
}

func (p *PollerImpl) lookupEmployee(ctx context.Context, pin string, cache map[string]*employee.Employee) (*employee.Employee, error) {
	if emp, ok := cache[pin]; ok {
		return emp, nil
	}
	emp, err := p.EmployeeRepository.GetByURVPin(ctx, pin)
	if errors.Is(err, employee.ErrEmployeeNotFound) {
		cache[pin] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve urv pin %q: %w", pin, err)
	}
	cache[pin] = &emp
	return &emp, nil
}
