package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type shopRepositoryImpl struct {
	db *database.DB
}

func NewShopRepository(db *database.DB) shop.ShopRepository {
	return &shopRepositoryImpl{db: db}
}

const shopColumns = `
	id, network_id, code, name, timezone_offset_minutes, latitude, longitude,
	forecast_step_minutes, min_shift_minutes, urv_zone, created_at, updated_at`

// GetByID implements shop.ShopRepository.
func (r *shopRepositoryImpl) GetByID(ctx context.Context, id string) (shop.Shop, error) {
	return r.getOne(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = $1`, id)
}

// GetByCode implements shop.ShopRepository.
func (r *shopRepositoryImpl) GetByCode(ctx context.Context, networkID, code string) (shop.Shop, error) {
	return r.getOne(ctx, `SELECT `+shopColumns+` FROM shops WHERE network_id = $1 AND code = $2`, networkID, code)
}

// GetByURVZone implements shop.ShopRepository.
func (r *shopRepositoryImpl) GetByURVZone(ctx context.Context, zone string) (shop.Shop, error) {
	return r.getOne(ctx, `SELECT `+shopColumns+` FROM shops WHERE urv_zone = $1`, zone)
}

// ListByNetwork implements shop.ShopRepository.
func (r *shopRepositoryImpl) ListByNetwork(ctx context.Context, networkID string) ([]shop.Shop, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + shopColumns + ` FROM shops WHERE network_id = $1 ORDER BY code`

	rows, err := q.Query(ctx, query, networkID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops of network %s: %w", networkID, err)
	}
	defer rows.Close()

	var shops []shop.Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shop: %w", err)
		}
		shops = append(shops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, len(shops))
	for i, s := range shops {
		ids[i] = s.ID
	}
	hours, err := r.openingHours(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range shops {
		shops[i].OpeningHours = hours[shops[i].ID]
	}
	return shops, nil
}

func (r *shopRepositoryImpl) getOne(ctx context.Context, query string, args ...any) (shop.Shop, error) {
	q := GetQuerier(ctx, r.db)

	s, err := scanShop(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shop.Shop{}, shop.ErrShopNotFound
		}
		return shop.Shop{}, fmt.Errorf("failed to get shop: %w", err)
	}

	hours, err := r.openingHours(ctx, []string{s.ID})
	if err != nil {
		return shop.Shop{}, err
	}
	s.OpeningHours = hours[s.ID]
	return s, nil
}

func (r *shopRepositoryImpl) openingHours(ctx context.Context, shopIDs []string) (map[string][]shop.OpeningHours, error) {
	out := make(map[string][]shop.OpeningHours, len(shopIDs))
	if len(shopIDs) == 0 {
		return out, nil
	}
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT shop_id, weekday, open_sec, close_sec
		FROM shop_opening_hours
		WHERE shop_id = ANY($1)
		ORDER BY shop_id, weekday
	`

	rows, err := q.Query(ctx, query, shopIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get opening hours: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			shopID          string
			weekday         int
			openSec, closeS int64
		)
		if err := rows.Scan(&shopID, &weekday, &openSec, &closeS); err != nil {
			return nil, fmt.Errorf("failed to scan opening hours: %w", err)
		}
		out[shopID] = append(out[shopID], shop.OpeningHours{
			Weekday: time.Weekday(weekday),
			Open:    seconds(openSec),
			Close:   seconds(closeS),
		})
	}
	return out, rows.Err()
}

func scanShop(row pgx.Row) (shop.Shop, error) {
	var s shop.Shop
	err := row.Scan(
		&s.ID, &s.NetworkID, &s.Code, &s.Name, &s.TimezoneOffsetMinutes, &s.Latitude, &s.Longitude,
		&s.ForecastStepMinutes, &s.MinShiftMinutes, &s.URVZone, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

type workTypeRepositoryImpl struct {
	db *database.DB
}

func NewWorkTypeRepository(db *database.DB) shop.WorkTypeRepository {
	return &workTypeRepositoryImpl{db: db}
}

// GetByID implements shop.WorkTypeRepository.
func (r *workTypeRepositoryImpl) GetByID(ctx context.Context, id string) (shop.WorkType, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT id, shop_id, name, speed_coefficient FROM work_types WHERE id = $1`

	var wt shop.WorkType
	err := q.QueryRow(ctx, query, id).Scan(&wt.ID, &wt.ShopID, &wt.Name, &wt.SpeedCoefficient)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shop.WorkType{}, shop.ErrWorkTypeNotFound
		}
		return shop.WorkType{}, fmt.Errorf("failed to get work type with id %s: %w", id, err)
	}
	return wt, nil
}

// ListByShop implements shop.WorkTypeRepository.
func (r *workTypeRepositoryImpl) ListByShop(ctx context.Context, shopID string) ([]shop.WorkType, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, shop_id, name, speed_coefficient
		FROM work_types
		WHERE shop_id = $1
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work types of shop %s: %w", shopID, err)
	}
	defer rows.Close()

	var types []shop.WorkType
	for rows.Next() {
		var wt shop.WorkType
		if err := rows.Scan(&wt.ID, &wt.ShopID, &wt.Name, &wt.SpeedCoefficient); err != nil {
			return nil, fmt.Errorf("failed to scan work type: %w", err)
		}
		types = append(types, wt)
	}
	return types, rows.Err()
}

// FindByName implements shop.WorkTypeRepository.
func (r *workTypeRepositoryImpl) FindByName(ctx context.Context, shopID, name string) (shop.WorkType, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT id, shop_id, name, speed_coefficient FROM work_types WHERE shop_id = $1 AND name = $2`

	var wt shop.WorkType
	err := q.QueryRow(ctx, query, shopID, name).Scan(&wt.ID, &wt.ShopID, &wt.Name, &wt.SpeedCoefficient)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shop.WorkType{}, shop.ErrWorkTypeNotFound
		}
		return shop.WorkType{}, fmt.Errorf("failed to find work type %q in shop %s: %w", name, shopID, err)
	}
	return wt, nil
}

type terminalRepositoryImpl struct {
	db *database.DB
}

func NewTerminalRepository(db *database.DB) shop.TerminalRepository {
	return &terminalRepositoryImpl{db: db}
}

// GetByID implements shop.TerminalRepository.
func (r *terminalRepositoryImpl) GetByID(ctx context.Context, id string) (shop.Terminal, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT id, shop_id, kind, secret_hash, allowed_ip, active FROM terminals WHERE id = $1`

	var (
		t    shop.Terminal
		kind string
	)
	err := q.QueryRow(ctx, query, id).Scan(&t.ID, &t.ShopID, &kind, &t.SecretHash, &t.AllowedIP, &t.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shop.Terminal{}, shop.ErrTerminalNotFound
		}
		return shop.Terminal{}, fmt.Errorf("failed to get terminal with id %s: %w", id, err)
	}
	t.Kind = shop.TerminalKind(kind)
	return t, nil
}
