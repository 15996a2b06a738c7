package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/tick"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type tickRepositoryImpl struct {
	db *database.DB
}

func NewTickRepository(db *database.DB) tick.TickRepository {
	return &tickRepositoryImpl{db: db}
}

const tickColumns = `
	id, employee_id, user_id, shop_id, dttm, business_date, kind, source, principal_kind,
	verified, biometrics_check, liveness, score, photo_key, latitude, longitude,
	lateness_seconds, classification, plan_worker_day_id, fact_worker_day_id, external_id, received_at`

// Insert implements tick.TickRepository. The unique key on
// (employee_id, shop_id, dttm, kind) absorbs duplicates.
func (r *tickRepositoryImpl) Insert(ctx context.Context, t tick.Tick) (tick.Tick, bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO ticks (
			employee_id, user_id, shop_id, dttm, business_date, kind, source, principal_kind,
			verified, biometrics_check, liveness, score, photo_key, latitude, longitude,
			lateness_seconds, classification, plan_worker_day_id, fact_worker_day_id, external_id, received_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21
		)
		ON CONFLICT (employee_id, shop_id, dttm, kind) DO NOTHING
		RETURNING ` + tickColumns

	receivedAt := t.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	stored, err := scanTick(q.QueryRow(ctx, query,
		t.EmployeeID, t.UserID, t.ShopID, t.Dttm, t.BusinessDate, string(t.Kind), string(t.Source), string(t.PrincipalKind),
		t.Verified, t.BiometricsCheck, t.Liveness, t.Score, t.PhotoKey, t.Latitude, t.Longitude,
		t.LatenessSeconds, string(t.Classification), t.PlanWorkerDayID, t.FactWorkerDayID, t.ExternalID, receivedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return tick.Tick{}, false, fmt.Errorf("failed to insert tick: %w", err)
	}

	existing, err := scanTick(q.QueryRow(ctx,
		`SELECT `+tickColumns+` FROM ticks WHERE employee_id = $1 AND shop_id = $2 AND dttm = $3 AND kind = $4`,
		t.EmployeeID, t.ShopID, t.Dttm, string(t.Kind),
	))
	if err != nil {
		return tick.Tick{}, false, fmt.Errorf("failed to load duplicate tick: %w", err)
	}
	return existing, false, nil
}

// AttachFact implements tick.TickRepository.
func (r *tickRepositoryImpl) AttachFact(ctx context.Context, tickID, factID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE ticks SET fact_worker_day_id = $1 WHERE id = $2`, factID, tickID)
	if err != nil {
		return fmt.Errorf("failed to attach tick %s to fact %s: %w", tickID, factID, err)
	}
	if tag.RowsAffected() == 0 {
		return tick.ErrTickNotFound
	}
	return nil
}

// GetByID implements tick.TickRepository.
func (r *tickRepositoryImpl) GetByID(ctx context.Context, id string) (tick.Tick, error) {
	q := GetQuerier(ctx, r.db)

	t, err := scanTick(q.QueryRow(ctx, `SELECT `+tickColumns+` FROM ticks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tick.Tick{}, tick.ErrTickNotFound
		}
		return tick.Tick{}, fmt.Errorf("failed to get tick with id %s: %w", id, err)
	}
	return t, nil
}

// ListByEmployee implements tick.TickRepository.
func (r *tickRepositoryImpl) ListByEmployee(ctx context.Context, employeeID, shopID string, from, to time.Time) ([]tick.Tick, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + tickColumns + `
		FROM ticks
		WHERE employee_id = $1 AND shop_id = $2 AND dttm >= $3 AND dttm < $4
		ORDER BY dttm, received_at
	`

	rows, err := q.Query(ctx, query, employeeID, shopID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticks of employee %s: %w", employeeID, err)
	}
	defer rows.Close()

	var ticks []tick.Tick
	for rows.Next() {
		t, err := scanTick(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tick: %w", err)
		}
		ticks = append(ticks, t)
	}
	return ticks, rows.Err()
}

func scanTick(row pgx.Row) (tick.Tick, error) {
	var (
		t                                    tick.Tick
		kind, source, principalKind, verdict string
	)
	err := row.Scan(
		&t.ID, &t.EmployeeID, &t.UserID, &t.ShopID, &t.Dttm, &t.BusinessDate, &kind, &source, &principalKind,
		&t.Verified, &t.BiometricsCheck, &t.Liveness, &t.Score, &t.PhotoKey, &t.Latitude, &t.Longitude,
		&t.LatenessSeconds, &verdict, &t.PlanWorkerDayID, &t.FactWorkerDayID, &t.ExternalID, &t.ReceivedAt,
	)
	if err != nil {
		return tick.Tick{}, err
	}
	t.Kind = tick.Kind(kind)
	t.Source = tick.Source(source)
	t.PrincipalKind = principal.Kind(principalKind)
	t.Classification = tick.Classification(verdict)
	return t, nil
}

type cursorRepositoryImpl struct {
	db *database.DB
}

func NewCursorRepository(db *database.DB) tick.CursorRepository {
	return &cursorRepositoryImpl{db: db}
}

// GetCursor implements tick.CursorRepository.
func (r *cursorRepositoryImpl) GetCursor(ctx context.Context, source string) (time.Time, bool, error) {
	q := GetQuerier(ctx, r.db)

	var at time.Time
	err := q.QueryRow(ctx, `SELECT position FROM tick_cursors WHERE source = $1`, source).Scan(&at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get cursor of %s: %w", source, err)
	}
	return at, true, nil
}

// SaveCursor implements tick.CursorRepository.
func (r *cursorRepositoryImpl) SaveCursor(ctx context.Context, source string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO tick_cursors (source, position, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (source) DO UPDATE SET position = EXCLUDED.position, updated_at = NOW()
	`

	if _, err := q.Exec(ctx, query, source, at); err != nil {
		return fmt.Errorf("failed to save cursor of %s: %w", source, err)
	}
	return nil
}
