package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/vacancy"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type workerDayRepositoryImpl struct {
	db *database.DB
}

func NewWorkerDayRepository(db *database.DB) workerday.WorkerDayRepository {
	return &workerDayRepositoryImpl{db: db}
}

const workerDayColumns = `
	wd.id, wd.employee_id, wd.shop_id, wd.business_date, wd.kind, wd.start_at, wd.end_at,
	wd.is_plan, wd.is_fact, wd.is_approved, wd.is_vacancy, wd.vacancy_state, wd.plan_id,
	wd.suspicious_gap, wd.break_seconds, wd.open_break_start, wd.day_hours, wd.night_hours,
	wd.revision, wd.created_at, wd.updated_at`

// GetByID implements workerday.WorkerDayRepository.
func (r *workerDayRepositoryImpl) GetByID(ctx context.Context, id string) (workerday.WorkerDay, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + workerDayColumns + ` FROM worker_days wd WHERE wd.id = $1`

	wd, err := scanWorkerDay(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return workerday.WorkerDay{}, workerday.ErrWorkerDayNotFound
		}
		return workerday.WorkerDay{}, fmt.Errorf("failed to get worker day with id %s: %w", id, err)
	}
	if err := loadDetails(ctx, q, []*workerday.WorkerDay{&wd}); err != nil {
		return workerday.WorkerDay{}, err
	}
	return wd, nil
}

// ListApprovedPlans implements workerday.WorkerDayRepository.
func (r *workerDayRepositoryImpl) ListApprovedPlans(ctx context.Context, employeeID string, from, to time.Time) ([]workerday.WorkerDay, error) {
	query := `
		SELECT ` + workerDayColumns + `
		FROM worker_days wd
		WHERE wd.employee_id = $1 AND wd.is_plan AND wd.is_approved AND NOT wd.is_vacancy
			AND wd.business_date BETWEEN $2 AND $3
		ORDER BY wd.start_at NULLS LAST, wd.id
	`
	return r.list(ctx, query, employeeID, from, to)
}

// HasApprovedPlan implements workerday.WorkerDayRepository.
func (r *workerDayRepositoryImpl) HasApprovedPlan(ctx context.Context, employeeID, shopID string, date time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM worker_days
			WHERE employee_id = $1 AND shop_id = $2 AND business_date = $3
				AND is_plan AND is_approved AND NOT is_vacancy
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, employeeID, shopID, date).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check plan of employee %s: %w", employeeID, err)
	}
	return exists, nil
}

// GetFactForUpdate implements workerday.WorkerDayRepository.
func (r *workerDayRepositoryImpl) GetFactForUpdate(ctx context.Context, employeeID string, date time.Time) (workerday.WorkerDay, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + workerDayColumns + `
		FROM worker_days wd
		WHERE wd.employee_id = $1 AND wd.business_date = $2 AND wd.is_fact AND wd.is_approved
		FOR UPDATE
	`

	wd, err := scanWorkerDay(q.QueryRow(ctx, query, employeeID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return workerday.WorkerDay{}, workerday.ErrWorkerDayNotFound
		}
		return workerday.WorkerDay{}, fmt.Errorf("failed to lock fact of employee %s: %w", employeeID, err)
	}
	if err := loadDetails(ctx, q, []*workerday.WorkerDay{&wd}); err != nil {
		return workerday.WorkerDay{}, err
	}
	return wd, nil
}

// CreateFact implements workerday.WorkerDayRepository. A concurrent insert of
// the same (employee, date) fact yields database.ErrConflict.
func (r *workerDayRepositoryImpl) CreateFact(ctx context.Context, wd workerday.WorkerDay) (workerday.WorkerDay, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO worker_days (
			employee_id, shop_id, business_date, kind, start_at, end_at,
			is_plan, is_fact, is_approved, is_vacancy, plan_id,
			suspicious_gap, break_seconds, open_break_start, day_hours, night_hours, revision
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			FALSE, TRUE, $7, FALSE, $8,
			$9, $10, $11, $12, $13, $14
		)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		wd.EmployeeID, wd.ShopID, wd.BusinessDate, wd.Kind, wd.Start, wd.End,
		wd.IsApproved, wd.PlanID,
		wd.SuspiciousGap, wd.BreakSeconds, wd.OpenBreakStart, wd.DayHours, wd.NightHours, wd.Revision,
	).Scan(&wd.ID, &wd.CreatedAt, &wd.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return workerday.WorkerDay{}, database.ErrConflict
		}
		return workerday.WorkerDay{}, fmt.Errorf("failed to create fact worker day: %w", err)
	}
	wd.IsFact, wd.IsPlan, wd.IsVacancy = true, false, false

	if err := insertDetails(ctx, q, wd.ID, wd.Details); err != nil {
		return workerday.WorkerDay{}, err
	}
	return wd, nil
}

// UpdateFact implements workerday.WorkerDayRepository.
func (r *workerDayRepositoryImpl) UpdateFact(ctx context.Context, wd workerday.WorkerDay) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE worker_days
		SET shop_id = $1, kind = $2, start_at = $3, end_at = $4, is_approved = $5, plan_id = $6,
			suspicious_gap = $7, break_seconds = $8, open_break_start = $9,
			day_hours = $10, night_hours = $11, revision = $12, updated_at = NOW()
		WHERE id = $13 AND is_fact
	`

	tag, err := q.Exec(ctx, query,
		wd.ShopID, wd.Kind, wd.Start, wd.End, wd.IsApproved, wd.PlanID,
		wd.SuspiciousGap, wd.BreakSeconds, wd.OpenBreakStart,
		wd.DayHours, wd.NightHours, wd.Revision, wd.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update fact worker day %s: %w", wd.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return workerday.ErrWorkerDayNotFound
	}

	if _, err := q.Exec(ctx, `DELETE FROM worker_day_details WHERE worker_day_id = $1`, wd.ID); err != nil {
		return fmt.Errorf("failed to clear details of worker day %s: %w", wd.ID, err)
	}
	return insertDetails(ctx, q, wd.ID, wd.Details)
}

// ListPlansOverlapping implements workerday.WorkerDayRepository.
func (r *workerDayRepositoryImpl) ListPlansOverlapping(ctx context.Context, shopID string, from, to time.Time) ([]workerday.WorkerDay, error) {
	query := `
		SELECT ` + workerDayColumns + `
		FROM worker_days wd
		WHERE wd.shop_id = $1 AND wd.is_plan AND wd.is_approved
			AND wd.start_at < $3 AND wd.end_at > $2
		ORDER BY wd.start_at, wd.id
	`
	return r.list(ctx, query, shopID, from, to)
}

// ListFactsOverlapping implements workerday.WorkerDayRepository.
func (r *workerDayRepositoryImpl) ListFactsOverlapping(ctx context.Context, shopID string, from, to time.Time) ([]workerday.WorkerDay, error) {
	query := `
		SELECT ` + workerDayColumns + `
		FROM worker_days wd
		WHERE wd.shop_id = $1 AND wd.is_fact AND wd.is_approved
			AND wd.start_at < $3 AND wd.end_at > $2
		ORDER BY wd.start_at, wd.id
	`
	return r.list(ctx, query, shopID, from, to)
}

// ListEmployeePlans implements workerday.WorkerDayRepository.
func (r *workerDayRepositoryImpl) ListEmployeePlans(ctx context.Context, employeeID string, from, to time.Time) ([]workerday.WorkerDay, error) {
	query := `
		SELECT ` + workerDayColumns + `
		FROM worker_days wd
		WHERE wd.employee_id = $1 AND wd.is_plan AND wd.is_approved
			AND (NOT wd.is_vacancy OR wd.vacancy_state <> $4)
			AND wd.start_at < $3 AND wd.end_at > $2
		ORDER BY wd.start_at, wd.id
	`
	return r.list(ctx, query, employeeID, from, to, string(vacancy.StateCancelled))
}

// DeletePlan implements workerday.WorkerDayRepository.
func (r *workerDayRepositoryImpl) DeletePlan(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`DELETE FROM worker_days WHERE id = $1 AND is_plan AND is_approved AND NOT is_vacancy`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete plan %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return workerday.ErrWorkerDayNotFound
	}
	return nil
}

// ListStaleOpenFacts implements workerday.WorkerDayRepository.
func (r *workerDayRepositoryImpl) ListStaleOpenFacts(ctx context.Context, cutoff time.Time, limit int) ([]workerday.OpenFact, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + workerDayColumns + `, p.end_at
		FROM worker_days wd
		JOIN worker_days p ON p.id = wd.plan_id
		WHERE wd.is_fact AND wd.start_at IS NOT NULL AND wd.end_at IS NULL
			AND NOT wd.suspicious_gap AND p.end_at < $1
		ORDER BY p.end_at
		LIMIT NULLIF($2::int, 0)
	`

	rows, err := q.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale open facts: %w", err)
	}
	defer rows.Close()

	var facts []workerday.OpenFact
	for rows.Next() {
		var f workerday.OpenFact
		if err := rows.Scan(append(workerDayFields(&f.WorkerDay), &f.PlanEnd)...); err != nil {
			return nil, fmt.Errorf("failed to scan open fact: %w", err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// MarkSuspicious implements workerday.WorkerDayRepository.
func (r *workerDayRepositoryImpl) MarkSuspicious(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE worker_days SET suspicious_gap = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark worker day %s suspicious: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return workerday.ErrWorkerDayNotFound
	}
	return nil
}

// CreateOverride implements workerday.WorkerDayRepository. A revision that
// already exists yields database.ErrConflict.
func (r *workerDayRepositoryImpl) CreateOverride(ctx context.Context, o workerday.Override) (workerday.Override, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO worker_day_overrides (worker_day_id, revision, start_at, end_at, author_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := q.QueryRow(ctx, query, o.WorkerDayID, o.Revision, o.Start, o.End, o.AuthorID, o.Reason).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return workerday.Override{}, database.ErrConflict
		}
		return workerday.Override{}, fmt.Errorf("failed to create override of worker day %s: %w", o.WorkerDayID, err)
	}
	return o, nil
}

// GetLatestOverride implements workerday.WorkerDayRepository.
func (r *workerDayRepositoryImpl) GetLatestOverride(ctx context.Context, workerDayID string) (*workerday.Override, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, worker_day_id, revision, start_at, end_at, author_id, reason, created_at
		FROM worker_day_overrides
		WHERE worker_day_id = $1
		ORDER BY revision DESC
		LIMIT 1
	`

	var o workerday.Override
	err := q.QueryRow(ctx, query, workerDayID).Scan(
		&o.ID, &o.WorkerDayID, &o.Revision, &o.Start, &o.End, &o.AuthorID, &o.Reason, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get override of worker day %s: %w", workerDayID, err)
	}
	return &o, nil
}

func (r *workerDayRepositoryImpl) list(ctx context.Context, query string, args ...any) ([]workerday.WorkerDay, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list worker days: %w", err)
	}
	defer rows.Close()

	var days []workerday.WorkerDay
	for rows.Next() {
		wd, err := scanWorkerDay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker day: %w", err)
		}
		days = append(days, wd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ptrs := make([]*workerday.WorkerDay, len(days))
	for i := range days {
		ptrs[i] = &days[i]
	}
	if err := loadDetails(ctx, q, ptrs); err != nil {
		return nil, err
	}
	return days, nil
}

func workerDayFields(wd *workerday.WorkerDay) []any {
	return []any{
		&wd.ID, &wd.EmployeeID, &wd.ShopID, &wd.BusinessDate, &wd.Kind, &wd.Start, &wd.End,
		&wd.IsPlan, &wd.IsFact, &wd.IsApproved, &wd.IsVacancy, &wd.VacancyState, &wd.PlanID,
		&wd.SuspiciousGap, &wd.BreakSeconds, &wd.OpenBreakStart, &wd.DayHours, &wd.NightHours,
		&wd.Revision, &wd.CreatedAt, &wd.UpdatedAt,
	}
}

func scanWorkerDay(row pgx.Row) (workerday.WorkerDay, error) {
	var wd workerday.WorkerDay
	err := row.Scan(workerDayFields(&wd)...)
	return wd, err
}

// loadDetails fills Details of every day with one query.
func loadDetails(ctx context.Context, q database.Querier, days []*workerday.WorkerDay) error {
	if len(days) == 0 {
		return nil
	}
	byID := make(map[string]*workerday.WorkerDay, len(days))
	ids := make([]string, 0, len(days))
	for _, wd := range days {
		byID[wd.ID] = wd
		ids = append(ids, wd.ID)
	}

	query := `
		SELECT worker_day_id, work_type_id, start_at, end_at
		FROM worker_day_details
		WHERE worker_day_id = ANY($1)
		ORDER BY worker_day_id, start_at
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to load worker day details: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			dayID string
			d     workerday.Detail
		)
		if err := rows.Scan(&dayID, &d.WorkTypeID, &d.Start, &d.End); err != nil {
			return fmt.Errorf("failed to scan worker day detail: %w", err)
		}
		if wd, ok := byID[dayID]; ok {
			wd.Details = append(wd.Details, d)
		}
	}
	return rows.Err()
}

func insertDetails(ctx context.Context, q database.Querier, workerDayID string, details []workerday.Detail) error {
	if len(details) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, d := range details {
		batch.Queue(
			`INSERT INTO worker_day_details (worker_day_id, work_type_id, start_at, end_at) VALUES ($1, $2, $3, $4)`,
			workerDayID, d.WorkTypeID, d.Start, d.End,
		)
	}
	return sendBatch(ctx, q, batch, "worker day details")
}

// sendBatch runs batch on the transaction when there is one.
func sendBatch(ctx context.Context, q database.Querier, batch *pgx.Batch, what string) error {
	sender, ok := q.(interface {
		SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	})
	if !ok {
		return fmt.Errorf("querier cannot send batches")
	}
	br := sender.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to insert %s: %w", what, err)
		}
	}
	return br.Close()
}
