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

// Vacancies are plan worker days flagged is_vacancy with exactly one detail
// carrying the work type.
type vacancyRepositoryImpl struct {
	db *database.DB
}

func NewVacancyRepository(db *database.DB) vacancy.VacancyRepository {
	return &vacancyRepositoryImpl{db: db}
}

const vacancyColumns = `
	wd.id, wd.shop_id, d.work_type_id, wd.business_date, wd.start_at, wd.end_at,
	wd.vacancy_state, wd.employee_id, wd.created_at, wd.updated_at, wd.proposed_employee_id`

// GetForUpdate implements vacancy.VacancyRepository.
func (r *vacancyRepositoryImpl) GetForUpdate(ctx context.Context, id string) (vacancy.Vacancy, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + vacancyColumns + `
		FROM worker_days wd
		JOIN worker_day_details d ON d.worker_day_id = wd.id
		WHERE wd.id = $1 AND wd.is_vacancy
		FOR UPDATE OF wd
	`

	v, err := scanVacancy(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return vacancy.Vacancy{}, vacancy.ErrVacancyNotFound
		}
		return vacancy.Vacancy{}, fmt.Errorf("failed to lock vacancy %s: %w", id, err)
	}
	return v, nil
}

// ListByPartition implements vacancy.VacancyRepository.
func (r *vacancyRepositoryImpl) ListByPartition(ctx context.Context, shopID, workTypeID string, from, to time.Time) ([]vacancy.Vacancy, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + vacancyColumns + `
		FROM worker_days wd
		JOIN worker_day_details d ON d.worker_day_id = wd.id
		WHERE wd.is_vacancy AND wd.shop_id = $1 AND d.work_type_id = $2
			AND wd.start_at < $4 AND wd.end_at > $3
		ORDER BY wd.start_at, wd.id
	`

	rows, err := q.Query(ctx, query, shopID, workTypeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list vacancies of shop %s: %w", shopID, err)
	}
	defer rows.Close()

	var vacancies []vacancy.Vacancy
	for rows.Next() {
		v, err := scanVacancy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vacancy: %w", err)
		}
		vacancies = append(vacancies, v)
	}
	return vacancies, rows.Err()
}

// HasOpen implements vacancy.VacancyRepository.
func (r *vacancyRepositoryImpl) HasOpen(ctx context.Context, shopID string, date time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM worker_days
			WHERE is_vacancy AND shop_id = $1 AND business_date = $2 AND vacancy_state = $3
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, shopID, date, string(vacancy.StateOpen)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check open vacancies of shop %s: %w", shopID, err)
	}
	return exists, nil
}

// Create implements vacancy.VacancyRepository.
func (r *vacancyRepositoryImpl) Create(ctx context.Context, v vacancy.Vacancy) (vacancy.Vacancy, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO worker_days (
			employee_id, shop_id, business_date, kind, start_at, end_at,
			is_plan, is_fact, is_approved, is_vacancy, vacancy_state
		) VALUES ($1, $2, $3, $4, $5, $6, TRUE, FALSE, TRUE, TRUE, $7)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		v.EmployeeID, v.ShopID, v.BusinessDate, workerday.KindWorkday, v.Start, v.End, string(v.State),
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return vacancy.Vacancy{}, fmt.Errorf("failed to create vacancy: %w", err)
	}

	detail := []workerday.Detail{{WorkTypeID: v.WorkTypeID, Start: v.Start, End: v.End}}
	if err := insertDetails(ctx, q, v.ID, detail); err != nil {
		return vacancy.Vacancy{}, err
	}
	return v, nil
}

// UpdateInterval implements vacancy.VacancyRepository.
func (r *vacancyRepositoryImpl) UpdateInterval(ctx context.Context, id string, start, end time.Time) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`UPDATE worker_days SET start_at = $1, end_at = $2, updated_at = NOW() WHERE id = $3 AND is_vacancy`,
		start, end, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update interval of vacancy %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return vacancy.ErrVacancyNotFound
	}

	_, err = q.Exec(ctx,
		`UPDATE worker_day_details SET start_at = $1, end_at = $2 WHERE worker_day_id = $3`,
		start, end, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update detail of vacancy %s: %w", id, err)
	}
	return nil
}

// UpdateState implements vacancy.VacancyRepository.
func (r *vacancyRepositoryImpl) UpdateState(ctx context.Context, v vacancy.Vacancy) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE worker_days
		SET vacancy_state = $1, employee_id = $2, updated_at = NOW()
		WHERE id = $3 AND is_vacancy
	`

	tag, err := q.Exec(ctx, query, string(v.State), v.EmployeeID, v.ID)
	if err != nil {
		return fmt.Errorf("failed to update state of vacancy %s: %w", v.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return vacancy.ErrVacancyNotFound
	}
	return nil
}

// SetProposal implements vacancy.VacancyRepository.
func (r *vacancyRepositoryImpl) SetProposal(ctx context.Context, id, employeeID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`UPDATE worker_days SET proposed_employee_id = $1, updated_at = NOW() WHERE id = $2 AND is_vacancy`,
		employeeID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to record proposal of vacancy %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return vacancy.ErrVacancyNotFound
	}
	return nil
}

func scanVacancy(row pgx.Row) (vacancy.Vacancy, error) {
	var (
		v     vacancy.Vacancy
		state string
	)
	err := row.Scan(
		&v.ID, &v.ShopID, &v.WorkTypeID, &v.BusinessDate, &v.Start, &v.End,
		&state, &v.EmployeeID, &v.CreatedAt, &v.UpdatedAt, &v.ProposedEmployeeID,
	)
	v.State = vacancy.State(state)
	return v, err
}

type partitionLockerImpl struct {
	db *database.DB
}

// NewPartitionLocker returns a locker backed by transaction-scoped advisory
// locks. It must be called inside a transaction.
func NewPartitionLocker(db *database.DB) vacancy.PartitionLocker {
	return &partitionLockerImpl{db: db}
}

// LockPartition implements vacancy.PartitionLocker.
func (l *partitionLockerImpl) LockPartition(ctx context.Context, shopID, workTypeID string, date time.Time) error {
	q := GetQuerier(ctx, l.db)

	key := fmt.Sprintf("vacancy|%s|%s|%s", shopID, workTypeID, date.Format("2006-01-02"))
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("failed to lock partition %s: %w", key, err)
	}
	return nil
}
