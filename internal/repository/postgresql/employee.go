package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `id, user_id, network_id, full_name, biometrics_partner_id, urv_pin, created_at, updated_at`

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	return r.getOne(ctx, employee.ErrEmployeeNotFound,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
}

// GetMostRecentForUser implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetMostRecentForUser(ctx context.Context, userID string) (employee.Employee, error) {
	query := `
		SELECT e.id, e.user_id, e.network_id, e.full_name, e.biometrics_partner_id, e.urv_pin, e.created_at, e.updated_at
		FROM employees e
		LEFT JOIN employments em ON em.employee_id = e.id
		WHERE e.user_id = $1
		GROUP BY e.id
		ORDER BY MAX(em.hire_date) DESC NULLS LAST, e.created_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, employee.ErrNoEmployeeForUser, query, userID)
}

// GetByBiometricsPartnerID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByBiometricsPartnerID(ctx context.Context, partnerID string) (employee.Employee, error) {
	return r.getOne(ctx, employee.ErrEmployeeNotFound,
		`SELECT `+employeeColumns+` FROM employees WHERE biometrics_partner_id = $1`, partnerID)
}

// GetByURVPin implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByURVPin(ctx context.Context, pin string) (employee.Employee, error) {
	return r.getOne(ctx, employee.ErrEmployeeNotFound,
		`SELECT `+employeeColumns+` FROM employees WHERE urv_pin = $1`, pin)
}

// SetBiometricsPartnerID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) SetBiometricsPartnerID(ctx context.Context, id string, partnerID *string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE employees
		SET biometrics_partner_id = $1, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := q.Exec(ctx, query, partnerID, id)
	if err != nil {
		return fmt.Errorf("failed to set biometrics partner for employee %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

func (r *employeeRepositoryImpl) getOne(ctx context.Context, notFound error, query string, args ...any) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	var e employee.Employee
	err := q.QueryRow(ctx, query, args...).Scan(
		&e.ID, &e.UserID, &e.NetworkID, &e.FullName, &e.BiometricsPartnerID, &e.URVPin, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, notFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return e, nil
}

type employmentRepositoryImpl struct {
	db *database.DB
}

func NewEmploymentRepository(db *database.DB) employee.EmploymentRepository {
	return &employmentRepositoryImpl{db: db}
}

const employmentColumns = `id, employee_id, shop_id, position_id, function_group, work_type_names, hire_date, fire_date`

// ListByEmployee implements employee.EmploymentRepository.
func (r *employmentRepositoryImpl) ListByEmployee(ctx context.Context, employeeID string) ([]employee.Employment, error) {
	query := `SELECT ` + employmentColumns + ` FROM employments WHERE employee_id = $1 ORDER BY hire_date`
	return r.list(ctx, query, employeeID)
}

// ListActiveByShop implements employee.EmploymentRepository.
func (r *employmentRepositoryImpl) ListActiveByShop(ctx context.Context, shopID string, date time.Time) ([]employee.Employment, error) {
	query := `
		SELECT ` + employmentColumns + `
		FROM employments
		WHERE shop_id = $1 AND hire_date <= $2 AND (fire_date IS NULL OR fire_date >= $2)
		ORDER BY employee_id
	`
	return r.list(ctx, query, shopID, date)
}

// GetConstraints implements employee.EmploymentRepository. Employees without a
// row get zero-valued constraints.
func (r *employmentRepositoryImpl) GetConstraints(ctx context.Context, employeeID string) (employee.Constraints, error) {
	q := GetQuerier(ctx, r.db)

	c := employee.Constraints{EmployeeID: employeeID}

	var restSec int64
	err := q.QueryRow(ctx,
		`SELECT min_rest_sec, weekly_max_hours FROM employee_constraints WHERE employee_id = $1`,
		employeeID,
	).Scan(&restSec, &c.WeeklyMaxHours)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return employee.Constraints{}, fmt.Errorf("failed to get constraints of employee %s: %w", employeeID, err)
	}
	c.MinRestBetweenShifts = seconds(restSec)

	rows, err := q.Query(ctx,
		`SELECT weekday, start_sec, end_sec FROM employee_blackouts WHERE employee_id = $1 ORDER BY weekday, start_sec`,
		employeeID,
	)
	if err != nil {
		return employee.Constraints{}, fmt.Errorf("failed to get blackouts of employee %s: %w", employeeID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var weekday, start, end int64
		if err := rows.Scan(&weekday, &start, &end); err != nil {
			return employee.Constraints{}, fmt.Errorf("failed to scan blackout: %w", err)
		}
		c.Blackouts = append(c.Blackouts, employee.Blackout{
			Weekday: time.Weekday(weekday),
			Start:   seconds(start),
			End:     seconds(end),
		})
	}
	if err := rows.Err(); err != nil {
		return employee.Constraints{}, err
	}
	return c, nil
}

func (r *employmentRepositoryImpl) list(ctx context.Context, query string, args ...any) ([]employee.Employment, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employments: %w", err)
	}
	defer rows.Close()

	var employments []employee.Employment
	for rows.Next() {
		var em employee.Employment
		err := rows.Scan(
			&em.ID, &em.EmployeeID, &em.ShopID, &em.PositionID, &em.FunctionGroup,
			&em.WorkTypeNames, &em.HireDate, &em.FireDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employment: %w", err)
		}
		employments = append(employments, em)
	}
	return employments, rows.Err()
}
