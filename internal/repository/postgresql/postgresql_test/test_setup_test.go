package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
)

// TestDatabaseSetup holds a connection to a migrated test database.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and skips the test when it is unset.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(dsn, database.PoolConfig{MaxConns: 4, MinConns: 1})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	setup := &TestDatabaseSetup{DB: db}
	if err := setup.TruncateAllTables(context.Background()); err != nil {
		db.Close()
		t.Fatalf("failed to truncate tables: %v", err)
	}
	t.Cleanup(setup.Close)
	return setup
}

// TruncateAllTables removes every row written by the tests.
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := t.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"outbox_events",
		"tick_cursors",
		"demand_buckets",
		"ticks",
		"worker_day_overrides",
		"worker_day_details",
		"worker_days",
		"employee_blackouts",
		"employee_constraints",
		"employments",
		"employees",
		"terminals",
		"work_types",
		"shop_opening_hours",
		"shops",
		"networks",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// Seed inserts one network, shop, work type and employee.
func (t *TestDatabaseSetup) Seed(ctx context.Context) error {
	statements := []string{
		`INSERT INTO networks (id, name) VALUES ('net-1', 'Network')`,
		`INSERT INTO shops (id, network_id, code, name, timezone_offset_minutes, urv_zone)
			VALUES ('shop-1', 'net-1', 'S1', 'Shop One', 180, 'zone-1')`,
		`INSERT INTO shop_opening_hours (shop_id, weekday, open_sec, close_sec) VALUES ('shop-1', 5, 28800, 79200)`,
		`INSERT INTO work_types (id, shop_id, name, speed_coefficient) VALUES ('wt-1', 'shop-1', 'Cashier', 1.5)`,
		`INSERT INTO employees (id, user_id, network_id, full_name, urv_pin) VALUES ('emp-1', 'user-1', 'net-1', 'Employee One', '1001')`,
		`INSERT INTO employments (id, employee_id, shop_id, work_type_names, hire_date)
			VALUES ('em-1', 'emp-1', 'shop-1', '{Cashier}', '2024-01-01')`,
		`INSERT INTO employee_constraints (employee_id, min_rest_sec, weekly_max_hours) VALUES ('emp-1', 39600, 40)`,
		`INSERT INTO employee_blackouts (employee_id, weekday, start_sec, end_sec) VALUES ('emp-1', 5, 46800, 50400)`,
	}
	for _, stmt := range statements {
		if _, err := t.DB.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
	}
	return nil
}

func (t *TestDatabaseSetup) Close() {
	t.DB.Close()
}
