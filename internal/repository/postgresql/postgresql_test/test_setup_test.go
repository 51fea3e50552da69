package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
)

const migrationsDir = "../../../../migrations"

// TestDatabaseSetup holds the connection used by the repository tests.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies the migrations.
// The test is skipped when no database is configured.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewPostgreSQLDB(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := db.Migrate(ctx, migrationsDir); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	setup := &TestDatabaseSetup{DB: db}
	if err := setup.TruncateAllTables(ctx); err != nil {
		db.Close()
		t.Fatalf("failed to truncate tables: %v", err)
	}
	t.Cleanup(setup.Close)
	return setup
}

// TruncateAllTables removes all rows from the payroll tables.
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := t.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"payroll_runs",
		"payroll_settlement_deductions",
		"payroll_settlements",
		"credit_installments",
		"credits",
		"salary_advances",
		"attendance_vectors",
		"tax_tables",
		"payroll_parameters",
		"employees",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

func (t *TestDatabaseSetup) Close() {
	t.DB.Close()
}

func (t *TestDatabaseSetup) InsertEmployee(ctx context.Context, id, base string, hire time.Time) error {
	_, err := t.DB.Exec(ctx, `
		INSERT INTO employees (id, employee_code, full_name, position, base_salary, hire_date, employment_status)
		VALUES ($1, $1, 'Employee ' || $1, 'staff', $2::numeric, $3, 'active')`,
		id, base, hire,
	)
	return err
}

func (t *TestDatabaseSetup) InsertVector(ctx context.Context, employeeID string, periodStart time.Time, days string, locked bool) error {
	_, err := t.DB.Exec(ctx, `
		INSERT INTO attendance_vectors (employee_id, period, days, locked)
		VALUES ($1, $2, $3, $4)`,
		employeeID, periodStart, days, locked,
	)
	return err
}
