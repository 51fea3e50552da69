package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type parameterRepository struct {
	db *database.DB
}

func NewParameterRepository(db *database.DB) payroll.ParameterRepository {
	return &parameterRepository{db: db}
}

// ========== PARAMETERS ==========

const parameterColumns = `version, data, active, created_by, created_at, activated_at`

func scanParameters(row pgx.Row) (payroll.Parameters, error) {
	var (
		p    payroll.Parameters
		meta payroll.Parameters
		data []byte
	)
	if err := row.Scan(&meta.Version, &data, &meta.Active, &meta.CreatedBy, &meta.CreatedAt, &meta.ActivatedAt); err != nil {
		return payroll.Parameters{}, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return payroll.Parameters{}, fmt.Errorf("decode parameters v%d: %w", meta.Version, err)
	}
	p.Version, p.Active, p.CreatedBy, p.CreatedAt, p.ActivatedAt = meta.Version, meta.Active, meta.CreatedBy, meta.CreatedAt, meta.ActivatedAt
	return p, nil
}

func (r *parameterRepository) queryParameters(ctx context.Context, where string, args ...any) (payroll.Parameters, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`SELECT %s FROM payroll_parameters WHERE %s`, parameterColumns, where)
	return scanParameters(q.QueryRow(ctx, query, args...))
}

func (r *parameterRepository) GetActiveParameters(ctx context.Context) (payroll.Parameters, error) {
	p, err := r.queryParameters(ctx, "active")
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Parameters{}, payroll.ErrNoActiveParameters
		}
		return payroll.Parameters{}, fmt.Errorf("failed to get active parameters: %w", err)
	}
	return p, nil
}

func (r *parameterRepository) GetParameters(ctx context.Context, version int) (payroll.Parameters, error) {
	p, err := r.queryParameters(ctx, "version = $1", version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Parameters{}, payroll.ErrParametersNotFound
		}
		return payroll.Parameters{}, fmt.Errorf("failed to get parameters: %w", err)
	}
	return p, nil
}

func (r *parameterRepository) ListParameters(ctx context.Context) ([]payroll.Parameters, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM payroll_parameters ORDER BY version`, parameterColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to list parameters: %w", err)
	}
	defer rows.Close()

	list := make([]payroll.Parameters, 0)
	for rows.Next() {
		p, err := scanParameters(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *parameterRepository) CreateParameters(ctx context.Context, p payroll.Parameters) (payroll.Parameters, error) {
	q := GetQuerier(ctx, r.db)

	data, err := json.Marshal(p.Snapshot())
	if err != nil {
		return payroll.Parameters{}, fmt.Errorf("encode parameters: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO payroll_parameters (data, created_by)
		VALUES ($1, $2)
		RETURNING %s`, parameterColumns)

	created, err := scanParameters(q.QueryRow(ctx, query, data, p.CreatedBy))
	if err != nil {
		return payroll.Parameters{}, fmt.Errorf("failed to create parameters: %w", err)
	}
	return created, nil
}

// ActivateParameters deactivates the current version first so the partial
// unique index on active holds at every statement.
func (r *parameterRepository) ActivateParameters(ctx context.Context, version int, at time.Time) error {
	return activateVersion(ctx, GetQuerier(ctx, r.db), "payroll_parameters", version, at, payroll.ErrParametersNotFound)
}

// ========== TAX TABLES ==========

const taxTableColumns = `version, brackets, active, created_by, created_at, activated_at`

func scanTaxTable(row pgx.Row) (payroll.TaxTable, error) {
	var (
		t        payroll.TaxTable
		brackets []byte
	)
	if err := row.Scan(&t.Version, &brackets, &t.Active, &t.CreatedBy, &t.CreatedAt, &t.ActivatedAt); err != nil {
		return payroll.TaxTable{}, err
	}
	if err := json.Unmarshal(brackets, &t.Brackets); err != nil {
		return payroll.TaxTable{}, fmt.Errorf("decode tax table v%d: %w", t.Version, err)
	}
	return t, nil
}

func (r *parameterRepository) queryTaxTable(ctx context.Context, where string, args ...any) (payroll.TaxTable, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`SELECT %s FROM tax_tables WHERE %s`, taxTableColumns, where)
	return scanTaxTable(q.QueryRow(ctx, query, args...))
}

func (r *parameterRepository) GetActiveTaxTable(ctx context.Context) (payroll.TaxTable, error) {
	t, err := r.queryTaxTable(ctx, "active")
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.TaxTable{}, payroll.ErrNoActiveTaxTable
		}
		return payroll.TaxTable{}, fmt.Errorf("failed to get active tax table: %w", err)
	}
	return t, nil
}

func (r *parameterRepository) GetTaxTable(ctx context.Context, version int) (payroll.TaxTable, error) {
	t, err := r.queryTaxTable(ctx, "version = $1", version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.TaxTable{}, payroll.ErrTaxTableNotFound
		}
		return payroll.TaxTable{}, fmt.Errorf("failed to get tax table: %w", err)
	}
	return t, nil
}

func (r *parameterRepository) ListTaxTables(ctx context.Context) ([]payroll.TaxTable, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s FROM tax_tables ORDER BY version`, taxTableColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to list tax tables: %w", err)
	}
	defer rows.Close()

	list := make([]payroll.TaxTable, 0)
	for rows.Next() {
		t, err := scanTaxTable(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *parameterRepository) CreateTaxTable(ctx context.Context, t payroll.TaxTable) (payroll.TaxTable, error) {
	q := GetQuerier(ctx, r.db)

	brackets, err := json.Marshal(t.Brackets)
	if err != nil {
		return payroll.TaxTable{}, fmt.Errorf("encode brackets: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO tax_tables (brackets, created_by)
		VALUES ($1, $2)
		RETURNING %s`, taxTableColumns)

	created, err := scanTaxTable(q.QueryRow(ctx, query, brackets, t.CreatedBy))
	if err != nil {
		return payroll.TaxTable{}, fmt.Errorf("failed to create tax table: %w", err)
	}
	return created, nil
}

func (r *parameterRepository) ActivateTaxTable(ctx context.Context, version int, at time.Time) error {
	return activateVersion(ctx, GetQuerier(ctx, r.db), "tax_tables", version, at, payroll.ErrTaxTableNotFound)
}

// activateVersion makes version the only active row of table. Callers run it
// inside a transaction.
func activateVersion(ctx context.Context, q database.Querier, table string, version int, at time.Time, notFound error) error {
	var exists bool
	if err := q.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE version = $1)`, table), version).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check %s version: %w", table, err)
	}
	if !exists {
		return notFound
	}

	if _, err := q.Exec(ctx, fmt.Sprintf(`UPDATE %s SET active = FALSE WHERE active AND version <> $1`, table), version); err != nil {
		return fmt.Errorf("failed to deactivate %s: %w", table, err)
	}
	if _, err := q.Exec(ctx, fmt.Sprintf(`UPDATE %s SET active = TRUE, activated_at = $2 WHERE version = $1 AND NOT active`, table), version, at); err != nil {
		return fmt.Errorf("failed to activate %s version %d: %w", table, version, err)
	}
	return nil
}
