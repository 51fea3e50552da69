package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type contractRepositoryImpl struct {
	db *database.DB
}

func NewContractRepository(db *database.DB) employee.ContractRepository {
	return &contractRepositoryImpl{db: db}
}

const contractColumns = `
	id, employee_code, full_name, position, base_salary, hire_date, contract_end_date,
	is_driver, is_night_security, has_household, employment_status`

func scanContract(row pgx.Row) (employee.Contract, error) {
	var c employee.Contract
	err := row.Scan(
		&c.EmployeeID, &c.EmployeeCode, &c.FullName, &c.Position, &c.BaseSalary,
		&c.HireDate, &c.ContractEndDate,
		&c.Driver, &c.NightSecurity, &c.Household, &c.EmploymentStatus,
	)
	return c, err
}

// ListContracts implements employee.ContractRepository.
func (r *contractRepositoryImpl) ListContracts(ctx context.Context, filter employee.Filter) ([]employee.Contract, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if len(filter.EmployeeIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", argIdx))
		args = append(args, filter.EmployeeIDs)
		argIdx++
	}
	if filter.Position != "" {
		conditions = append(conditions, fmt.Sprintf("position = $%d", argIdx))
		args = append(args, filter.Position)
		argIdx++
	}
	if !filter.IncludeInactive {
		conditions = append(conditions, fmt.Sprintf("employment_status = $%d", argIdx))
		args = append(args, employee.EmploymentStatusActive)
	}

	query := fmt.Sprintf(`SELECT %s FROM employees WHERE %s ORDER BY id`, contractColumns, strings.Join(conditions, " AND "))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []employee.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return contracts, nil
}

// GetContract implements employee.ContractRepository.
func (r *contractRepositoryImpl) GetContract(ctx context.Context, employeeID string) (employee.Contract, error) {
	q := GetQuerier(ctx, r.db)

	query := fmt.Sprintf(`SELECT %s FROM employees WHERE id = $1`, contractColumns)

	c, err := scanContract(q.QueryRow(ctx, query, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Contract{}, employee.ErrEmployeeNotFound
		}
		return employee.Contract{}, fmt.Errorf("failed to get contract: %w", err)
	}
	return c, nil
}
