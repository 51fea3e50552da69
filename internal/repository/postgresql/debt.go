package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/debt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type debtRepository struct {
	db *database.DB
}

func NewDebtRepository(db *database.DB) debt.DebtRepository {
	return &debtRepository{db: db}
}

const (
	advanceColumns     = `id, employee_id, amount, paid_amount, due_period, status, deferred_to, note, created_at, updated_at`
	creditColumns      = `id, employee_id, principal, installment_amount, paid_total, deferred_total, remaining_balance, remaining_installments, first_due, status, created_at, updated_at`
	installmentColumns = `id, credit_id, employee_id, sequence, amount, paid_amount, due_period, status, deferred_to, updated_at`
)

func scanAdvance(row pgx.Row) (debt.Advance, error) {
	var (
		a          debt.Advance
		due        time.Time
		deferredTo *time.Time
	)
	err := row.Scan(&a.ID, &a.EmployeeID, &a.Amount, &a.PaidAmount, &due, &a.Status, &deferredTo, &a.Note, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return debt.Advance{}, err
	}
	a.Due = period.FromTime(due)
	a.DeferredTo = nullablePeriod(deferredTo)
	return a, nil
}

func scanCredit(row pgx.Row) (debt.Credit, error) {
	var (
		c        debt.Credit
		firstDue time.Time
	)
	err := row.Scan(
		&c.ID, &c.EmployeeID, &c.Principal, &c.InstallmentAmount, &c.PaidTotal, &c.DeferredTotal,
		&c.RemainingBalance, &c.RemainingInstallments, &firstDue, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return debt.Credit{}, err
	}
	c.FirstDue = period.FromTime(firstDue)
	return c, nil
}

func scanInstallment(row pgx.Row) (debt.Installment, error) {
	var (
		i          debt.Installment
		due        time.Time
		deferredTo *time.Time
	)
	err := row.Scan(&i.ID, &i.CreditID, &i.EmployeeID, &i.Sequence, &i.Amount, &i.PaidAmount, &due, &i.Status, &deferredTo, &i.UpdatedAt)
	if err != nil {
		return debt.Installment{}, err
	}
	i.Due = period.FromTime(due)
	i.DeferredTo = nullablePeriod(deferredTo)
	return i, nil
}

// ListDue implements debt.DebtRepository.
func (r *debtRepository) ListDue(ctx context.Context, p period.Period, employeeIDs []string) (map[string][]debt.Obligation, error) {
	q := GetQuerier(ctx, r.db)
	out := make(map[string][]debt.Obligation)

	advanceQuery := fmt.Sprintf(`
		SELECT %s FROM salary_advances
		WHERE due_period = $1 AND employee_id = ANY($2) AND status IN ('pending', 'deferred')
		ORDER BY id`, advanceColumns)

	rows, err := q.Query(ctx, advanceQuery, periodDate(p), employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list due advances: %w", err)
	}
	for rows.Next() {
		a, err := scanAdvance(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out[a.EmployeeID] = append(out[a.EmployeeID], a.Obligation())
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	installmentQuery := `
		SELECT i.id, i.credit_id, i.employee_id, i.sequence, i.amount, i.paid_amount,
			   i.due_period, i.status, i.deferred_to, i.updated_at
		FROM credit_installments i
		JOIN credits c ON c.id = i.credit_id
		WHERE i.due_period = $1 AND i.employee_id = ANY($2)
		  AND i.status IN ('pending', 'deferred') AND c.status = 'pending'
		ORDER BY i.id`

	rows, err = q.Query(ctx, installmentQuery, periodDate(p), employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list due installments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		out[i.EmployeeID] = append(out[i.EmployeeID], i.Obligation())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// GetAdvance locks the row when called inside a transaction.
func (r *debtRepository) GetAdvance(ctx context.Context, id string) (debt.Advance, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`SELECT %s FROM salary_advances WHERE id = $1%s`, advanceColumns, lockClause(ctx))

	a, err := scanAdvance(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return debt.Advance{}, debt.ErrAdvanceNotFound
		}
		return debt.Advance{}, fmt.Errorf("failed to get advance: %w", err)
	}
	return a, nil
}

func (r *debtRepository) GetCredit(ctx context.Context, id string) (debt.Credit, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`SELECT %s FROM credits WHERE id = $1%s`, creditColumns, lockClause(ctx))

	c, err := scanCredit(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return debt.Credit{}, debt.ErrCreditNotFound
		}
		return debt.Credit{}, fmt.Errorf("failed to get credit: %w", err)
	}
	return c, nil
}

func (r *debtRepository) GetInstallment(ctx context.Context, id string) (debt.Installment, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`SELECT %s FROM credit_installments WHERE id = $1%s`, installmentColumns, lockClause(ctx))

	i, err := scanInstallment(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return debt.Installment{}, debt.ErrInstallmentNotFound
		}
		return debt.Installment{}, fmt.Errorf("failed to get installment: %w", err)
	}
	return i, nil
}

func (r *debtRepository) ListInstallments(ctx context.Context, creditID string) ([]debt.Installment, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`SELECT %s FROM credit_installments WHERE credit_id = $1 ORDER BY sequence`, installmentColumns)

	rows, err := q.Query(ctx, query, creditID)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	defer rows.Close()

	var installments []debt.Installment
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		installments = append(installments, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return installments, nil
}

func (r *debtRepository) CreateAdvance(ctx context.Context, a debt.Advance) (debt.Advance, error) {
	q := GetQuerier(ctx, r.db)

	query := fmt.Sprintf(`
		INSERT INTO salary_advances (id, employee_id, amount, paid_amount, due_period, status, deferred_to, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, advanceColumns)

	created, err := scanAdvance(q.QueryRow(ctx, query,
		a.ID, a.EmployeeID, a.Amount, a.PaidAmount, periodDate(a.Due), a.Status, nullablePeriodDate(a.DeferredTo), a.Note,
	))
	if err != nil {
		return debt.Advance{}, fmt.Errorf("failed to create advance: %w", err)
	}
	return created, nil
}

// CreateCredit inserts the credit and its schedule. Callers run it inside a
// transaction.
func (r *debtRepository) CreateCredit(ctx context.Context, c debt.Credit, installments []debt.Installment) (debt.Credit, error) {
	q := GetQuerier(ctx, r.db)

	query := fmt.Sprintf(`
		INSERT INTO credits (id, employee_id, principal, installment_amount, paid_total, deferred_total,
			remaining_balance, remaining_installments, first_due, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s`, creditColumns)

	created, err := scanCredit(q.QueryRow(ctx, query,
		c.ID, c.EmployeeID, c.Principal, c.InstallmentAmount, c.PaidTotal, c.DeferredTotal,
		c.RemainingBalance, c.RemainingInstallments, periodDate(c.FirstDue), c.Status,
	))
	if err != nil {
		return debt.Credit{}, fmt.Errorf("failed to create credit: %w", err)
	}

	batch := &pgx.Batch{}
	for _, i := range installments {
		batch.Queue(`
			INSERT INTO credit_installments (id, credit_id, employee_id, sequence, amount, paid_amount, due_period, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			i.ID, created.ID, i.EmployeeID, i.Sequence, i.Amount, i.PaidAmount, periodDate(i.Due), i.Status,
		)
	}
	if err := sendBatch(ctx, q, batch); err != nil {
		return debt.Credit{}, fmt.Errorf("failed to create installments: %w", err)
	}

	return created, nil
}

func (r *debtRepository) UpdateAdvance(ctx context.Context, a debt.Advance) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE salary_advances
		SET paid_amount = $2, due_period = $3, status = $4, deferred_to = $5, updated_at = NOW()
		WHERE id = $1`,
		a.ID, a.PaidAmount, periodDate(a.Due), a.Status, nullablePeriodDate(a.DeferredTo),
	)
	if err != nil {
		return fmt.Errorf("failed to update advance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return debt.ErrAdvanceNotFound
	}
	return nil
}

func (r *debtRepository) UpdateCredit(ctx context.Context, c debt.Credit) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE credits
		SET paid_total = $2, deferred_total = $3, remaining_balance = $4,
			remaining_installments = $5, status = $6, updated_at = NOW()
		WHERE id = $1`,
		c.ID, c.PaidTotal, c.DeferredTotal, c.RemainingBalance, c.RemainingInstallments, c.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to update credit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return debt.ErrCreditNotFound
	}
	return nil
}

func (r *debtRepository) UpdateInstallment(ctx context.Context, i debt.Installment) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE credit_installments
		SET paid_amount = $2, due_period = $3, status = $4, deferred_to = $5, updated_at = NOW()
		WHERE id = $1`,
		i.ID, i.PaidAmount, periodDate(i.Due), i.Status, nullablePeriodDate(i.DeferredTo),
	)
	if err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return debt.ErrInstallmentNotFound
	}
	return nil
}
