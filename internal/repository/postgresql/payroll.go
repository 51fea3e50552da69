package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type settlementRepository struct {
	db *database.DB
}

func NewSettlementRepository(db *database.DB) payroll.SettlementRepository {
	return &settlementRepository{db: db}
}

// The full settlement is kept in the detail column. Lifecycle columns are the
// source of truth for status and audit fields and override the document.
const settlementColumns = `id, status, detail, validated_at, validated_by, paid_at, paid_by, created_at, updated_at`

func scanSettlement(row pgx.Row) (payroll.Settlement, error) {
	var (
		s      payroll.Settlement
		id     string
		status payroll.Status
		detail []byte
		audit  payroll.Settlement
	)
	err := row.Scan(&id, &status, &detail, &audit.ValidatedAt, &audit.ValidatedBy, &audit.PaidAt, &audit.PaidBy, &audit.CreatedAt, &audit.UpdatedAt)
	if err != nil {
		return payroll.Settlement{}, err
	}
	if err := json.Unmarshal(detail, &s); err != nil {
		return payroll.Settlement{}, fmt.Errorf("decode settlement %s: %w", id, err)
	}

	s.ID = id
	s.Status = status
	s.ValidatedAt, s.ValidatedBy = audit.ValidatedAt, audit.ValidatedBy
	s.PaidAt, s.PaidBy = audit.PaidAt, audit.PaidBy
	s.CreatedAt, s.UpdatedAt = audit.CreatedAt, audit.UpdatedAt
	return s, nil
}

func (r *settlementRepository) get(ctx context.Context, employeeID string, p period.Period, lock string) (payroll.Settlement, error) {
	q := GetQuerier(ctx, r.db)
	query := fmt.Sprintf(`SELECT %s FROM payroll_settlements WHERE employee_id = $1 AND period = $2%s`, settlementColumns, lock)

	s, err := scanSettlement(q.QueryRow(ctx, query, employeeID, periodDate(p)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Settlement{}, payroll.ErrSettlementNotFound
		}
		return payroll.Settlement{}, fmt.Errorf("failed to get settlement: %w", err)
	}
	return s, nil
}

func (r *settlementRepository) Get(ctx context.Context, employeeID string, p period.Period) (payroll.Settlement, error) {
	return r.get(ctx, employeeID, p, "")
}

func (r *settlementRepository) GetForUpdate(ctx context.Context, employeeID string, p period.Period) (payroll.Settlement, error) {
	return r.get(ctx, employeeID, p, lockClause(ctx))
}

func (r *settlementRepository) ListByPeriod(ctx context.Context, p period.Period, status *payroll.Status) ([]payroll.Settlement, error) {
	q := GetQuerier(ctx, r.db)

	query := fmt.Sprintf(`SELECT %s FROM payroll_settlements WHERE period = $1`, settlementColumns)
	args := []any{periodDate(p)}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY employee_id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	settlements := make([]payroll.Settlement, 0)
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return settlements, nil
}

func (r *settlementRepository) StatusesByPeriod(ctx context.Context, p period.Period) (map[string]payroll.Status, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT employee_id, status FROM payroll_settlements WHERE period = $1`, periodDate(p))
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[string]payroll.Status)
	for rows.Next() {
		var (
			employeeID string
			status     payroll.Status
		)
		if err := rows.Scan(&employeeID, &status); err != nil {
			return nil, err
		}
		statuses[employeeID] = status
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return statuses, nil
}

// UpsertDraft implements payroll.SettlementRepository. The conflict update
// only fires while the stored row is a draft, so validated and paid rows are
// never overwritten.
func (r *settlementRepository) UpsertDraft(ctx context.Context, s payroll.Settlement) (payroll.Settlement, error) {
	q := GetQuerier(ctx, r.db)

	s.Status = payroll.StatusDraft
	s.ValidatedAt, s.ValidatedBy, s.PaidAt, s.PaidBy = nil, nil, nil, nil
	detail, err := json.Marshal(s)
	if err != nil {
		return payroll.Settlement{}, fmt.Errorf("encode settlement: %w", err)
	}

	query := `
		INSERT INTO payroll_settlements (
			id, employee_id, period, status, gross_pay, social_security, tax, debt_deduction, net_pay,
			parameters_version, tax_table_version, detail
		) VALUES ($1, $2, $3, 'draft', $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (employee_id, period) DO UPDATE SET
			gross_pay = EXCLUDED.gross_pay,
			social_security = EXCLUDED.social_security,
			tax = EXCLUDED.tax,
			debt_deduction = EXCLUDED.debt_deduction,
			net_pay = EXCLUDED.net_pay,
			parameters_version = EXCLUDED.parameters_version,
			tax_table_version = EXCLUDED.tax_table_version,
			detail = EXCLUDED.detail,
			updated_at = NOW()
		WHERE payroll_settlements.status = 'draft'
		RETURNING id, created_at, updated_at
	`

	err = q.QueryRow(ctx, query,
		uuid.New().String(), s.EmployeeID, periodDate(s.Period),
		s.GrossPay, s.SocialSecurity, s.Tax, s.DebtDeduction, s.NetPay,
		s.ParametersVersion, s.TaxTableVersion, detail,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Settlement{}, fmt.Errorf("employee %s period %s: %w", s.EmployeeID, s.Period, payroll.ErrSettlementLocked)
		}
		return payroll.Settlement{}, fmt.Errorf("failed to upsert settlement: %w", err)
	}

	if _, err := q.Exec(ctx, `DELETE FROM payroll_settlement_deductions WHERE settlement_id = $1`, s.ID); err != nil {
		return payroll.Settlement{}, fmt.Errorf("failed to clear deduction lines: %w", err)
	}
	batch := &pgx.Batch{}
	for n, line := range s.Deductions {
		var creditID *string
		if line.CreditID != "" {
			creditID = &line.CreditID
		}
		batch.Queue(`
			INSERT INTO payroll_settlement_deductions (
				settlement_id, line_no, kind, obligation_id, credit_id, due, deducted, deferred, outcome, deferred_to
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			s.ID, n+1, line.Kind, line.ObligationID, creditID, line.Due, line.Deducted, line.Deferred,
			line.Outcome, nullablePeriodDate(line.DeferredTo),
		)
	}
	if err := sendBatch(ctx, q, batch); err != nil {
		return payroll.Settlement{}, fmt.Errorf("failed to insert deduction lines: %w", err)
	}

	return s, nil
}

func (r *settlementRepository) UpdateStatus(ctx context.Context, s payroll.Settlement, from payroll.Status) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE payroll_settlements
		SET status = $3, validated_at = $4, validated_by = $5, paid_at = $6, paid_by = $7, updated_at = NOW()
		WHERE employee_id = $1 AND period = $2 AND status = $8`,
		s.EmployeeID, periodDate(s.Period), s.Status, s.ValidatedAt, s.ValidatedBy, s.PaidAt, s.PaidBy, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update settlement status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("employee %s period %s: %w", s.EmployeeID, s.Period, payroll.ErrSettlementStale)
	}
	return nil
}

func (r *settlementRepository) DeleteDraft(ctx context.Context, employeeID string, p period.Period) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `DELETE FROM payroll_settlements WHERE employee_id = $1 AND period = $2 AND status = 'draft'`, employeeID, periodDate(p))
	if err != nil {
		return fmt.Errorf("failed to delete draft settlement: %w", err)
	}
	return nil
}

// ========== RUNS ==========

func (r *settlementRepository) SaveRun(ctx context.Context, run payroll.Run) error {
	q := GetQuerier(ctx, r.db)

	excluded, err := json.Marshal(run.ExcludedByReason)
	if err != nil {
		return err
	}
	totals, err := json.Marshal(run.Totals)
	if err != nil {
		return err
	}
	exclusions := run.Exclusions
	if exclusions == nil {
		exclusions = []payroll.SkippedEmployee{}
	}
	exclusionsJSON, err := json.Marshal(exclusions)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO payroll_runs (
			id, period, kind, parameters_version, tax_table_version, succeeded, failed, excluded,
			excluded_by_reason, cancelled, totals, triggered_by, started_at, finished_at,
			filtered, exclusions
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		run.ID, periodDate(run.Period), run.Kind, run.ParametersVersion, run.TaxTableVersion,
		run.Succeeded, run.Failed, run.Excluded, excluded, run.Cancelled, totals,
		run.TriggeredBy, run.StartedAt, run.FinishedAt, run.Filtered, exclusionsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save payroll run: %w", err)
	}
	return nil
}

func scanRun(row pgx.Row) (payroll.Run, error) {
	var (
		run        payroll.Run
		runDate    time.Time
		excluded   []byte
		totals     []byte
		exclusions []byte
	)
	err := row.Scan(
		&run.ID, &runDate, &run.Kind, &run.ParametersVersion, &run.TaxTableVersion,
		&run.Succeeded, &run.Failed, &run.Excluded, &excluded, &run.Cancelled, &totals,
		&run.TriggeredBy, &run.StartedAt, &run.FinishedAt, &run.Filtered, &exclusions,
	)
	if err != nil {
		return payroll.Run{}, err
	}

	run.Period = period.FromTime(runDate)
	if err := json.Unmarshal(excluded, &run.ExcludedByReason); err != nil {
		return payroll.Run{}, fmt.Errorf("decode excluded_by_reason: %w", err)
	}
	if err := json.Unmarshal(totals, &run.Totals); err != nil {
		return payroll.Run{}, fmt.Errorf("decode run totals: %w", err)
	}
	if err := json.Unmarshal(exclusions, &run.Exclusions); err != nil {
		return payroll.Run{}, fmt.Errorf("decode run exclusions: %w", err)
	}
	return run, nil
}

func (r *settlementRepository) ListRuns(ctx context.Context, p period.Period) ([]payroll.Run, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, period, kind, parameters_version, tax_table_version, succeeded, failed, excluded,
			   excluded_by_reason, cancelled, totals, triggered_by, started_at, finished_at,
			   filtered, exclusions
		FROM payroll_runs
		WHERE period = $1
		ORDER BY finished_at, started_at`, periodDate(p),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	defer rows.Close()

	var runs []payroll.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}
