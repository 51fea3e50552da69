package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/debt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PayrollServiceImpl struct {
	txManager      database.TxManager
	contractRepo   employee.ContractRepository
	attendanceRepo attendance.AttendanceRepository
	debtRepo       debt.DebtRepository
	parameterRepo  payroll.ParameterRepository
	settlementRepo payroll.SettlementRepository
	workers        int
	logger         *slog.Logger
	now            func() time.Time
}

func NewPayrollService(
	txManager database.TxManager,
	contractRepo employee.ContractRepository,
	attendanceRepo attendance.AttendanceRepository,
	debtRepo debt.DebtRepository,
	parameterRepo payroll.ParameterRepository,
	settlementRepo payroll.SettlementRepository,
	workers int,
	logger *slog.Logger,
) payroll.PayrollService {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollServiceImpl{
		txManager:      txManager,
		contractRepo:   contractRepo,
		attendanceRepo: attendanceRepo,
		debtRepo:       debtRepo,
		parameterRepo:  parameterRepo,
		settlementRepo: settlementRepo,
		workers:        workers,
		logger:         logger.With(slog.String("component", "payroll")),
		now:            time.Now,
	}
}

// ========== RUNS ==========

func (s *PayrollServiceImpl) Compute(ctx context.Context, p period.Period, filter employee.Filter) (payroll.BatchResult, error) {
	if err := p.Validate(); err != nil {
		return payroll.BatchResult{}, err
	}

	started := s.now()
	b, err := s.loadBatch(ctx, p, filter)
	if err != nil {
		return payroll.BatchResult{}, err
	}

	res, err := s.runBatch(ctx, b)
	if err != nil && !res.Cancelled {
		s.logger.Error("payroll compute failed",
			slog.String("period", p.String()),
			slog.Any("error", err),
		)
		return payroll.BatchResult{}, err
	}

	s.logger.Info("payroll compute finished",
		slog.String("period", p.String()),
		slog.Int("parameters_version", res.ParametersVersion),
		slog.Int("tax_table_version", res.TaxTableVersion),
		slog.Int("settlements", len(res.Settlements)),
		slog.Int("excluded", res.Excluded),
		slog.Bool("cancelled", res.Cancelled),
		slog.Duration("elapsed", s.now().Sub(started)),
	)
	return res, err
}

func (s *PayrollServiceImpl) Persist(ctx context.Context, p period.Period, filter employee.Filter, actor string) (payroll.PersistResult, error) {
	return s.persist(ctx, p, filter, payroll.RunKindPersist, optional(actor))
}

// RefreshDrafts recomputes and stores the drafts of every active employee for
// p. It backs the scheduled draft refresh.
func (s *PayrollServiceImpl) RefreshDrafts(ctx context.Context, p period.Period) (payroll.PersistResult, error) {
	return s.persist(ctx, p, employee.Filter{}, payroll.RunKindAutoDraft, nil)
}

func (s *PayrollServiceImpl) persist(ctx context.Context, p period.Period, filter employee.Filter, kind payroll.RunKind, actor *string) (payroll.PersistResult, error) {
	started := s.now()
	computed, computeErr := s.Compute(ctx, p, filter)
	if computeErr != nil && !computed.Cancelled {
		return payroll.PersistResult{}, computeErr
	}

	// Settlements finished before a cancellation are still written.
	wctx := context.WithoutCancel(ctx)

	res := payroll.PersistResult{
		RunID:            uuid.NewString(),
		Period:           p,
		Succeeded:        make([]string, 0, len(computed.Settlements)),
		Failed:           append(make([]payroll.SkippedEmployee, 0, len(computed.Rejected)), computed.Rejected...),
		Skipped:          computed.Skipped,
		ExcludedByReason: make(map[string]int),
		Cancelled:        computed.Cancelled,
	}

	for _, st := range computed.Settlements {
		err := s.txManager.WithinTransaction(wctx, func(txCtx context.Context) error {
			_, err := s.settlementRepo.UpsertDraft(txCtx, st)
			return err
		})
		if err != nil {
			s.logger.Error("persist settlement failed",
				slog.String("employee_id", st.EmployeeID),
				slog.String("period", p.String()),
				slog.Any("error", err),
			)
			res.Failed = append(res.Failed, payroll.SkippedEmployee{
				EmployeeID: st.EmployeeID,
				Reason:     payroll.ReasonCode(err),
				Message:    err.Error(),
			})
			continue
		}
		res.Succeeded = append(res.Succeeded, st.EmployeeID)
		res.Totals.Add(st)
	}

	// A skipped employee must not keep a stale draft from an earlier run.
	for _, sk := range computed.Skipped {
		if err := s.settlementRepo.DeleteDraft(wctx, sk.EmployeeID, p); err != nil {
			s.logger.Warn("remove stale draft failed",
				slog.String("employee_id", sk.EmployeeID),
				slog.String("period", p.String()),
				slog.Any("error", err),
			)
		}
	}

	for _, sk := range res.Skipped {
		res.ExcludedByReason[sk.Reason]++
	}
	for _, f := range res.Failed {
		res.ExcludedByReason[f.Reason]++
	}
	res.Excluded = len(res.Skipped) + len(res.Failed)

	run := payroll.Run{
		ID:                res.RunID,
		Period:            p,
		Kind:              kind,
		ParametersVersion: computed.ParametersVersion,
		TaxTableVersion:   computed.TaxTableVersion,
		Succeeded:         len(res.Succeeded),
		Failed:            len(res.Failed),
		Excluded:          res.Excluded,
		ExcludedByReason:  res.ExcludedByReason,
		Cancelled:         res.Cancelled,
		Totals:            res.Totals,
		TriggeredBy:       actor,
		StartedAt:         started.UTC(),
		FinishedAt:        s.now().UTC(),
		Filtered:          filter.Narrowed(),
		Exclusions:        append(append(make([]payroll.SkippedEmployee, 0, res.Excluded), res.Skipped...), res.Failed...),
	}
	if err := s.settlementRepo.SaveRun(wctx, run); err != nil {
		return res, fmt.Errorf("save payroll run: %w", err)
	}

	s.logger.Info("payroll persist finished",
		slog.String("run_id", run.ID),
		slog.String("kind", string(kind)),
		slog.String("period", p.String()),
		slog.Int("succeeded", run.Succeeded),
		slog.Int("failed", run.Failed),
		slog.Int("excluded", run.Excluded),
		slog.Bool("cancelled", run.Cancelled),
	)
	return res, computeErr
}

func (s *PayrollServiceImpl) loadBatch(ctx context.Context, p period.Period, filter employee.Filter) (batch, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return batch{}, err
	}

	contracts, err := s.contractRepo.ListContracts(ctx, filter)
	if err != nil {
		return batch{}, fmt.Errorf("list contracts: %w", err)
	}

	inPeriod := make([]employee.Contract, 0, len(contracts))
	found := make(map[string]bool, len(contracts))
	ids := make([]string, 0, len(contracts))
	for _, c := range contracts {
		if !c.EmployedBetween(p.Start(), p.End()) {
			continue
		}
		inPeriod = append(inPeriod, c)
		found[c.EmployeeID] = true
		ids = append(ids, c.EmployeeID)
	}

	var missing []string
	seen := make(map[string]bool, len(filter.EmployeeIDs))
	for _, id := range filter.EmployeeIDs {
		if !found[id] && !seen[id] {
			missing = append(missing, id)
		}
		seen[id] = true
	}

	b := batch{
		period:      p,
		snapshot:    snap,
		contracts:   inPeriod,
		missing:     missing,
		vectors:     map[string]attendance.Vector{},
		obligations: map[string][]debt.Obligation{},
	}
	if len(ids) == 0 {
		return b, nil
	}

	if b.vectors, err = s.attendanceRepo.GetVectors(ctx, p, ids); err != nil {
		return batch{}, fmt.Errorf("get attendance vectors: %w", err)
	}
	if b.obligations, err = s.debtRepo.ListDue(ctx, p, ids); err != nil {
		return batch{}, fmt.Errorf("list due obligations: %w", err)
	}
	if b.statuses, err = s.settlementRepo.StatusesByPeriod(ctx, p); err != nil {
		return batch{}, fmt.Errorf("get settlement statuses: %w", err)
	}
	return b, nil
}

// snapshot fetches the active parameters and tax table once for a run.
func (s *PayrollServiceImpl) snapshot(ctx context.Context) (Snapshot, error) {
	params, err := s.parameterRepo.GetActiveParameters(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if err := params.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: version %d: %v", payroll.ErrInvalidParameters, params.Version, err)
	}

	table, err := s.parameterRepo.GetActiveTaxTable(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if err := table.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: version %d: %v", payroll.ErrInvalidTaxTable, table.Version, err)
	}

	return Snapshot{Parameters: params, TaxTable: table}, nil
}

// ========== LIFECYCLE ==========

func (s *PayrollServiceImpl) Validate(ctx context.Context, employeeID string, p period.Period, actor string) (payroll.Settlement, error) {
	return s.transition(ctx, employeeID, p, payroll.ActionValidate, actor)
}

func (s *PayrollServiceImpl) RevertToDraft(ctx context.Context, employeeID string, p period.Period, actor string) (payroll.Settlement, error) {
	return s.transition(ctx, employeeID, p, payroll.ActionRevert, actor)
}

// MarkPaid closes the settlement and applies its planned deductions to the
// debt ledger in the same transaction.
func (s *PayrollServiceImpl) MarkPaid(ctx context.Context, employeeID string, p period.Period, actor string) (payroll.Settlement, error) {
	return s.transition(ctx, employeeID, p, payroll.ActionMarkPaid, actor)
}

func (s *PayrollServiceImpl) transition(ctx context.Context, employeeID string, p period.Period, action payroll.Action, actor string) (payroll.Settlement, error) {
	if err := p.Validate(); err != nil {
		return payroll.Settlement{}, err
	}

	var out payroll.Settlement
	err := s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		st, err := s.settlementRepo.GetForUpdate(txCtx, employeeID, p)
		if err != nil {
			return err
		}

		from := st.Status
		next, err := payroll.Transition(from, action)
		if err != nil {
			return fmt.Errorf("employee %s period %s: %w", employeeID, p, err)
		}

		now := s.now().UTC()
		st.Status = next
		switch action {
		case payroll.ActionValidate:
			st.ValidatedAt = &now
			st.ValidatedBy = optional(actor)
		case payroll.ActionRevert:
			st.ValidatedAt = nil
			st.ValidatedBy = nil
		case payroll.ActionMarkPaid:
			if err := s.applyLedger(txCtx, st); err != nil {
				return err
			}
			st.PaidAt = &now
			st.PaidBy = optional(actor)
		}

		if err := s.settlementRepo.UpdateStatus(txCtx, st, from); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return payroll.Settlement{}, err
	}

	s.logger.Info("settlement status changed",
		slog.String("employee_id", employeeID),
		slog.String("period", p.String()),
		slog.String("action", string(action)),
		slog.String("status", string(out.Status)),
		slog.String("actor", actor),
	)
	return out, nil
}

// applyLedger records every deduction line of st against the debt ledger.
// Obligations due in the period that the settlement did not plan for are
// deferred untouched to the next period.
func (s *PayrollServiceImpl) applyLedger(ctx context.Context, st payroll.Settlement) error {
	next := st.Period.Next()
	planned := make(map[string]bool, len(st.Deductions))

	for _, line := range st.Deductions {
		planned[line.ObligationID] = true
		switch line.Kind {
		case debt.KindAdvance:
			a, err := s.debtRepo.GetAdvance(ctx, line.ObligationID)
			if err != nil {
				return err
			}
			if err := checkUnchanged(a.Obligation(), line, st.Period); err != nil {
				return err
			}
			if err := a.Apply(line.Deducted, next); err != nil {
				return err
			}
			if err := s.debtRepo.UpdateAdvance(ctx, a); err != nil {
				return err
			}
		case debt.KindInstallment:
			inst, err := s.debtRepo.GetInstallment(ctx, line.ObligationID)
			if err != nil {
				return err
			}
			if err := checkUnchanged(inst.Obligation(), line, st.Period); err != nil {
				return err
			}
			credit, err := s.debtRepo.GetCredit(ctx, inst.CreditID)
			if err != nil {
				return err
			}
			if err := credit.ApplyInstallment(&inst, line.Deducted, next); err != nil {
				return err
			}
			if err := s.debtRepo.UpdateInstallment(ctx, inst); err != nil {
				return err
			}
			if err := s.debtRepo.UpdateCredit(ctx, credit); err != nil {
				return err
			}
		default:
			return fmt.Errorf("deduction line %s: unknown kind %q: %w", line.ObligationID, line.Kind, debt.ErrLedgerInconsistent)
		}
	}

	due, err := s.debtRepo.ListDue(ctx, st.Period, []string{st.EmployeeID})
	if err != nil {
		return fmt.Errorf("list due obligations: %w", err)
	}
	for _, o := range due[st.EmployeeID] {
		if planned[o.ID] {
			continue
		}
		if err := s.deferUnplanned(ctx, o, next); err != nil {
			return err
		}
	}
	return nil
}

func (s *PayrollServiceImpl) deferUnplanned(ctx context.Context, o debt.Obligation, next period.Period) error {
	switch o.Kind {
	case debt.KindAdvance:
		a, err := s.debtRepo.GetAdvance(ctx, o.ID)
		if err != nil {
			return err
		}
		if err := a.Apply(decimal.Zero, next); err != nil {
			return err
		}
		return s.debtRepo.UpdateAdvance(ctx, a)
	case debt.KindInstallment:
		inst, err := s.debtRepo.GetInstallment(ctx, o.ID)
		if err != nil {
			return err
		}
		credit, err := s.debtRepo.GetCredit(ctx, inst.CreditID)
		if err != nil {
			return err
		}
		if err := credit.ApplyInstallment(&inst, decimal.Zero, next); err != nil {
			return err
		}
		if err := s.debtRepo.UpdateInstallment(ctx, inst); err != nil {
			return err
		}
		return s.debtRepo.UpdateCredit(ctx, credit)
	}
	return nil
}

func checkUnchanged(o debt.Obligation, line payroll.DeductionLine, p period.Period) error {
	if !o.Status.Open() || o.Due != p || !o.Amount.Equal(line.Due) {
		return fmt.Errorf("%s %s: %w", o.Kind, o.ID, debt.ErrObligationChanged)
	}
	return nil
}

// ========== READ SIDE ==========

func (s *PayrollServiceImpl) PeriodTotals(ctx context.Context, p period.Period) (payroll.PeriodTotals, error) {
	if err := p.Validate(); err != nil {
		return payroll.PeriodTotals{}, err
	}

	settlements, err := s.settlementRepo.ListByPeriod(ctx, p, nil)
	if err != nil {
		return payroll.PeriodTotals{}, err
	}

	res := payroll.PeriodTotals{
		Period:           p,
		ByStatus:         make(map[payroll.Status]int),
		ExcludedByReason: make(map[string]int),
	}
	for _, st := range settlements {
		res.Totals.Add(st)
		res.ByStatus[st.Status]++
	}

	runs, err := s.settlementRepo.ListRuns(ctx, p)
	if err != nil {
		return payroll.PeriodTotals{}, err
	}
	if len(runs) == 0 {
		return res, nil
	}

	stored := make(map[string]bool, len(settlements))
	for _, st := range settlements {
		stored[st.EmployeeID] = true
	}
	for id, reason := range latestExclusions(runs) {
		if stored[id] {
			continue
		}
		res.Excluded++
		res.ExcludedByReason[reason]++
	}

	last := runs[len(runs)-1]
	res.LastRunID = &last.ID
	res.LastRunAt = &last.FinishedAt
	return res, nil
}

// latestExclusions replays runs oldest first and returns the last reason each
// employee was left out for. A run over the whole workforce starts over; a
// filtered run only overrides the employees it covered.
func latestExclusions(runs []payroll.Run) map[string]string {
	out := make(map[string]string)
	for _, run := range runs {
		if !run.Filtered {
			clear(out)
		}
		for _, ex := range run.Exclusions {
			out[ex.EmployeeID] = ex.Reason
		}
	}
	return out
}

func (s *PayrollServiceImpl) GetSettlement(ctx context.Context, employeeID string, p period.Period) (payroll.Settlement, error) {
	if err := p.Validate(); err != nil {
		return payroll.Settlement{}, err
	}
	return s.settlementRepo.Get(ctx, employeeID, p)
}

func (s *PayrollServiceImpl) ListSettlements(ctx context.Context, p period.Period, status *payroll.Status) ([]payroll.Settlement, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.settlementRepo.ListByPeriod(ctx, p, status)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
