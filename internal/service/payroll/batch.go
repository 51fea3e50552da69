package payroll

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/debt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"golang.org/x/sync/errgroup"
)

// batch is the data fetched for one run before any computation starts.
type batch struct {
	period      period.Period
	snapshot    Snapshot
	contracts   []employee.Contract
	missing     []string
	vectors     map[string]attendance.Vector
	obligations map[string][]debt.Obligation
	statuses    map[string]payroll.Status
}

type outcome struct {
	settlement *payroll.Settlement
	skipped    *payroll.SkippedEmployee
	rejected   *payroll.SkippedEmployee
}

// runBatch assembles every contract of b in parallel. Employees are
// independent, so a precondition failure only skips that employee; a
// configuration error stops the run. Cancelling ctx stops scheduling new
// employees and returns what was finished with ctx.Err().
func (s *PayrollServiceImpl) runBatch(ctx context.Context, b batch) (payroll.BatchResult, error) {
	sort.Slice(b.contracts, func(i, j int) bool {
		return b.contracts[i].EmployeeID < b.contracts[j].EmployeeID
	})

	outcomes := make([]outcome, len(b.contracts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range b.contracts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			o, err := s.computeOne(b, b.contracts[i])
			if err != nil {
				return err
			}
			outcomes[i] = o
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return payroll.BatchResult{}, err
	}

	res := payroll.BatchResult{
		Period:            b.period,
		ParametersVersion: b.snapshot.Parameters.Version,
		TaxTableVersion:   b.snapshot.TaxTable.Version,
		Settlements:       make([]payroll.Settlement, 0, len(b.contracts)),
		Skipped:           make([]payroll.SkippedEmployee, 0),
		Rejected:          make([]payroll.SkippedEmployee, 0),
		ExcludedByReason:  make(map[string]int),
	}
	for _, id := range b.missing {
		res.Skipped = append(res.Skipped, payroll.SkippedEmployee{
			EmployeeID: id,
			Reason:     payroll.ReasonContractMissing,
			Message:    "no contract found for employee " + id,
		})
	}
	for _, o := range outcomes {
		switch {
		case o.settlement != nil:
			res.Settlements = append(res.Settlements, *o.settlement)
			res.Totals.Add(*o.settlement)
		case o.skipped != nil:
			res.Skipped = append(res.Skipped, *o.skipped)
		case o.rejected != nil:
			res.Rejected = append(res.Rejected, *o.rejected)
		}
	}
	for _, sk := range res.Skipped {
		res.ExcludedByReason[sk.Reason]++
	}
	for _, rj := range res.Rejected {
		res.ExcludedByReason[rj.Reason]++
	}
	res.Excluded = len(res.Skipped) + len(res.Rejected)

	if err := ctx.Err(); err != nil {
		res.Cancelled = true
		return res, err
	}
	return res, nil
}

// computeOne returns an error only when the whole run must stop.
func (s *PayrollServiceImpl) computeOne(b batch, c employee.Contract) (outcome, error) {
	switch b.statuses[c.EmployeeID] {
	case payroll.StatusPaid:
		return outcome{rejected: &payroll.SkippedEmployee{
			EmployeeID: c.EmployeeID,
			Reason:     payroll.ReasonSettlementLocked,
			Message:    "settlement for employee " + c.EmployeeID + " is paid and cannot be recomputed",
		}}, nil
	case payroll.StatusValidated:
		return outcome{skipped: &payroll.SkippedEmployee{
			EmployeeID: c.EmployeeID,
			Reason:     payroll.ReasonSettlementValidated,
			Message:    "settlement for employee " + c.EmployeeID + " is validated; revert it to draft to recompute",
		}}, nil
	}

	var vector *attendance.Vector
	if v, ok := b.vectors[c.EmployeeID]; ok {
		vector = &v
	}

	st, err := Assemble(EmployeeInput{
		Contract:    c,
		Vector:      vector,
		Obligations: b.obligations[c.EmployeeID],
	}, b.period, b.snapshot)
	if err != nil {
		if payroll.IsPrecondition(err) {
			s.logger.Info("employee skipped",
				slog.String("employee_id", c.EmployeeID),
				slog.String("period", b.period.String()),
				slog.String("reason", payroll.ReasonCode(err)),
			)
			return outcome{skipped: &payroll.SkippedEmployee{
				EmployeeID: c.EmployeeID,
				Reason:     payroll.ReasonCode(err),
				Message:    skipMessage(err, c.EmployeeID),
			}}, nil
		}
		return outcome{}, err
	}
	s.logger.Debug("employee computed",
		slog.String("employee_id", c.EmployeeID),
		slog.String("period", b.period.String()),
		slog.String("net_pay", st.NetPay.StringFixed(2)),
	)
	return outcome{settlement: &st}, nil
}

func skipMessage(err error, employeeID string) string {
	if errors.Is(err, attendance.ErrAttendanceNotLocked) {
		return "attendance unlocked for employee " + employeeID
	}
	return err.Error()
}
