package payroll

import (
	"sort"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/debt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/shopspring/decimal"
)

type DebtResolution struct {
	Lines    []payroll.DeductionLine
	Due      decimal.Decimal
	Deducted decimal.Decimal
	Deferred decimal.Decimal
}

// ResolveDebt plans the deduction of obligations due in p against the net pay
// left before debt.
//
// Advances go first, then credit installments, each by ascending amount. The
// running total never exceeds available net pay; whatever does not fit is
// deferred to the next period. The ledger is not touched here.
func ResolveDebt(obligations []debt.Obligation, netBeforeDebt decimal.Decimal, p period.Period) DebtResolution {
	due := make([]debt.Obligation, 0, len(obligations))
	for _, o := range obligations {
		if o.Status.Open() && o.Due == p && o.Amount.IsPositive() {
			due = append(due, o)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].Kind != due[j].Kind {
			return due[i].Kind == debt.KindAdvance
		}
		if c := due[i].Amount.Cmp(due[j].Amount); c != 0 {
			return c < 0
		}
		return due[i].ID < due[j].ID
	})

	available := decimal.Max(netBeforeDebt, decimal.Zero)
	next := p.Next()

	res := DebtResolution{
		Lines:    make([]payroll.DeductionLine, 0, len(due)),
		Due:      decimal.Zero,
		Deducted: decimal.Zero,
		Deferred: decimal.Zero,
	}
	for _, o := range due {
		take := decimal.Min(o.Amount, available)
		available = available.Sub(take)
		rest := o.Amount.Sub(take)

		line := payroll.DeductionLine{
			Kind:         o.Kind,
			ObligationID: o.ID,
			CreditID:     o.CreditID,
			Due:          o.Amount,
			Deducted:     take,
			Deferred:     rest,
			Outcome:      debt.StatusPaid,
		}
		if rest.IsPositive() {
			deferredTo := next
			line.Outcome = debt.StatusDeferred
			line.DeferredTo = &deferredTo
		}

		res.Lines = append(res.Lines, line)
		res.Due = res.Due.Add(o.Amount)
		res.Deducted = res.Deducted.Add(take)
		res.Deferred = res.Deferred.Add(rest)
	}
	return res
}
