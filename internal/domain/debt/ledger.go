package debt

import (
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/shopspring/decimal"
)

// Apply records a payslip deduction against the advance. A partial deduction
// defers the residual to next.
func (a *Advance) Apply(deducted decimal.Decimal, next period.Period) error {
	if !a.Status.Open() {
		return fmt.Errorf("advance %s: %w", a.ID, ErrObligationClosed)
	}
	outstanding := a.Outstanding()
	if deducted.IsNegative() || deducted.GreaterThan(outstanding) {
		return fmt.Errorf("advance %s: deduct %s of %s: %w", a.ID, deducted, outstanding, ErrOverpayment)
	}

	a.PaidAmount = a.PaidAmount.Add(deducted)
	if a.Outstanding().IsZero() {
		a.Status = StatusPaid
		a.DeferredTo = nil
		return nil
	}
	a.Status = StatusDeferred
	a.Due = next
	a.DeferredTo = &next
	return nil
}

// ApplyInstallment records a payslip deduction against one installment of c.
//
// A fully covered installment is paid and decrements RemainingInstallments.
// Otherwise the installment is deferred to next with its residual moved to
// DeferredTotal; the installment count does not change.
func (c *Credit) ApplyInstallment(inst *Installment, deducted decimal.Decimal, next period.Period) error {
	if inst.CreditID != c.ID {
		return fmt.Errorf("installment %s does not belong to credit %s: %w", inst.ID, c.ID, ErrLedgerInconsistent)
	}
	if c.Status == CreditSettled {
		return fmt.Errorf("credit %s: %w", c.ID, ErrCreditSettled)
	}
	if !inst.Status.Open() {
		return fmt.Errorf("installment %s: %w", inst.ID, ErrObligationClosed)
	}
	outstanding := inst.Outstanding()
	if deducted.IsNegative() || deducted.GreaterThan(outstanding) {
		return fmt.Errorf("installment %s: deduct %s of %s: %w", inst.ID, deducted, outstanding, ErrOverpayment)
	}
	if err := c.CheckBalance(); err != nil {
		return err
	}

	// Take the installment's outstanding amount out of the bucket it sits in.
	if inst.Status == StatusDeferred {
		c.DeferredTotal = c.DeferredTotal.Sub(outstanding)
	} else {
		c.RemainingBalance = c.RemainingBalance.Sub(outstanding)
	}
	if c.DeferredTotal.IsNegative() || c.RemainingBalance.IsNegative() {
		return fmt.Errorf("credit %s: %w", c.ID, ErrLedgerInconsistent)
	}

	inst.PaidAmount = inst.PaidAmount.Add(deducted)
	c.PaidTotal = c.PaidTotal.Add(deducted)

	residual := outstanding.Sub(deducted)
	if residual.IsZero() {
		inst.Status = StatusPaid
		inst.DeferredTo = nil
		if c.RemainingInstallments > 0 {
			c.RemainingInstallments--
		}
	} else {
		inst.Status = StatusDeferred
		inst.Due = next
		inst.DeferredTo = &next
		c.DeferredTotal = c.DeferredTotal.Add(residual)
	}

	if c.RemainingBalance.IsZero() && c.DeferredTotal.IsZero() {
		c.Status = CreditSettled
	}
	return c.CheckBalance()
}

// CheckBalance verifies the conservation rule of the credit ledger.
func (c Credit) CheckBalance() error {
	sum := c.PaidTotal.Add(c.DeferredTotal).Add(c.RemainingBalance)
	if !sum.Equal(c.Principal) {
		return fmt.Errorf("credit %s: paid %s + deferred %s + remaining %s != principal %s: %w",
			c.ID, c.PaidTotal, c.DeferredTotal, c.RemainingBalance, c.Principal, ErrLedgerInconsistent)
	}
	if c.PaidTotal.GreaterThan(c.Principal) {
		return fmt.Errorf("credit %s: %w", c.ID, ErrOverpayment)
	}
	return nil
}

func (c Credit) Settled() bool {
	return c.Status == CreditSettled
}
