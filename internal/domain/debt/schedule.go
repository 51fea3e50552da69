package debt

import (
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/shopspring/decimal"
)

// MaxInstallments caps the length of a credit schedule (fifty years).
const MaxInstallments = 600

// InstallmentCount is the number of installments needed to repay principal
// in steps of installment.
func InstallmentCount(principal, installment decimal.Decimal) int64 {
	if !principal.IsPositive() || !installment.IsPositive() {
		return 0
	}
	return principal.Div(installment).Ceil().IntPart()
}

// BuildSchedule splits the credit principal into monthly installments of
// InstallmentAmount starting at firstDue. The last installment carries the
// remainder and may be smaller. The credit's balance fields are reset to match.
func BuildSchedule(c *Credit, firstDue period.Period) ([]Installment, error) {
	if !c.Principal.IsPositive() {
		return nil, ErrInvalidPrincipal
	}
	if !c.InstallmentAmount.Round(2).IsPositive() {
		return nil, ErrInvalidInstallmentAmount
	}
	if err := firstDue.Validate(); err != nil {
		return nil, err
	}

	principal := c.Principal.Round(2)
	step := c.InstallmentAmount.Round(2)
	if n := InstallmentCount(principal, step); n > MaxInstallments {
		return nil, fmt.Errorf("%w: %d installments, at most %d", ErrTooManyInstallments, n, MaxInstallments)
	}

	var out []Installment
	remaining := principal
	due := firstDue
	for seq := 1; remaining.IsPositive(); seq++ {
		if err := due.Validate(); err != nil {
			return nil, fmt.Errorf("installment %d: %w", seq, err)
		}
		amount := decimal.Min(step, remaining)
		out = append(out, Installment{
			CreditID:   c.ID,
			EmployeeID: c.EmployeeID,
			Sequence:   seq,
			Amount:     amount,
			PaidAmount: decimal.Zero,
			Due:        due,
			Status:     StatusPending,
		})
		remaining = remaining.Sub(amount)
		due = due.Next()
	}

	c.Principal = principal
	c.InstallmentAmount = step
	c.PaidTotal = decimal.Zero
	c.DeferredTotal = decimal.Zero
	c.RemainingBalance = principal
	c.RemainingInstallments = len(out)
	c.FirstDue = firstDue
	c.Status = CreditPending
	return out, nil
}
