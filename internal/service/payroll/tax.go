package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

type TaxResult struct {
	// Bracket is the index of the matched bracket in the table.
	Bracket  int
	Amount   decimal.Decimal
	Prorated bool
}

// FindBracket returns the first bracket whose inclusive upper bound covers
// income, together with the previous bracket's bound.
func FindBracket(table payroll.TaxTable, income decimal.Decimal) (int, decimal.Decimal, error) {
	lower := decimal.Zero
	for i, b := range table.Brackets {
		if income.LessThanOrEqual(b.UpperBound) {
			return i, lower, nil
		}
		lower = b.UpperBound
	}
	return -1, decimal.Zero, fmt.Errorf("%w: income %s above top bound %s (table v%d)",
		payroll.ErrNoBracketMatches, income.StringFixed(2), table.TopBound().StringFixed(2), table.Version)
}

// CalculateTax applies the bracket table to taxable income. When proration is
// enabled the tax is scaled by workedDays/standard days.
func CalculateTax(taxable decimal.Decimal, table payroll.TaxTable, params payroll.Parameters, workedDays int) (TaxResult, error) {
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}

	idx, lower, err := FindBracket(table, taxable)
	if err != nil {
		return TaxResult{}, err
	}
	b := table.Brackets[idx]

	var tax decimal.Decimal
	switch b.Kind {
	case payroll.BracketFlat:
		tax = b.Amount
	case payroll.BracketRate:
		tax = taxable.Mul(payroll.Rate(b.Rate))
	case payroll.BracketMarginal:
		tax = b.Amount.Add(taxable.Sub(lower).Mul(payroll.Rate(b.Rate)))
	default:
		return TaxResult{}, fmt.Errorf("%w: bracket %d has kind %q", payroll.ErrInvalidTaxTable, idx, b.Kind)
	}
	tax = tax.Round(2)

	res := TaxResult{Bracket: idx, Amount: tax}
	if params.ProrateTax {
		res.Amount = ProrateBase(tax, workedDays, params.StandardWorkingDays)
		res.Prorated = true
	}
	return res, nil
}
