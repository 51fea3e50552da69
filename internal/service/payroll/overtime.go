package payroll

import (
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

type Overtime struct {
	Applied bool
	// Days is the supplemental time expressed in standard days.
	Days   decimal.Decimal
	Amount decimal.Decimal
}

// CalculateOvertime prices supplemental days and hours at the daily rate of
// the base salary times the overtime multiplier. With the overtime toggle off
// the result is explicitly not applied and zero.
func CalculateOvertime(supplementalDays, supplementalHours, baseSalary decimal.Decimal, params payroll.Parameters) Overtime {
	if !params.CalculateOvertime {
		return Overtime{Applied: false, Days: decimal.Zero, Amount: decimal.Zero}
	}

	multiplier := params.OvertimeMultiplier
	if multiplier.IsZero() {
		multiplier = payroll.DefaultOvertimeMultiplier
	}
	hoursPerDay := params.StandardHoursPerDay
	stdDays := decimal.NewFromInt(int64(params.StandardWorkingDays))

	// Work in hours so there is a single division.
	hours := supplementalDays.Mul(hoursPerDay).Add(supplementalHours)
	amount := hours.Mul(baseSalary).Mul(multiplier).
		Div(hoursPerDay.Mul(stdDays)).
		Round(2)

	return Overtime{
		Applied: true,
		Days:    hours.Div(hoursPerDay).Round(4),
		Amount:  amount,
	}
}
