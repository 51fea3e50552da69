package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/debt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/shopspring/decimal"
)

// Snapshot is the configuration one run computes with. It is fetched once
// per run and never changes while the run is in progress.
type Snapshot struct {
	Parameters payroll.Parameters
	TaxTable   payroll.TaxTable
}

// EmployeeInput is everything fetched for one employee before assembly.
type EmployeeInput struct {
	Contract    employee.Contract
	Vector      *attendance.Vector
	Obligations []debt.Obligation
}

// Assemble computes the draft settlement of one employee. It performs no I/O.
//
// Amounts are summed in a fixed order so that equal inputs give identical
// results:
//
//	cotisable     = prorated base + overtime + hardship + permanent service + seniority + encouragement
//	non-cotisable = driver + night + meal + transport + household
//	taxable       = cotisable - social security
//	net before    = cotisable + non-cotisable - social security - tax
//	net pay       = net before - debt deducted
func Assemble(in EmployeeInput, p period.Period, snap Snapshot) (payroll.Settlement, error) {
	c := in.Contract
	params := snap.Parameters

	if c.BaseSalary == nil {
		return payroll.Settlement{}, fmt.Errorf("employee %s: %w", c.EmployeeID, payroll.ErrContractMissing)
	}
	base := *c.BaseSalary
	if base.LessThan(params.MinimumWage) {
		return payroll.Settlement{}, fmt.Errorf("employee %s: base %s below %s: %w",
			c.EmployeeID, base.StringFixed(2), params.MinimumWage.StringFixed(2), payroll.ErrBaseBelowMinimum)
	}

	summary, err := attendance.Aggregate(in.Vector, c.HireDate, c.ContractEndDate, p)
	if err != nil {
		return payroll.Settlement{}, fmt.Errorf("employee %s: %w", c.EmployeeID, err)
	}

	// Paid days are reported on the settlement; proration uses worked days.
	paidDays := min(summary.PaidDays(), params.StandardWorkingDays)
	seniority := c.SeniorityYears(p.End())

	allowances := CalculateAllowances(AllowanceInput{
		BaseSalary:     base,
		WorkedDays:     summary.Worked,
		SeniorityYears: seniority,
		Driver:         c.Driver,
		NightSecurity:  c.NightSecurity,
		Household:      c.Household,
	}, params)
	overtime := CalculateOvertime(in.Vector.SupplementalDays, in.Vector.SupplementalHours, base, params)

	cotisable := allowances.ProratedBase.
		Add(overtime.Amount).
		Add(allowances.HardshipIndemnity).
		Add(allowances.PermanentServiceIndemnity).
		Add(allowances.SeniorityIndemnity).
		Add(allowances.EncouragementPremium)
	nonCotisable := allowances.NonCotisable()
	socialSecurity := percentOf(cotisable, params.SocialSecurityPct)
	taxable := cotisable.Sub(socialSecurity)

	tax, err := CalculateTax(taxable, snap.TaxTable, params, summary.Worked)
	if err != nil {
		return payroll.Settlement{}, fmt.Errorf("employee %s: %w", c.EmployeeID, err)
	}

	netBeforeDebt := cotisable.Add(nonCotisable).Sub(socialSecurity).Sub(tax.Amount)
	debts := ResolveDebt(in.Obligations, netBeforeDebt, p)
	net := netBeforeDebt.Sub(debts.Deducted)

	s := payroll.Settlement{
		EmployeeID:   c.EmployeeID,
		EmployeeName: c.FullName,
		Period:       p,
		Status:       payroll.StatusDraft,

		Attendance:     summary,
		WorkedDays:     summary.Worked,
		PaidDays:       paidDays,
		StandardDays:   params.StandardWorkingDays,
		SeniorityYears: seniority,

		BaseSalary:      base,
		ProratedBase:    allowances.ProratedBase,
		OvertimeApplied: overtime.Applied,
		OvertimeDays:    overtime.Days,
		OvertimeAmount:  overtime.Amount,

		HardshipIndemnity:         allowances.HardshipIndemnity,
		PermanentServiceIndemnity: allowances.PermanentServiceIndemnity,
		SeniorityIndemnity:        allowances.SeniorityIndemnity,
		EncouragementPremium:      allowances.EncouragementPremium,

		DriverPremium:      allowances.DriverPremium,
		NightPremium:       allowances.NightPremium,
		MealAllowance:      allowances.MealAllowance,
		TransportAllowance: allowances.TransportAllowance,
		HouseholdAllowance: allowances.HouseholdAllowance,

		CotisableTotal:    cotisable,
		NonCotisableTotal: nonCotisable,
		GrossPay:          cotisable.Add(nonCotisable),
		SocialSecurity:    socialSecurity,
		TaxableIncome:     taxable,
		Tax:               tax.Amount,
		TaxProrated:       tax.Prorated,
		NetBeforeDebt:     netBeforeDebt,
		DebtDeduction:     debts.Deducted,
		DebtDeferred:      debts.Deferred,
		NetPay:            net,

		Deductions: debts.Lines,
		Flags:      settlementFlags(summary, netBeforeDebt, debts),

		ParametersVersion: params.Version,
		TaxTableVersion:   snap.TaxTable.Version,
		Parameters:        params.Snapshot(),
	}
	return s, nil
}

func settlementFlags(summary attendance.Summary, netBeforeDebt decimal.Decimal, debts DebtResolution) []payroll.Flag {
	flags := make([]payroll.Flag, 0, 4)
	if summary.Worked == 0 {
		flags = append(flags, payroll.FlagZeroWorkedDays)
	}
	if summary.PreHire > 0 {
		flags = append(flags, payroll.FlagPreHireDays)
	}
	if debts.Deferred.IsPositive() {
		flags = append(flags, payroll.FlagDebtDeferred)
	}
	if netBeforeDebt.IsNegative() {
		flags = append(flags, payroll.FlagNegativeNet)
	}
	return flags
}
