package payroll

import (
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// AllowanceInput carries what the allowance rules depend on.
type AllowanceInput struct {
	BaseSalary     decimal.Decimal
	WorkedDays     int
	SeniorityYears int
	Driver         bool
	NightSecurity  bool
	Household      bool
}

type Allowances struct {
	ProratedBase              decimal.Decimal
	HardshipIndemnity         decimal.Decimal
	PermanentServiceIndemnity decimal.Decimal
	SeniorityIndemnity        decimal.Decimal
	EncouragementPremium      decimal.Decimal
	DriverPremium             decimal.Decimal
	NightPremium              decimal.Decimal
	MealAllowance             decimal.Decimal
	TransportAllowance        decimal.Decimal
	HouseholdAllowance        decimal.Decimal
}

// CalculateAllowances derives the prorated base and every indemnity and
// premium. The base is prorated on worked days only; leave and holidays do
// not earn it. All amounts are rounded half-up to cents.
func CalculateAllowances(in AllowanceInput, params payroll.Parameters) Allowances {
	prorated := ProrateBase(in.BaseSalary, in.WorkedDays, params.StandardWorkingDays)

	seniorityRate := payroll.Rate(params.SeniorityPctPerYear).Mul(decimal.NewFromInt(int64(in.SeniorityYears)))
	if params.SeniorityCapPct != nil {
		seniorityRate = decimal.Min(seniorityRate, payroll.Rate(*params.SeniorityCapPct))
	}

	encouragement := decimal.Zero
	if in.SeniorityYears >= params.EncouragementMinYears {
		encouragement = percentOf(prorated, params.EncouragementPct)
	}

	worked := decimal.NewFromInt(int64(in.WorkedDays))
	a := Allowances{
		ProratedBase:              prorated,
		HardshipIndemnity:         percentOf(prorated, params.HardshipPct),
		PermanentServiceIndemnity: percentOf(prorated, params.PermanentServicePct),
		SeniorityIndemnity:        prorated.Mul(seniorityRate).Round(2),
		EncouragementPremium:      encouragement,
		DriverPremium:             decimal.Zero,
		NightPremium:              decimal.Zero,
		MealAllowance:             params.MealPerDay.Mul(worked).Round(2),
		TransportAllowance:        params.TransportPerDay.Mul(worked).Round(2),
		HouseholdAllowance:        decimal.Zero,
	}
	if in.Driver {
		a.DriverPremium = params.DriverPremiumPerDay.Mul(worked).Round(2)
	}
	if in.NightSecurity {
		a.NightPremium = params.NightPremiumMonthly.Round(2)
	}
	if in.Household {
		a.HouseholdAllowance = params.HouseholdMonthly.Round(2)
	}
	return a
}

func (a Allowances) NonCotisable() decimal.Decimal {
	return a.DriverPremium.
		Add(a.NightPremium).
		Add(a.MealAllowance).
		Add(a.TransportAllowance).
		Add(a.HouseholdAllowance)
}

// ProrateBase scales base by days/standardDays. Days above the standard are
// capped so the result never exceeds the contractual base.
func ProrateBase(base decimal.Decimal, days, standardDays int) decimal.Decimal {
	if standardDays <= 0 || days <= 0 {
		return decimal.Zero
	}
	if days > standardDays {
		days = standardDays
	}
	return base.Mul(decimal.NewFromInt(int64(days))).
		Div(decimal.NewFromInt(int64(standardDays))).
		Round(2)
}

func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(payroll.Rate(pct)).Round(2)
}
