package payroll

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DefaultOvertimeMultiplier applies when a parameter set leaves the multiplier unset.
var DefaultOvertimeMultiplier = decimal.RequireFromString("1.33")

// Parameters is one version of the payroll rates and amounts. Percentages are
// stored as percent values (9 means 9%). A settlement keeps the copy it was
// computed with.
type Parameters struct {
	Version int `json:"version"`

	HardshipPct           decimal.Decimal  `json:"hardship_pct"`
	PermanentServicePct   decimal.Decimal  `json:"permanent_service_pct"`
	SeniorityPctPerYear   decimal.Decimal  `json:"seniority_pct_per_year"`
	SeniorityCapPct       *decimal.Decimal `json:"seniority_cap_pct,omitempty"`
	EncouragementPct      decimal.Decimal  `json:"encouragement_pct"`
	EncouragementMinYears int              `json:"encouragement_min_years"`

	DriverPremiumPerDay decimal.Decimal `json:"driver_premium_per_day"`
	NightPremiumMonthly decimal.Decimal `json:"night_premium_monthly"`
	MealPerDay          decimal.Decimal `json:"meal_per_day"`
	TransportPerDay     decimal.Decimal `json:"transport_per_day"`
	HouseholdMonthly    decimal.Decimal `json:"household_monthly"`

	SocialSecurityPct   decimal.Decimal `json:"social_security_pct"`
	StandardWorkingDays int             `json:"standard_working_days"`
	StandardHoursPerDay decimal.Decimal `json:"standard_hours_per_day"`
	OvertimeMultiplier  decimal.Decimal `json:"overtime_multiplier"`
	CalculateOvertime   bool            `json:"calculate_overtime"`
	ProrateTax          bool            `json:"prorate_tax"`
	MinimumWage         decimal.Decimal `json:"minimum_wage"`

	Active      bool       `json:"active"`
	CreatedBy   *string    `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

// Snapshot strips the bookkeeping fields so that the copy embedded in a
// settlement only depends on the values used for computing it.
func (p Parameters) Snapshot() Parameters {
	p.Active = false
	p.CreatedBy = nil
	p.CreatedAt = time.Time{}
	p.ActivatedAt = nil
	return p
}

// Rate converts a percent value into a multiplier.
func Rate(pct decimal.Decimal) decimal.Decimal {
	return pct.Div(hundred)
}

func (p *Parameters) Validate() error {
	var errs validator.ValidationErrors

	percents := []struct {
		field string
		value decimal.Decimal
	}{
		{"hardship_pct", p.HardshipPct},
		{"permanent_service_pct", p.PermanentServicePct},
		{"seniority_pct_per_year", p.SeniorityPctPerYear},
		{"encouragement_pct", p.EncouragementPct},
		{"social_security_pct", p.SocialSecurityPct},
	}
	for _, pc := range percents {
		if pc.value.IsNegative() || pc.value.GreaterThan(hundred) {
			errs = append(errs, validator.ValidationError{Field: pc.field, Message: "must be between 0 and 100"})
		}
	}
	if p.SeniorityCapPct != nil && p.SeniorityCapPct.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "seniority_cap_pct", Message: "must be non-negative"})
	}
	if p.EncouragementMinYears < 0 {
		errs = append(errs, validator.ValidationError{Field: "encouragement_min_years", Message: "must be non-negative"})
	}

	amounts := []struct {
		field string
		value decimal.Decimal
	}{
		{"driver_premium_per_day", p.DriverPremiumPerDay},
		{"night_premium_monthly", p.NightPremiumMonthly},
		{"meal_per_day", p.MealPerDay},
		{"transport_per_day", p.TransportPerDay},
		{"household_monthly", p.HouseholdMonthly},
		{"minimum_wage", p.MinimumWage},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: a.field, Message: "must be non-negative"})
		}
	}

	if p.StandardWorkingDays < 1 || p.StandardWorkingDays > 31 {
		errs = append(errs, validator.ValidationError{Field: "standard_working_days", Message: "must be between 1 and 31"})
	}
	if !p.StandardHoursPerDay.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "standard_hours_per_day", Message: "must be positive"})
	}
	if p.OvertimeMultiplier.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "overtime_multiplier", Message: "must be non-negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
