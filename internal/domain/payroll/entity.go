package payroll

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/debt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/shopspring/decimal"
)

// Status is the settlement lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusValidated Status = "validated"
	StatusPaid      Status = "paid"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusValidated || s == StatusPaid
}

type Flag string

const (
	FlagZeroWorkedDays Flag = "zero_worked_days"
	FlagPreHireDays    Flag = "pre_hire_days"
	FlagDebtDeferred   Flag = "debt_deferred"
	FlagNegativeNet    Flag = "negative_net_before_debt"
)

// DeductionLine is the planned outcome of one debt obligation on a settlement.
// The ledger itself is only updated when the settlement is marked paid.
type DeductionLine struct {
	Kind         debt.Kind       `json:"kind"`
	ObligationID string          `json:"obligation_id"`
	CreditID     string          `json:"credit_id,omitempty"`
	Due          decimal.Decimal `json:"due"`
	Deducted     decimal.Decimal `json:"deducted"`
	Deferred     decimal.Decimal `json:"deferred"`
	Outcome      debt.Status     `json:"outcome"`
	DeferredTo   *period.Period  `json:"deferred_to,omitempty"`
}

// Settlement is one employee's payroll computation for one period.
type Settlement struct {
	ID           string        `json:"id,omitempty"`
	EmployeeID   string        `json:"employee_id"`
	EmployeeName string        `json:"employee_name"`
	Period       period.Period `json:"period"`
	Status       Status        `json:"status"`

	Attendance     attendance.Summary `json:"attendance"`
	WorkedDays     int                `json:"worked_days"`
	PaidDays       int                `json:"paid_days"`
	StandardDays   int                `json:"standard_days"`
	SeniorityYears int                `json:"seniority_years"`

	BaseSalary      decimal.Decimal `json:"base_salary"`
	ProratedBase    decimal.Decimal `json:"prorated_base"`
	OvertimeApplied bool            `json:"overtime_applied"`
	OvertimeDays    decimal.Decimal `json:"overtime_days"`
	OvertimeAmount  decimal.Decimal `json:"overtime_amount"`

	HardshipIndemnity         decimal.Decimal `json:"hardship_indemnity"`
	PermanentServiceIndemnity decimal.Decimal `json:"permanent_service_indemnity"`
	SeniorityIndemnity        decimal.Decimal `json:"seniority_indemnity"`
	EncouragementPremium      decimal.Decimal `json:"encouragement_premium"`

	DriverPremium      decimal.Decimal `json:"driver_premium"`
	NightPremium       decimal.Decimal `json:"night_premium"`
	MealAllowance      decimal.Decimal `json:"meal_allowance"`
	TransportAllowance decimal.Decimal `json:"transport_allowance"`
	HouseholdAllowance decimal.Decimal `json:"household_allowance"`

	CotisableTotal    decimal.Decimal `json:"cotisable_total"`
	NonCotisableTotal decimal.Decimal `json:"non_cotisable_total"`
	GrossPay          decimal.Decimal `json:"gross_pay"`
	SocialSecurity    decimal.Decimal `json:"social_security"`
	TaxableIncome     decimal.Decimal `json:"taxable_income"`
	Tax               decimal.Decimal `json:"tax"`
	TaxProrated       bool            `json:"tax_prorated"`
	NetBeforeDebt     decimal.Decimal `json:"net_before_debt"`
	DebtDeduction     decimal.Decimal `json:"debt_deduction"`
	DebtDeferred      decimal.Decimal `json:"debt_deferred"`
	NetPay            decimal.Decimal `json:"net_pay"`

	Deductions []DeductionLine `json:"deductions"`
	Flags      []Flag          `json:"flags"`

	ParametersVersion int        `json:"parameters_version"`
	TaxTableVersion   int        `json:"tax_table_version"`
	Parameters        Parameters `json:"parameters"`

	ValidatedAt *time.Time `json:"validated_at,omitempty"`
	ValidatedBy *string    `json:"validated_by,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	PaidBy      *string    `json:"paid_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
}

func (s Settlement) HasFlag(f Flag) bool {
	for _, x := range s.Flags {
		if x == f {
			return true
		}
	}
	return false
}

// Totals sums every monetary field over a set of settlements.
type Totals struct {
	Employees                 int             `json:"employees"`
	BaseSalary                decimal.Decimal `json:"base_salary"`
	ProratedBase              decimal.Decimal `json:"prorated_base"`
	OvertimeAmount            decimal.Decimal `json:"overtime_amount"`
	HardshipIndemnity         decimal.Decimal `json:"hardship_indemnity"`
	PermanentServiceIndemnity decimal.Decimal `json:"permanent_service_indemnity"`
	SeniorityIndemnity        decimal.Decimal `json:"seniority_indemnity"`
	EncouragementPremium      decimal.Decimal `json:"encouragement_premium"`
	DriverPremium             decimal.Decimal `json:"driver_premium"`
	NightPremium              decimal.Decimal `json:"night_premium"`
	MealAllowance             decimal.Decimal `json:"meal_allowance"`
	TransportAllowance        decimal.Decimal `json:"transport_allowance"`
	HouseholdAllowance        decimal.Decimal `json:"household_allowance"`
	CotisableTotal            decimal.Decimal `json:"cotisable_total"`
	NonCotisableTotal         decimal.Decimal `json:"non_cotisable_total"`
	GrossPay                  decimal.Decimal `json:"gross_pay"`
	SocialSecurity            decimal.Decimal `json:"social_security"`
	TaxableIncome             decimal.Decimal `json:"taxable_income"`
	Tax                       decimal.Decimal `json:"tax"`
	DebtDeduction             decimal.Decimal `json:"debt_deduction"`
	DebtDeferred              decimal.Decimal `json:"debt_deferred"`
	NetPay                    decimal.Decimal `json:"net_pay"`
}

func (t *Totals) Add(s Settlement) {
	t.Employees++
	t.BaseSalary = t.BaseSalary.Add(s.BaseSalary)
	t.ProratedBase = t.ProratedBase.Add(s.ProratedBase)
	t.OvertimeAmount = t.OvertimeAmount.Add(s.OvertimeAmount)
	t.HardshipIndemnity = t.HardshipIndemnity.Add(s.HardshipIndemnity)
	t.PermanentServiceIndemnity = t.PermanentServiceIndemnity.Add(s.PermanentServiceIndemnity)
	t.SeniorityIndemnity = t.SeniorityIndemnity.Add(s.SeniorityIndemnity)
	t.EncouragementPremium = t.EncouragementPremium.Add(s.EncouragementPremium)
	t.DriverPremium = t.DriverPremium.Add(s.DriverPremium)
	t.NightPremium = t.NightPremium.Add(s.NightPremium)
	t.MealAllowance = t.MealAllowance.Add(s.MealAllowance)
	t.TransportAllowance = t.TransportAllowance.Add(s.TransportAllowance)
	t.HouseholdAllowance = t.HouseholdAllowance.Add(s.HouseholdAllowance)
	t.CotisableTotal = t.CotisableTotal.Add(s.CotisableTotal)
	t.NonCotisableTotal = t.NonCotisableTotal.Add(s.NonCotisableTotal)
	t.GrossPay = t.GrossPay.Add(s.GrossPay)
	t.SocialSecurity = t.SocialSecurity.Add(s.SocialSecurity)
	t.TaxableIncome = t.TaxableIncome.Add(s.TaxableIncome)
	t.Tax = t.Tax.Add(s.Tax)
	t.DebtDeduction = t.DebtDeduction.Add(s.DebtDeduction)
	t.DebtDeferred = t.DebtDeferred.Add(s.DebtDeferred)
	t.NetPay = t.NetPay.Add(s.NetPay)
}

// RunKind tells how a batch run was started.
type RunKind string

const (
	RunKindPersist   RunKind = "persist"
	RunKindAutoDraft RunKind = "auto_draft"
)

// Run is the audit record of one persisted batch.
type Run struct {
	ID                string         `json:"id"`
	Period            period.Period  `json:"period"`
	Kind              RunKind        `json:"kind"`
	ParametersVersion int            `json:"parameters_version"`
	TaxTableVersion   int            `json:"tax_table_version"`
	Succeeded         int            `json:"succeeded"`
	Failed            int            `json:"failed"`
	Excluded          int            `json:"excluded"`
	ExcludedByReason  map[string]int `json:"excluded_by_reason"`
	Cancelled         bool           `json:"cancelled"`
	Totals            Totals         `json:"totals"`
	TriggeredBy       *string        `json:"triggered_by,omitempty"`
	StartedAt         time.Time      `json:"started_at"`
	FinishedAt        time.Time      `json:"finished_at"`

	// Filtered runs covered only part of the workforce.
	Filtered   bool              `json:"filtered"`
	Exclusions []SkippedEmployee `json:"exclusions"`
}
