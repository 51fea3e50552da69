package payroll

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
)

// ========== RUN DTOs ==========

type RunRequest struct {
	PeriodYear      int      `json:"period_year"`
	PeriodMonth     int      `json:"period_month"`
	EmployeeIDs     []string `json:"employee_ids,omitempty"` // Empty = all active employees
	Position        string   `json:"position,omitempty"`
	IncludeInactive bool     `json:"include_inactive,omitempty"`
}

func (r *RunRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.PeriodMonth < 1 || r.PeriodMonth > 12 {
		errs = append(errs, validator.ValidationError{Field: "period_month", Message: "must be between 1 and 12"})
	}
	if r.PeriodYear < 1970 || r.PeriodYear > 9999 {
		errs = append(errs, validator.ValidationError{Field: "period_year", Message: "must be a valid year"})
	}
	for i, id := range r.EmployeeIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{Field: "employee_ids[" + validator.Itoa(i) + "]", Message: "must not be empty"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r *RunRequest) Period() period.Period {
	return period.Period{Year: r.PeriodYear, Month: r.PeriodMonth}
}

func (r *RunRequest) Filter() employee.Filter {
	return employee.Filter{
		EmployeeIDs:     r.EmployeeIDs,
		Position:        r.Position,
		IncludeInactive: r.IncludeInactive,
	}
}

// SkippedEmployee is an employee left out of a run, with the reason.
type SkippedEmployee struct {
	EmployeeID string `json:"employee_id"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
}

type BatchResult struct {
	Period            period.Period     `json:"period"`
	ParametersVersion int               `json:"parameters_version"`
	TaxTableVersion   int               `json:"tax_table_version"`
	Settlements       []Settlement      `json:"settlements"`
	Skipped           []SkippedEmployee `json:"skipped"`

	// Rejected lists employees whose stored settlement is paid. Recomputing
	// them is refused, not skipped.
	Rejected         []SkippedEmployee `json:"rejected"`
	Totals           Totals            `json:"totals"`
	Excluded         int               `json:"excluded"`
	ExcludedByReason map[string]int    `json:"excluded_by_reason"`
	Cancelled        bool              `json:"cancelled"`
}

type PersistResult struct {
	RunID            string            `json:"run_id"`
	Period           period.Period     `json:"period"`
	Succeeded        []string          `json:"succeeded"`
	Failed           []SkippedEmployee `json:"failed"`
	Skipped          []SkippedEmployee `json:"skipped"`
	Totals           Totals            `json:"totals"`
	Excluded         int               `json:"excluded"`
	ExcludedByReason map[string]int    `json:"excluded_by_reason"`
	Cancelled        bool              `json:"cancelled"`
}

type PeriodTotals struct {
	Period           period.Period  `json:"period"`
	Totals           Totals         `json:"totals"`
	ByStatus         map[Status]int `json:"by_status"`
	Excluded         int            `json:"excluded"`
	ExcludedByReason map[string]int `json:"excluded_by_reason"`
	LastRunID        *string        `json:"last_run_id,omitempty"`
	LastRunAt        *time.Time     `json:"last_run_at,omitempty"`
}

// ========== VERSIONING DTOs ==========

type CreateTaxTableRequest struct {
	Brackets []TaxBracket `json:"brackets"`
	Activate bool         `json:"activate"`
}

func (r *CreateTaxTableRequest) Validate() error {
	t := TaxTable{Brackets: r.Brackets}
	return t.Validate()
}

type CreateParametersRequest struct {
	Parameters
	Activate bool `json:"activate"`
}
