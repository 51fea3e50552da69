package debt

import (
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type CreateAdvanceRequest struct {
	EmployeeID string          `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	DueYear    int             `json:"due_year"`
	DueMonth   int             `json:"due_month"`
	Note       *string         `json:"note,omitempty"`
}

func (r *CreateAdvanceRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be positive"})
	} else if !validator.IsValidMoney(r.Amount) {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must have at most two decimals"})
	}
	if err := r.Due().Validate(); err != nil {
		errs = append(errs, validator.ValidationError{Field: "due_month", Message: "must be a valid year and month"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r *CreateAdvanceRequest) Due() period.Period {
	return period.Period{Year: r.DueYear, Month: r.DueMonth}
}

type CreateCreditRequest struct {
	EmployeeID        string          `json:"employee_id"`
	Principal         decimal.Decimal `json:"principal"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	FirstDueYear      int             `json:"first_due_year"`
	FirstDueMonth     int             `json:"first_due_month"`
}

func (r *CreateCreditRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if !r.Principal.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "principal", Message: "must be positive"})
	} else if !validator.IsValidMoney(r.Principal) {
		errs = append(errs, validator.ValidationError{Field: "principal", Message: "must have at most two decimals"})
	}
	if !r.InstallmentAmount.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "installment_amount", Message: "must be positive"})
	} else if !validator.IsValidMoney(r.InstallmentAmount) {
		errs = append(errs, validator.ValidationError{Field: "installment_amount", Message: "must have at most two decimals"})
	} else if r.InstallmentAmount.GreaterThan(r.Principal) {
		errs = append(errs, validator.ValidationError{Field: "installment_amount", Message: "must not exceed principal"})
	} else if InstallmentCount(r.Principal, r.InstallmentAmount) > MaxInstallments {
		errs = append(errs, validator.ValidationError{Field: "installment_amount", Message: "must repay principal in at most " + validator.Itoa(MaxInstallments) + " installments"})
	}
	if err := r.FirstDue().Validate(); err != nil {
		errs = append(errs, validator.ValidationError{Field: "first_due_month", Message: "must be a valid year and month"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r *CreateCreditRequest) FirstDue() period.Period {
	return period.Period{Year: r.FirstDueYear, Month: r.FirstDueMonth}
}

type CreditResponse struct {
	Credit       Credit        `json:"credit"`
	Installments []Installment `json:"installments"`
}
