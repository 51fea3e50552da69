package debt

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindAdvance     Kind = "advance"
	KindInstallment Kind = "installment"
)

// Status of a single obligation (advance or installment).
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusDeferred Status = "deferred"
)

// Open reports whether an obligation in this status can still be deducted.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusDeferred
}

type CreditStatus string

const (
	CreditPending CreditStatus = "pending"
	CreditSettled CreditStatus = "settled"
)

// Advance is a one-off salary advance recovered from a single payslip.
type Advance struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Due        period.Period   `json:"due"`
	Status     Status          `json:"status"`
	DeferredTo *period.Period  `json:"deferred_to,omitempty"`
	Note       *string         `json:"note,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (a Advance) Outstanding() decimal.Decimal {
	return a.Amount.Sub(a.PaidAmount)
}

// Credit is an amortized loan repaid by monthly installments.
//
// PaidTotal + DeferredTotal + RemainingBalance always equals Principal.
// RemainingBalance holds the outstanding part of installments that were never
// deferred; DeferredTotal holds what is still owed on deferred installments.
type Credit struct {
	ID                    string          `json:"id"`
	EmployeeID            string          `json:"employee_id"`
	Principal             decimal.Decimal `json:"principal"`
	InstallmentAmount     decimal.Decimal `json:"installment_amount"`
	PaidTotal             decimal.Decimal `json:"paid_total"`
	DeferredTotal         decimal.Decimal `json:"deferred_total"`
	RemainingBalance      decimal.Decimal `json:"remaining_balance"`
	RemainingInstallments int             `json:"remaining_installments"`
	FirstDue              period.Period   `json:"first_due"`
	Status                CreditStatus    `json:"status"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// Installment is one scheduled repayment of a credit.
type Installment struct {
	ID         string          `json:"id"`
	CreditID   string          `json:"credit_id"`
	EmployeeID string          `json:"employee_id"`
	Sequence   int             `json:"sequence"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Due        period.Period   `json:"due"`
	Status     Status          `json:"status"`
	DeferredTo *period.Period  `json:"deferred_to,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (i Installment) Outstanding() decimal.Decimal {
	return i.Amount.Sub(i.PaidAmount)
}

// Obligation is the read model the resolver works on: anything due from one
// employee in one period.
type Obligation struct {
	Kind       Kind            `json:"kind"`
	ID         string          `json:"id"`
	CreditID   string          `json:"credit_id,omitempty"`
	EmployeeID string          `json:"employee_id"`
	Amount     decimal.Decimal `json:"amount"`
	Due        period.Period   `json:"due"`
	Status     Status          `json:"status"`
}

func (a Advance) Obligation() Obligation {
	return Obligation{
		Kind:       KindAdvance,
		ID:         a.ID,
		EmployeeID: a.EmployeeID,
		Amount:     a.Outstanding(),
		Due:        a.Due,
		Status:     a.Status,
	}
}

func (i Installment) Obligation() Obligation {
	return Obligation{
		Kind:       KindInstallment,
		ID:         i.ID,
		CreditID:   i.CreditID,
		EmployeeID: i.EmployeeID,
		Amount:     i.Outstanding(),
		Due:        i.Due,
		Status:     i.Status,
	}
}
