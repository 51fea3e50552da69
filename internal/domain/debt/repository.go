package debt

import (
	"context"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
)

type DebtRepository interface {
	// ListDue returns open advances and installments of pending credits due in p,
	// keyed by employee ID.
	ListDue(ctx context.Context, p period.Period, employeeIDs []string) (map[string][]Obligation, error)

	GetAdvance(ctx context.Context, id string) (Advance, error)
	GetCredit(ctx context.Context, id string) (Credit, error)
	GetInstallment(ctx context.Context, id string) (Installment, error)
	ListInstallments(ctx context.Context, creditID string) ([]Installment, error)

	CreateAdvance(ctx context.Context, a Advance) (Advance, error)
	CreateCredit(ctx context.Context, c Credit, installments []Installment) (Credit, error)

	UpdateAdvance(ctx context.Context, a Advance) error
	UpdateCredit(ctx context.Context, c Credit) error
	UpdateInstallment(ctx context.Context, i Installment) error
}
