package payroll

import (
	"context"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
)

type PayrollService interface {
	// Compute recomputes settlements for the period without writing anything.
	Compute(ctx context.Context, p period.Period, filter employee.Filter) (BatchResult, error)
	// Persist recomputes and stores drafts, one transaction per employee.
	Persist(ctx context.Context, p period.Period, filter employee.Filter, actor string) (PersistResult, error)
	// RefreshDrafts is Persist over every active employee, run by the scheduler.
	RefreshDrafts(ctx context.Context, p period.Period) (PersistResult, error)

	Validate(ctx context.Context, employeeID string, p period.Period, actor string) (Settlement, error)
	RevertToDraft(ctx context.Context, employeeID string, p period.Period, actor string) (Settlement, error)
	MarkPaid(ctx context.Context, employeeID string, p period.Period, actor string) (Settlement, error)

	PeriodTotals(ctx context.Context, p period.Period) (PeriodTotals, error)
	GetSettlement(ctx context.Context, employeeID string, p period.Period) (Settlement, error)
	ListSettlements(ctx context.Context, p period.Period, status *Status) ([]Settlement, error)

	ListParameters(ctx context.Context) ([]Parameters, error)
	CreateParameters(ctx context.Context, req CreateParametersRequest, actor string) (Parameters, error)
	ActivateParameters(ctx context.Context, version int) (Parameters, error)
	ListTaxTables(ctx context.Context) ([]TaxTable, error)
	CreateTaxTable(ctx context.Context, req CreateTaxTableRequest, actor string) (TaxTable, error)
	ActivateTaxTable(ctx context.Context, version int) (TaxTable, error)
}
