package payroll

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
)

// ParameterRepository stores versioned parameter sets and tax tables. At most
// one version of each is active.
type ParameterRepository interface {
	GetActiveParameters(ctx context.Context) (Parameters, error)
	GetParameters(ctx context.Context, version int) (Parameters, error)
	ListParameters(ctx context.Context) ([]Parameters, error)
	CreateParameters(ctx context.Context, p Parameters) (Parameters, error)
	ActivateParameters(ctx context.Context, version int, at time.Time) error

	GetActiveTaxTable(ctx context.Context) (TaxTable, error)
	GetTaxTable(ctx context.Context, version int) (TaxTable, error)
	ListTaxTables(ctx context.Context) ([]TaxTable, error)
	CreateTaxTable(ctx context.Context, t TaxTable) (TaxTable, error)
	ActivateTaxTable(ctx context.Context, version int, at time.Time) error
}

type SettlementRepository interface {
	Get(ctx context.Context, employeeID string, p period.Period) (Settlement, error)
	// GetForUpdate locks the row for the surrounding transaction.
	GetForUpdate(ctx context.Context, employeeID string, p period.Period) (Settlement, error)
	ListByPeriod(ctx context.Context, p period.Period, status *Status) ([]Settlement, error)
	StatusesByPeriod(ctx context.Context, p period.Period) (map[string]Status, error)

	// UpsertDraft inserts or overwrites a draft settlement and replaces its
	// deduction lines. It fails with ErrSettlementLocked when the stored row is
	// no longer a draft.
	UpsertDraft(ctx context.Context, s Settlement) (Settlement, error)
	// UpdateStatus moves a settlement from one status to another. It fails with
	// ErrSettlementStale when the stored status is not from.
	UpdateStatus(ctx context.Context, s Settlement, from Status) error
	// DeleteDraft removes the settlement only while it is a draft.
	DeleteDraft(ctx context.Context, employeeID string, p period.Period) error

	SaveRun(ctx context.Context, run Run) error
	// ListRuns returns the runs of p, oldest first.
	ListRuns(ctx context.Context, p period.Period) ([]Run, error)
}
