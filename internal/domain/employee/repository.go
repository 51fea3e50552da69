package employee

import "context"

type ContractRepository interface {
	// ListContracts returns contracts matching the filter, ordered by employee ID.
	ListContracts(ctx context.Context, filter Filter) ([]Contract, error)
	GetContract(ctx context.Context, employeeID string) (Contract, error)
}
