package debt

import "context"

type DebtService interface {
	CreateAdvance(ctx context.Context, req CreateAdvanceRequest) (Advance, error)
	CreateCredit(ctx context.Context, req CreateCreditRequest) (CreditResponse, error)
	GetCredit(ctx context.Context, id string) (CreditResponse, error)
}
