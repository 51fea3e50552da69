package debt

import "errors"

var (
	ErrAdvanceNotFound     = errors.New("salary advance not found")
	ErrCreditNotFound      = errors.New("credit not found")
	ErrInstallmentNotFound = errors.New("credit installment not found")

	ErrObligationClosed   = errors.New("obligation is already paid")
	ErrCreditSettled      = errors.New("credit is already settled")
	ErrOverpayment        = errors.New("payment exceeds outstanding amount")
	ErrLedgerInconsistent = errors.New("credit ledger does not balance")
	ErrObligationChanged  = errors.New("obligation changed since settlement was computed")

	ErrInvalidPrincipal         = errors.New("principal must be positive")
	ErrInvalidInstallmentAmount = errors.New("installment amount must be positive")
	ErrTooManyInstallments      = errors.New("credit schedule has too many installments")
)
