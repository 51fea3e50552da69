package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/debt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/mission"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrManagerAccessRequired):
		Forbidden(w, "Manager access required")
	case errors.Is(err, auth.ErrOwnerAccessRequired):
		Forbidden(w, "Owner access required")

	// Input
	case errors.Is(err, period.ErrInvalidPeriod):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payroll.ErrUnknownAction):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, mission.ErrNoClients), errors.Is(err, mission.ErrInvalidCoordinate):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, debt.ErrInvalidPrincipal), errors.Is(err, debt.ErrInvalidInstallmentAmount),
		errors.Is(err, debt.ErrTooManyInstallments):
		BadRequest(w, err.Error(), nil)

	// Not found
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, payroll.ErrSettlementNotFound):
		NotFound(w, "Settlement not found")
	case errors.Is(err, payroll.ErrParametersNotFound):
		NotFound(w, "Payroll parameters version not found")
	case errors.Is(err, payroll.ErrTaxTableNotFound):
		NotFound(w, "Tax table version not found")
	case errors.Is(err, debt.ErrAdvanceNotFound):
		NotFound(w, "Salary advance not found")
	case errors.Is(err, debt.ErrCreditNotFound), errors.Is(err, debt.ErrInstallmentNotFound):
		NotFound(w, "Credit not found")

	// Lifecycle and ledger conflicts
	case payroll.IsStateConflict(err):
		Conflict(w, err.Error())
	case errors.Is(err, debt.ErrLedgerInconsistent), errors.Is(err, debt.ErrOverpayment),
		errors.Is(err, debt.ErrObligationClosed), errors.Is(err, debt.ErrCreditSettled):
		Conflict(w, err.Error())

	// Run configuration
	case payroll.IsConfiguration(err):
		UnprocessableEntity(w, "CONFIGURATION_ERROR", err.Error())

	// Default
	default:
		slog.Error("unhandled error", slog.Any("error", err))
		InternalServerError(w, "An unexpected error occurred")
	}
}
