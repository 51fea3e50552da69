package payroll

import (
	"errors"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/debt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/employee"
)

var (
	ErrSettlementNotFound         = errors.New("settlement not found")
	ErrSettlementLocked           = errors.New("settlement is paid and cannot be modified")
	ErrSettlementAlreadyValidated = errors.New("settlement is already validated")
	ErrSettlementNotValidated     = errors.New("settlement is not validated")
	ErrSettlementStale            = errors.New("settlement status changed concurrently")
	ErrUnknownAction              = errors.New("unknown settlement action")

	ErrContractMissing  = errors.New("employee contract missing")
	ErrBaseBelowMinimum = errors.New("base salary below minimum wage")

	ErrNoBracketMatches   = errors.New("taxable income exceeds tax table")
	ErrNoActiveParameters = errors.New("no active payroll parameters")
	ErrNoActiveTaxTable   = errors.New("no active tax table")
	ErrParametersNotFound = errors.New("payroll parameters version not found")
	ErrTaxTableNotFound   = errors.New("tax table version not found")
	ErrInvalidParameters  = errors.New("invalid payroll parameters")
	ErrInvalidTaxTable    = errors.New("invalid tax table")
)

// Reason codes reported for employees left out of a run.
const (
	ReasonAttendanceNotLocked  = "AttendanceNotLocked"
	ReasonAttendanceIncomplete = "AttendanceIncomplete"
	ReasonInvalidDayCode       = "InvalidDayCode"
	ReasonContractMissing      = "ContractMissing"
	ReasonBaseBelowMinimum     = "BaseBelowMinimum"
	ReasonSettlementValidated  = "SettlementValidated"
	ReasonSettlementLocked     = "SettlementLocked"
	ReasonLedgerConflict       = "LedgerConflict"
	ReasonPersistence          = "PersistenceError"
)

// IsPrecondition reports per-employee input problems. The batch skips the
// employee and carries on.
func IsPrecondition(err error) bool {
	return errors.Is(err, attendance.ErrAttendanceNotLocked) ||
		errors.Is(err, attendance.ErrAttendanceIncomplete) ||
		errors.Is(err, attendance.ErrPeriodMismatch) ||
		errors.Is(err, attendance.ErrInvalidSupplemental) ||
		errors.Is(err, attendance.ErrInvalidDayCode) ||
		errors.Is(err, ErrContractMissing) ||
		errors.Is(err, ErrBaseBelowMinimum) ||
		errors.Is(err, employee.ErrEmployeeHasNoBaseSalary)
}

// IsConfiguration reports errors that make a whole run untrustworthy.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrNoBracketMatches) ||
		errors.Is(err, ErrNoActiveParameters) ||
		errors.Is(err, ErrNoActiveTaxTable) ||
		errors.Is(err, ErrInvalidParameters) ||
		errors.Is(err, ErrInvalidTaxTable)
}

func IsStateConflict(err error) bool {
	return errors.Is(err, ErrSettlementLocked) ||
		errors.Is(err, ErrSettlementAlreadyValidated) ||
		errors.Is(err, ErrSettlementNotValidated) ||
		errors.Is(err, ErrSettlementStale) ||
		errors.Is(err, debt.ErrObligationChanged)
}

// ReasonCode maps an error to the code reported in skip and failure lists.
func ReasonCode(err error) string {
	switch {
	case errors.Is(err, attendance.ErrAttendanceNotLocked):
		return ReasonAttendanceNotLocked
	case errors.Is(err, attendance.ErrAttendanceIncomplete),
		errors.Is(err, attendance.ErrPeriodMismatch),
		errors.Is(err, attendance.ErrInvalidSupplemental):
		return ReasonAttendanceIncomplete
	case errors.Is(err, attendance.ErrInvalidDayCode):
		return ReasonInvalidDayCode
	case errors.Is(err, ErrContractMissing):
		return ReasonContractMissing
	case errors.Is(err, ErrBaseBelowMinimum), errors.Is(err, employee.ErrEmployeeHasNoBaseSalary):
		return ReasonBaseBelowMinimum
	case errors.Is(err, ErrSettlementAlreadyValidated):
		return ReasonSettlementValidated
	case errors.Is(err, ErrSettlementLocked):
		return ReasonSettlementLocked
	case errors.Is(err, debt.ErrObligationChanged), errors.Is(err, debt.ErrLedgerInconsistent):
		return ReasonLedgerConflict
	default:
		return ReasonPersistence
	}
}
