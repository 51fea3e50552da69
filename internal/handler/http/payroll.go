package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Runs
	Compute(w http.ResponseWriter, r *http.Request)
	Persist(w http.ResponseWriter, r *http.Request)

	// Period views
	PeriodTotals(w http.ResponseWriter, r *http.Request)
	ListSettlements(w http.ResponseWriter, r *http.Request)

	// Settlement lifecycle
	GetSettlement(w http.ResponseWriter, r *http.Request)
	Validate(w http.ResponseWriter, r *http.Request)
	RevertToDraft(w http.ResponseWriter, r *http.Request)
	MarkPaid(w http.ResponseWriter, r *http.Request)

	// Versions
	ListParameters(w http.ResponseWriter, r *http.Request)
	CreateParameters(w http.ResponseWriter, r *http.Request)
	ActivateParameters(w http.ResponseWriter, r *http.Request)
	ListTaxTables(w http.ResponseWriter, r *http.Request)
	CreateTaxTable(w http.ResponseWriter, r *http.Request)
	ActivateTaxTable(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// periodFromURL reads the {year} and {month} route parameters.
func periodFromURL(r *http.Request) (period.Period, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return period.Period{}, false
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		return period.Period{}, false
	}
	p, err := period.New(year, month)
	if err != nil {
		return period.Period{}, false
	}
	return p, true
}

func versionFromURL(r *http.Request) (int, bool) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		return 0, false
	}
	return version, true
}

// ========== RUNS ==========

func (h *payrollHandlerImpl) decodeRun(w http.ResponseWriter, r *http.Request) (payroll.RunRequest, bool) {
	var req payroll.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return req, false
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return req, false
	}
	return req, true
}

func (h *payrollHandlerImpl) Compute(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRun(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.Compute(r.Context(), req.Period(), req.Filter())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) Persist(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRun(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.Persist(r.Context(), req.Period(), req.Filter(), middleware.Actor(r.Context()))
	if err != nil {
		// Drafts written before the failure stay stored; report them.
		if result.RunID == "" {
			response.HandleError(w, err)
			return
		}
		slog.Error("payroll persist incomplete",
			slog.String("run_id", result.RunID),
			slog.Any("error", err),
		)
		if result.Cancelled {
			response.Incomplete(w, http.StatusServiceUnavailable, "RUN_CANCELLED", "Payroll run was cancelled; saved drafts are listed", result)
			return
		}
		response.Incomplete(w, http.StatusInternalServerError, "RUN_INCOMPLETE", "Payroll run did not complete; saved drafts are listed", result)
		return
	}

	response.Created(w, "Payroll drafts saved", result)
}

// ========== PERIOD VIEWS ==========

func (h *payrollHandlerImpl) PeriodTotals(w http.ResponseWriter, r *http.Request) {
	p, ok := periodFromURL(r)
	if !ok {
		response.BadRequest(w, "Invalid period", nil)
		return
	}

	result, err := h.payrollService.PeriodTotals(r.Context(), p)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ListSettlements(w http.ResponseWriter, r *http.Request) {
	p, ok := periodFromURL(r)
	if !ok {
		response.BadRequest(w, "Invalid period", nil)
		return
	}

	var status *payroll.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := payroll.Status(s)
		if !st.Valid() {
			response.BadRequest(w, "Invalid status", map[string]string{"status": "must be one of draft, validated, paid"})
			return
		}
		status = &st
	}

	result, err := h.payrollService.ListSettlements(r.Context(), p, status)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{TotalItems: int64(len(result))})
}

// ========== SETTLEMENT LIFECYCLE ==========

// settlementKey reads the {employeeId}/{year}/{month} route parameters.
func settlementKey(w http.ResponseWriter, r *http.Request) (string, period.Period, bool) {
	employeeID := chi.URLParam(r, "employeeId")
	if validator.IsEmpty(employeeID) {
		response.BadRequest(w, "Employee ID is required", nil)
		return "", period.Period{}, false
	}
	p, ok := periodFromURL(r)
	if !ok {
		response.BadRequest(w, "Invalid period", nil)
		return "", period.Period{}, false
	}
	return employeeID, p, true
}

func (h *payrollHandlerImpl) GetSettlement(w http.ResponseWriter, r *http.Request) {
	employeeID, p, ok := settlementKey(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.GetSettlement(r.Context(), employeeID, p)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) Validate(w http.ResponseWriter, r *http.Request) {
	employeeID, p, ok := settlementKey(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.Validate(r.Context(), employeeID, p, middleware.Actor(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Settlement validated", result)
}

func (h *payrollHandlerImpl) RevertToDraft(w http.ResponseWriter, r *http.Request) {
	employeeID, p, ok := settlementKey(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.RevertToDraft(r.Context(), employeeID, p, middleware.Actor(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Settlement reverted to draft", result)
}

func (h *payrollHandlerImpl) MarkPaid(w http.ResponseWriter, r *http.Request) {
	employeeID, p, ok := settlementKey(w, r)
	if !ok {
		return
	}

	result, err := h.payrollService.MarkPaid(r.Context(), employeeID, p, middleware.Actor(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Settlement marked as paid", result)
}

// ========== VERSIONS ==========

func (h *payrollHandlerImpl) ListParameters(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.ListParameters(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) CreateParameters(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateParametersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateParameters(r.Context(), req, middleware.Actor(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll parameters created", result)
}

func (h *payrollHandlerImpl) ActivateParameters(w http.ResponseWriter, r *http.Request) {
	version, ok := versionFromURL(r)
	if !ok {
		response.BadRequest(w, "Invalid version", nil)
		return
	}

	result, err := h.payrollService.ActivateParameters(r.Context(), version)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll parameters activated", result)
}

func (h *payrollHandlerImpl) ListTaxTables(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.ListTaxTables(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) CreateTaxTable(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateTaxTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateTaxTable(r.Context(), req, middleware.Actor(r.Context()))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Tax table created", result)
}

func (h *payrollHandlerImpl) ActivateTaxTable(w http.ResponseWriter, r *http.Request) {
	version, ok := versionFromURL(r)
	if !ok {
		response.BadRequest(w, "Invalid version", nil)
		return
	}

	result, err := h.payrollService.ActivateTaxTable(r.Context(), version)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Tax table activated", result)
}
