package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/debt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type DebtHandler interface {
	CreateAdvance(w http.ResponseWriter, r *http.Request)
	CreateCredit(w http.ResponseWriter, r *http.Request)
	GetCredit(w http.ResponseWriter, r *http.Request)
}

type debtHandlerImpl struct {
	debtService debt.DebtService
}

func NewDebtHandler(debtService debt.DebtService) DebtHandler {
	return &debtHandlerImpl{debtService: debtService}
}

func (h *debtHandlerImpl) CreateAdvance(w http.ResponseWriter, r *http.Request) {
	var req debt.CreateAdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.debtService.CreateAdvance(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Salary advance recorded", result)
}

func (h *debtHandlerImpl) CreateCredit(w http.ResponseWriter, r *http.Request) {
	var req debt.CreateCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.debtService.CreateCredit(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Credit recorded", result)
}

func (h *debtHandlerImpl) GetCredit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		response.BadRequest(w, "Invalid credit ID", nil)
		return
	}

	result, err := h.debtService.GetCredit(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
