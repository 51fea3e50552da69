package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/mission"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http/response"
)

type MissionHandler interface {
	BillableDistance(w http.ResponseWriter, r *http.Request)
}

type missionHandlerImpl struct{}

func NewMissionHandler() MissionHandler {
	return &missionHandlerImpl{}
}

func (h *missionHandlerImpl) BillableDistance(w http.ResponseWriter, r *http.Request) {
	var req mission.DistanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := mission.BillableDistance(req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
