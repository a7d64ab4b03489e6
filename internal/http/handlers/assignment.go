package handlers

import (
	"net/http"
	"strings"
	"time"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/ports/fulfillmenttx"
	"service-fulfillment/internal/service/assignment"
)

// AssignmentHandler serves courier-to-slot bindings.
type AssignmentHandler struct {
	uc     assignmentUsecase
	logger logx.Logger
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(logger logx.Logger, uc assignmentUsecase) *AssignmentHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &AssignmentHandler{uc: uc, logger: logger}
}

// Assign handles POST /assignments.
func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	var date time.Time
	if strings.TrimSpace(req.Date) != "" {
		d, err := domain.ParseDate(req.Date)
		if err != nil {
			writeErrorBody(h.logger, w, r, http.StatusBadRequest, ErrorResponse{Error: "invalid input", Violations: []string{"date must be YYYY-MM-DD"}})
			return
		}
		date = d
	}
	res, err := h.uc.Assign(r.Context(), assignment.AssignRequest{
		CourierIDs: req.CourierIDs,
		SectorID:   req.SectorID,
		SlotID:     req.SlotID,
		Date:       date,
		Capacity:   req.Capacity,
	})
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created > 0 {
		status = http.StatusCreated
	}
	writeJSON(h.logger, w, r, status, assignResultToResponse(res))
}

// AutoAssign handles POST /assignments/auto?date=.
func (h *AssignmentHandler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	date, err := dateFromQuery(r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.uc.AutoAssign(r.Context(), date)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, autoAssignToResponse(res))
}

// Reset handles DELETE /assignments?date=.
func (h *AssignmentHandler) Reset(w http.ResponseWriter, r *http.Request) {
	date, err := dateFromQuery(r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.uc.ResetAssignments(r.Context(), date)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, resetResponse{Removed: res.Removed, UnitsRemoved: res.UnitsRemoved})
}

// List handles GET /assignments?date=&slot_id=&courier_id=.
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	date, err := dateFromQuery(r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	slotID, err := optionalInt64(r, "slot_id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	courierID, err := optionalInt64(r, "courier_id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.uc.List(r.Context(), fulfillmenttx.AssignmentFilter{Date: date, SlotID: slotID, CourierID: courierID})
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, assignmentsToResponse(list))
}
