package handlers

import (
	"net/http"

	"service-fulfillment/internal/logx"
)

// DashboardHandler serves the operator board.
type DashboardHandler struct {
	uc     dashboardUsecase
	clock  Clock
	logger logx.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(logger logx.Logger, clock Clock, uc dashboardUsecase) *DashboardHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &DashboardHandler{uc: uc, clock: clock, logger: logger}
}

// Board handles GET /dashboard?date=&sector_id=. The date defaults to today.
func (h *DashboardHandler) Board(w http.ResponseWriter, r *http.Request) {
	date, err := dateOrToday(r, h.clock)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	sectorID, err := optionalInt64(r, "sector_id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	views, err := h.uc.Board(r.Context(), date, h.clock.now(), sectorID)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, boardToResponse(views))
}
