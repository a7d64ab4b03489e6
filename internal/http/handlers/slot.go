package handlers

import (
	"net/http"
	"strconv"

	"service-fulfillment/internal/logx"
)

// SlotHandler serves slot definitions and their capacity.
type SlotHandler struct {
	slots    slotUsecase
	capacity capacityUsecase
	clock    Clock
	logger   logx.Logger
}

// NewSlotHandler creates a new SlotHandler.
func NewSlotHandler(logger logx.Logger, clock Clock, slots slotUsecase, capacity capacityUsecase) *SlotHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &SlotHandler{slots: slots, capacity: capacity, clock: clock, logger: logger}
}

// Create handles POST /slots.
func (h *SlotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	s, err := h.slots.Create(r.Context(), req.toSpec())
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	w.Header().Set("Location", "/slots/"+strconv.FormatInt(s.ID, 10))
	writeJSON(h.logger, w, r, http.StatusCreated, slotToResponse(*s))
}

// List handles GET /slots?sector_id=&active=.
func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request) {
	sectorID, err := optionalInt64(r, "sector_id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		if activeOnly, err = strconv.ParseBool(raw); err != nil {
			writeError(h.logger, w, r, http.StatusBadRequest, "invalid active")
			return
		}
	}
	list, err := h.slots.List(r.Context(), sectorID, activeOnly)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	out := make([]slotDTO, 0, len(list))
	for _, s := range list {
		out = append(out, slotToResponse(s))
	}
	writeJSON(h.logger, w, r, http.StatusOK, out)
}

// GetByID handles GET /slots/{id}.
func (h *SlotHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.slots.Get(r.Context(), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, slotToResponse(*s))
}

// Update handles PUT /slots/{id}?date=. The date defaults to today.
func (h *SlotHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	asOf, err := dateOrToday(r, h.clock)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req slotRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	s, err := h.slots.Update(r.Context(), id, req.toSpec(), asOf)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, slotToResponse(*s))
}

// Delete handles DELETE /slots/{id}?date=. The date defaults to today.
func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	asOf, err := dateOrToday(r, h.clock)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.slots.Delete(r.Context(), id, asOf); err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Admit handles POST /slots/{id}/admit?date=.
func (h *SlotHandler) Admit(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	date, err := dateFromQuery(r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.capacity.Admit(r.Context(), id, date)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, admissionToResponse(a))
}

// Release handles POST /slots/{id}/release?date=.
func (h *SlotHandler) Release(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	date, err := dateFromQuery(r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.capacity.Release(r.Context(), id, date)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, admissionToResponse(a))
}

// Utilization handles GET /slots/{id}/utilization?date=.
func (h *SlotHandler) Utilization(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	date, err := dateFromQuery(r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.capacity.Utilization(r.Context(), id, date)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, utilizationToResponse(u))
}

// ChangeCapacity handles PUT /slots/{id}/capacity?date=.
func (h *SlotHandler) ChangeCapacity(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	asOf, err := dateOrToday(r, h.clock)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req capacityRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if req.MaxOrders == nil {
		writeErrorBody(h.logger, w, r, http.StatusBadRequest, ErrorResponse{Error: "invalid input", Violations: []string{"max_orders is required"}})
		return
	}
	s, err := h.capacity.ChangeCapacity(r.Context(), id, *req.MaxOrders, asOf)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, slotToResponse(*s))
}
