package handlers

import (
	"net/http"
	"strconv"

	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/service/sector"
)

// SectorHandler serves the sector catalog.
type SectorHandler struct {
	uc     sectorUsecase
	logger logx.Logger
}

// NewSectorHandler creates a new SectorHandler.
func NewSectorHandler(logger logx.Logger, uc sectorUsecase) *SectorHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &SectorHandler{uc: uc, logger: logger}
}

// Create handles POST /sectors.
func (h *SectorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSectorRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	sec, err := h.uc.Create(r.Context(), sector.CreateInput{Name: req.Name, City: req.City, Pincodes: req.Pincodes})
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	w.Header().Set("Location", "/sectors/"+strconv.FormatInt(sec.ID, 10))
	writeJSON(h.logger, w, r, http.StatusCreated, sectorToResponse(*sec))
}

// List handles GET /sectors.
func (h *SectorHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.uc.List(r.Context())
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	out := make([]sectorDTO, 0, len(list))
	for _, s := range list {
		out = append(out, sectorToResponse(s))
	}
	writeJSON(h.logger, w, r, http.StatusOK, out)
}

// GetByID handles GET /sectors/{id}.
func (h *SectorHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	sec, err := h.uc.Get(r.Context(), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, sectorToResponse(*sec))
}

// Update handles PATCH /sectors/{id}. Only activation can change.
func (h *SectorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req updateSectorRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if req.Active == nil {
		writeErrorBody(h.logger, w, r, http.StatusBadRequest, ErrorResponse{Error: "invalid input", Violations: []string{"active is required"}})
		return
	}
	sec, err := h.uc.SetActive(r.Context(), id, *req.Active)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, sectorToResponse(*sec))
}
