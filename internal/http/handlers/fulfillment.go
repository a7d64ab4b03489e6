package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/service/fulfillment"
)

// FulfillmentHandler serves pickup and delivery transitions.
type FulfillmentHandler struct {
	uc     fulfillmentUsecase
	logger logx.Logger
}

// NewFulfillmentHandler creates a new FulfillmentHandler.
func NewFulfillmentHandler(logger logx.Logger, uc fulfillmentUsecase) *FulfillmentHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &FulfillmentHandler{uc: uc, logger: logger}
}

type pickupParams struct {
	slotID   int64
	vendorID string
	date     time.Time
}

func (h *FulfillmentHandler) readPickup(w http.ResponseWriter, r *http.Request) (pickupParams, bool) {
	slotID, err := idFromURL(r, "slot_id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return pickupParams{}, false
	}
	vendorID := strings.TrimSpace(chi.URLParam(r, "vendor_id"))
	if vendorID == "" {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid vendor_id")
		return pickupParams{}, false
	}
	date, err := dateFromQuery(r)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return pickupParams{}, false
	}
	return pickupParams{slotID: slotID, vendorID: vendorID, date: date}, true
}

func (h *FulfillmentHandler) writePickup(w http.ResponseWriter, r *http.Request, res fulfillment.PickupResult, err error) {
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, pickupToResponse(res))
}

// EnRoute handles POST /pickups/{slot_id}/{vendor_id}/en-route?date=.
func (h *FulfillmentHandler) EnRoute(w http.ResponseWriter, r *http.Request) {
	p, ok := h.readPickup(w, r)
	if !ok {
		return
	}
	res, err := h.uc.MarkVendorEnRoute(r.Context(), p.slotID, p.vendorID, p.date)
	h.writePickup(w, r, res, err)
}

// ConfirmPickup handles POST /pickups/{slot_id}/{vendor_id}/confirm?date=.
func (h *FulfillmentHandler) ConfirmPickup(w http.ResponseWriter, r *http.Request) {
	p, ok := h.readPickup(w, r)
	if !ok {
		return
	}
	res, err := h.uc.MarkVendorPickedUp(r.Context(), p.slotID, p.vendorID, p.date)
	h.writePickup(w, r, res, err)
}

// PickupFailure handles POST /pickups/{slot_id}/{vendor_id}/failure?date=.
func (h *FulfillmentHandler) PickupFailure(w http.ResponseWriter, r *http.Request) {
	p, ok := h.readPickup(w, r)
	if !ok {
		return
	}
	var req pickupFailureRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if err := h.uc.ReportPickupFailure(r.Context(), p.slotID, p.vendorID, p.date, req.Reason); err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusAccepted, map[string]string{"status": "reported"})
}

func (h *FulfillmentHandler) readOrder(w http.ResponseWriter, r *http.Request) (string, orderActionRequest, bool) {
	orderID := strings.TrimSpace(chi.URLParam(r, "order_id"))
	if orderID == "" {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid order_id")
		return "", orderActionRequest{}, false
	}
	var req orderActionRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return "", orderActionRequest{}, false
	}
	return orderID, req, true
}

func (h *FulfillmentHandler) writeDelivery(w http.ResponseWriter, r *http.Request, u domain.DeliveryUnit, err error) {
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, deliveryToResponse(u))
}

// Dispatch handles POST /orders/{order_id}/dispatch.
func (h *FulfillmentHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	orderID, req, ok := h.readOrder(w, r)
	if !ok {
		return
	}
	u, err := h.uc.DispatchOrder(r.Context(), orderID, req.CourierID)
	h.writeDelivery(w, r, u, err)
}

// Deliver handles POST /orders/{order_id}/deliver.
func (h *FulfillmentHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	orderID, req, ok := h.readOrder(w, r)
	if !ok {
		return
	}
	u, err := h.uc.MarkOrderDelivered(r.Context(), orderID, req.CourierID)
	h.writeDelivery(w, r, u, err)
}

// Fail handles POST /orders/{order_id}/fail.
func (h *FulfillmentHandler) Fail(w http.ResponseWriter, r *http.Request) {
	orderID, req, ok := h.readOrder(w, r)
	if !ok {
		return
	}
	u, err := h.uc.MarkOrderFailed(r.Context(), orderID, req.CourierID, req.Reason)
	h.writeDelivery(w, r, u, err)
}

// Return handles POST /orders/{order_id}/return.
func (h *FulfillmentHandler) Return(w http.ResponseWriter, r *http.Request) {
	orderID, req, ok := h.readOrder(w, r)
	if !ok {
		return
	}
	u, err := h.uc.MarkOrderReturned(r.Context(), orderID, req.CourierID)
	h.writeDelivery(w, r, u, err)
}
