package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/domain"
	"service-fulfillment/internal/logx"
)

func reqID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return "-"
}

func writeJSON(logger logx.Logger, w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil && logger != nil {
		logger.Error("json encode error",
			logx.String("req_id", reqID(r.Context())),
			logx.Err(err),
		)
	}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error      string         `json:"error"`
	Violations []string       `json:"violations,omitempty"`
	IDs        []string       `json:"ids,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

func writeError(logger logx.Logger, w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeErrorBody(logger, w, r, status, ErrorResponse{Error: msg})
}

func writeErrorBody(logger logx.Logger, w http.ResponseWriter, r *http.Request, status int, body ErrorResponse) {
	if logger != nil {
		logger.Warn("http error",
			logx.String("req_id", reqID(r.Context())),
			logx.Int("status", status),
			logx.String("msg", body.Error),
		)
	}
	writeJSON(logger, w, r, status, body)
}

// writeAppError maps service errors to HTTP statuses.
func writeAppError(logger logx.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve     *apperr.ValidationError
		ce     *apperr.ConflictError
		capErr *apperr.CapacityExceededError
	)
	switch {
	case errors.As(err, &ve):
		writeErrorBody(logger, w, r, http.StatusBadRequest, ErrorResponse{Error: "invalid input", Violations: ve.Violations})
	case errors.Is(err, apperr.ErrInvalid):
		writeError(logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(logger, w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &capErr):
		writeErrorBody(logger, w, r, http.StatusConflict, ErrorResponse{
			Error: "capacity exceeded",
			Details: map[string]any{
				"slot_id":    capErr.SlotID,
				"date":       domain.FormatDate(capErr.Date),
				"committed":  capErr.Committed,
				"max_orders": capErr.MaxOrders,
			},
		})
	case errors.As(err, &ce):
		writeErrorBody(logger, w, r, http.StatusConflict, ErrorResponse{Error: ce.Reason, IDs: ce.IDs, Details: ce.Details})
	case errors.Is(err, apperr.ErrInvalidTransition), errors.Is(err, apperr.ErrConflict):
		writeError(logger, w, r, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrStoreUnavailable):
		writeError(logger, w, r, http.StatusServiceUnavailable, "store unavailable")
	default:
		if logger != nil {
			logger.Error("internal error", logx.String("req_id", reqID(r.Context())), logx.Err(err))
		}
		writeError(logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

const (
	bodyLimit = 1 << 20
)

func decodeJSON[T any](logger logx.Logger, w http.ResponseWriter, r *http.Request, dst *T) bool {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(logger, w, r, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		writeError(logger, w, r, http.StatusBadRequest, "invalid json: trailing data")
		return false
	}
	return true
}

func idFromURL(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func dateFromQuery(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("date is required")
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD")
	}
	return d, nil
}

// dateOrToday falls back to today in the operating timezone when date is absent.
func dateOrToday(r *http.Request, c Clock) (time.Time, error) {
	if r.URL.Query().Get("date") == "" {
		return c.Today(), nil
	}
	return dateFromQuery(r)
}

func optionalInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

func optionalInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &v, nil
}
