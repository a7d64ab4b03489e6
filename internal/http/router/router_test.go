package router_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"service-fulfillment/internal/http/handlers"
	"service-fulfillment/internal/http/middleware/ratelimit"
	"service-fulfillment/internal/http/router"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/repository/memory"
	"service-fulfillment/internal/service/assignment"
	"service-fulfillment/internal/service/capacity"
	"service-fulfillment/internal/service/courier"
	"service-fulfillment/internal/service/dashboard"
	"service-fulfillment/internal/service/fulfillment"
	"service-fulfillment/internal/service/sector"
	"service-fulfillment/internal/service/slot"
)

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func newRouter(limiter ratelimit.Limiter) http.Handler {
	store := memory.New()
	log := logx.Nop()
	clock := handlers.NewClock(time.UTC)
	return router.New(router.Params{
		Logger:      log,
		Base:        handlers.New(log),
		Couriers:    handlers.NewCourierHandler(log, courier.NewService(store, nil, log)),
		Sectors:     handlers.NewSectorHandler(log, sector.NewService(store, nil, log)),
		Slots:       handlers.NewSlotHandler(log, clock, slot.NewService(store, nil, log), capacity.NewLedger(store, nil, log, nil)),
		Assignments: handlers.NewAssignmentHandler(log, assignment.NewEngine(store, assignment.Policy{}, nil, log, nil, nil)),
		Fulfillment: handlers.NewFulfillmentHandler(log, fulfillment.NewService(store, nil, log, nil)),
		Dashboard:   handlers.NewDashboardHandler(log, clock, dashboard.NewProjector(store, nil, log, time.UTC)),
		RateLimit:   ratelimit.New(log, nil, limiter),
	})
}

func TestRouter_Routes(t *testing.T) {
	t.Parallel()

	h := newRouter(nil)

	tests := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodGet, "/ping", "", http.StatusOK},
		{http.MethodHead, "/healthcheck", "", http.StatusNoContent},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/sectors", "", http.StatusOK},
		{http.MethodPost, "/sectors", `{"name":"North","city":"Pune","pincodes":["411001"]}`, http.StatusCreated},
		{http.MethodPatch, "/sectors/1", `{"active":false}`, http.StatusOK},
		{http.MethodGet, "/slots", "", http.StatusOK},
		{http.MethodGet, "/slots/1", "", http.StatusNotFound},
		{http.MethodPost, "/slots/1/admit?date=2024-01-01", "", http.StatusNotFound},
		{http.MethodGet, "/couriers", "", http.StatusOK},
		{http.MethodGet, "/assignments?date=2024-01-01", "", http.StatusOK},
		{http.MethodPost, "/assignments/auto?date=2024-01-01", "", http.StatusOK},
		{http.MethodDelete, "/assignments?date=2024-01-01", "", http.StatusOK},
		{http.MethodPost, "/pickups/1/vendor-a/confirm?date=2024-01-01", "", http.StatusNotFound},
		{http.MethodPost, "/orders/o-1/deliver", `{"courier_id":1}`, http.StatusNotFound},
		{http.MethodGet, "/dashboard?date=2024-01-01", "", http.StatusOK},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		require.Equal(t, tt.want, rr.Code, "%s %s: %s", tt.method, tt.target, rr.Body.String())
	}
}

func TestRouter_RateLimitSkipsProbes(t *testing.T) {
	t.Parallel()

	h := newRouter(denyAll{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sectors", nil))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
}
