package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/dig"

	"service-fulfillment/internal/http/handlers"
	obs "service-fulfillment/internal/http/middleware"
	"service-fulfillment/internal/http/middleware/ratelimit"
	"service-fulfillment/internal/logx"
)

// Params lists the handlers mounted by New.
type Params struct {
	dig.In

	Logger      logx.Logger
	Base        *handlers.Handlers
	Couriers    *handlers.CourierHandler
	Sectors     *handlers.SectorHandler
	Slots       *handlers.SlotHandler
	Assignments *handlers.AssignmentHandler
	Fulfillment *handlers.FulfillmentHandler
	Dashboard   *handlers.DashboardHandler
	RateLimit   *ratelimit.Middleware `optional:"true"`
	Metrics     http.Handler          `name:"metrics" optional:"true"`
}

// New constructs a chi-based http.Handler with base middleware and routes.
func New(p Params) http.Handler {
	logger := p.Logger
	if logger == nil {
		logger = logx.Nop()
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(obs.Observability(logger))
	r.Use(middleware.Recoverer)

	r.Get("/ping", p.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(p.Base.HealthcheckHead))
	r.Method(http.MethodGet, "/metrics", metrics)
	r.NotFound(http.HandlerFunc(p.Base.NotFound))

	r.Group(func(r chi.Router) {
		if p.RateLimit != nil {
			r.Use(p.RateLimit.Handler())
		}
		r.Use(middleware.Timeout(5 * time.Second))

		r.Route("/sectors", func(r chi.Router) {
			r.Post("/", p.Sectors.Create)
			r.Get("/", p.Sectors.List)
			r.Get("/{id}", p.Sectors.GetByID)
			r.Patch("/{id}", p.Sectors.Update)
		})

		r.Route("/slots", func(r chi.Router) {
			r.Post("/", p.Slots.Create)
			r.Get("/", p.Slots.List)
			r.Get("/{id}", p.Slots.GetByID)
			r.Put("/{id}", p.Slots.Update)
			r.Delete("/{id}", p.Slots.Delete)
			r.Post("/{id}/admit", p.Slots.Admit)
			r.Post("/{id}/release", p.Slots.Release)
			r.Get("/{id}/utilization", p.Slots.Utilization)
			r.Put("/{id}/capacity", p.Slots.ChangeCapacity)
		})

		r.Route("/couriers", func(r chi.Router) {
			r.Post("/", p.Couriers.Create)
			r.Get("/", p.Couriers.List)
			r.Get("/{id}", p.Couriers.GetByID)
			r.Patch("/{id}", p.Couriers.Update)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", p.Assignments.Assign)
			r.Get("/", p.Assignments.List)
			r.Delete("/", p.Assignments.Reset)
			r.Post("/auto", p.Assignments.AutoAssign)
		})

		r.Route("/pickups/{slot_id}/{vendor_id}", func(r chi.Router) {
			r.Post("/en-route", p.Fulfillment.EnRoute)
			r.Post("/confirm", p.Fulfillment.ConfirmPickup)
			r.Post("/failure", p.Fulfillment.PickupFailure)
		})

		r.Route("/orders/{order_id}", func(r chi.Router) {
			r.Post("/dispatch", p.Fulfillment.Dispatch)
			r.Post("/deliver", p.Fulfillment.Deliver)
			r.Post("/fail", p.Fulfillment.Fail)
			r.Post("/return", p.Fulfillment.Return)
		})

		r.Get("/dashboard", p.Dashboard.Board)
	})

	return r
}
