package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"service-fulfillment/internal/metrics"
)

type metricsOut struct {
	dig.Out

	RateLimitExceededTotal   prometheus.Counter     `name:"rate_limit_exceeded_total"`
	GatewayRetriesTotal      prometheus.Counter     `name:"gateway_retries_total"`
	StoreRetriesTotal        prometheus.Counter     `name:"store_retries_total"`
	PickupAlertsTotal        prometheus.Counter     `name:"pickup_alerts_total"`
	NotificationsFailedTotal prometheus.Counter     `name:"notifications_failed_total"`
	SlotAdmissionsTotal      *prometheus.CounterVec `name:"slot_admissions_total"`
	AssignmentsCreatedTotal  *prometheus.CounterVec `name:"assignments_created_total"`
	StateTransitionsTotal    *prometheus.CounterVec `name:"fulfillment_transitions_total"`
}

// register adds c to the default registerer. When an equal collector is
// already registered the existing one is returned.
func register[T prometheus.Collector](name string, c T) (T, error) {
	if err := prometheus.DefaultRegisterer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, fmt.Errorf("register %s: %w", name, err)
	}
	return c, nil
}

func provideMetrics() (metricsOut, error) {
	var (
		out metricsOut
		err error
	)
	if out.RateLimitExceededTotal, err = register("rate_limit_exceeded_total", metrics.NewRateLimitExceededTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.GatewayRetriesTotal, err = register("gateway_retries_total", metrics.NewGatewayRetriesTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.StoreRetriesTotal, err = register("store_retries_total", metrics.NewStoreRetriesTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.PickupAlertsTotal, err = register("pickup_alerts_total", metrics.NewPickupAlertsTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.NotificationsFailedTotal, err = register("notifications_failed_total", metrics.NewNotificationsFailedTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.SlotAdmissionsTotal, err = register("slot_admissions_total", metrics.NewSlotAdmissionsTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.AssignmentsCreatedTotal, err = register("assignments_created_total", metrics.NewAssignmentsCreatedTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.StateTransitionsTotal, err = register("fulfillment_transitions_total", metrics.NewStateTransitionsTotal()); err != nil {
		return metricsOut{}, err
	}
	return out, nil
}
