package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewGatewayRetriesTotal returns a Prometheus counter for the number of retry attempts performed by gateways
func NewGatewayRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_retries_total",
		Help: "Total number of retry attempts performed by gateways",
	})
}

// NewStoreRetriesTotal returns a Prometheus counter for retried store operations
func NewStoreRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "store_retries_total",
		Help: "Total number of retry attempts of store operations after a transient failure",
	})
}

// NewSlotAdmissionsTotal returns a counter of admission decisions labelled by result (admitted, rejected)
func NewSlotAdmissionsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slot_admissions_total",
		Help: "Total number of slot admission decisions",
	}, []string{"result"})
}

// NewAssignmentsCreatedTotal returns a counter of created courier assignments labelled by source (manual, auto)
func NewAssignmentsCreatedTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignments_created_total",
		Help: "Total number of courier assignments created",
	}, []string{"source"})
}

// NewStateTransitionsTotal returns a counter of pickup and delivery transitions labelled by machine and target state
func NewStateTransitionsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_transitions_total",
		Help: "Total number of fulfillment state transitions",
	}, []string{"machine", "to"})
}

// NewPickupAlertsTotal returns a counter of reported pickup failures
func NewPickupAlertsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pickup_alerts_total",
		Help: "Total number of pickup failures reported to operators",
	})
}

// NewNotificationsFailedTotal returns a counter of notifications that could not be published
func NewNotificationsFailedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of notifications that could not be published",
	})
}
