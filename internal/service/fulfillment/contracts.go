//go:generate mockgen -source=contracts.go -destination=fulfillment_mocks_test.go -package=fulfillment_test

package fulfillment

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	ordergw "service-fulfillment/internal/gateway/orders"
	"service-fulfillment/internal/ports/fulfillmenttx"
)

type fulfillmentStore interface {
	fulfillmenttx.Runner
}

// OrderStatusSource reports the current status of an order in the orders service.
type OrderStatusSource interface {
	GetByID(ctx context.Context, id string) (*ordergw.Order, error)
}

type labeledCounter interface {
	WithLabelValues(lvs ...string) prometheus.Counter
}

type counter interface {
	Inc()
}
