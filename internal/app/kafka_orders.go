package app

import (
	"context"
	"time"

	ordersgw "service-fulfillment/internal/gateway/orders"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/service/orders"
	"service-fulfillment/internal/transport/kafka"
)

const ordersLookupTimeout = 2 * time.Second

type eventHandler interface {
	Handle(ctx context.Context, e orders.Event) error
}

type orderLookup interface {
	GetByID(ctx context.Context, id string) (*ordersgw.Order, error)
}

// makeOrdersKafka checks every event against the orders service before it is
// projected. An order the service no longer knows is skipped, a canceled one
// is handled as a cancellation. Lookup failures fall back to the event as
// received.
func makeOrdersKafka(h eventHandler, gw orderLookup, logger logx.Logger) kafka.HandleFunc {
	if logger == nil {
		logger = logx.Nop()
	}
	return func(ctx context.Context, event orders.Event) error {
		if gw == nil {
			return h.Handle(ctx, event)
		}

		gwCtx, cancel := context.WithTimeout(ctx, ordersLookupTimeout)
		defer cancel()

		ord, err := gw.GetByID(gwCtx, event.OrderID)
		if err != nil {
			logger.Warn("orders lookup failed, using event status",
				logx.String("order_id", event.OrderID),
				logx.String("status", event.Status),
				logx.Err(err),
			)
			return h.Handle(ctx, event)
		}

		if ord == nil {
			logger.Info("order unknown to orders service, skipping",
				logx.String("order_id", event.OrderID),
			)
			return nil
		}

		if ord.Canceled() {
			event.Status = ord.Status
		}
		return h.Handle(ctx, event)
	}
}
