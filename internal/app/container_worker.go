package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/dig"

	"service-fulfillment/internal/config"
	"service-fulfillment/internal/jobs"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/ports/fulfillmenttx"
	"service-fulfillment/internal/service/assignment"
	"service-fulfillment/internal/service/fulfillment"
	"service-fulfillment/internal/service/orders"
	"service-fulfillment/internal/storeretry"
	"service-fulfillment/internal/transport/kafka"
)

// MustBuildWorkerContainer builds the container of the background worker:
// the Kafka orders consumer and the auto-assign scheduler.
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuildWorker(ctx)
}

// MustBuildWorker builds the worker container or exits.
func (b *ContainerBuilder) MustBuildWorker(ctx context.Context) *dig.Container {
	container, err := b.buildWorker(ctx)
	if err != nil {
		b.logFatalf("failed to build worker container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) buildWorker(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerStore(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if err := registerDomainServices(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerOrdersGateway(container); err != nil {
		return nil, fmt.Errorf("orders gateway: %w", err)
	}
	if err := registerWorker(container); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	return container, nil
}

type consumerIn struct {
	dig.In

	Config    *config.Config
	Logger    logx.Logger
	Processor *orders.Processor
	Orders    fulfillment.OrderStatusSource `optional:"true"`
}

func newOrdersConsumer(in consumerIn) (*kafka.Consumer, error) {
	k := in.Config.Kafka
	var lookup orderLookup
	if in.Orders != nil {
		lookup = in.Orders
	}
	handler := makeOrdersKafka(in.Processor, lookup, in.Logger)
	c, err := kafka.NewConsumer(in.Logger, k.Brokers, k.GroupID, k.OrdersTopic, handler)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return c, nil
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		func(store fulfillmenttx.Store, retry *storeretry.Retrier, logger logx.Logger) *orders.Processor {
			return orders.NewProcessor(store, retry, logger)
		},
		newOrdersConsumer,
		func(cfg *config.Config, engine *assignment.Engine, loc *time.Location, logger logx.Logger) *jobs.AutoAssignJob {
			return jobs.NewAutoAssignJob(engine, cfg.Scheduler.AutoAssignCron, loc, logger)
		},
	)
}
