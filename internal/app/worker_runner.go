package app

import (
	"context"
	"errors"
	"io"

	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	"service-fulfillment/internal/jobs"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/notify"
	"service-fulfillment/internal/transport/kafka"
)

// errNothingToRun is returned when the worker has neither a consumer nor a scheduler.
var errNothingToRun = errors.New("worker misconfigured: kafka consumer and auto assign job are both missing")

// WorkerRunner runs the background worker
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun starts the worker using the provided DI container
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

type workerIn struct {
	dig.In

	Ctx          context.Context
	Logger       logx.Logger
	Consumer     *kafka.Consumer     `optional:"true"`
	AutoAssign   *jobs.AutoAssignJob `optional:"true"`
	Notifier     notify.Notifier     `optional:"true"`
	StoreCloser  storeCloser         `optional:"true"`
	OrdersCloser ordersConnCloser    `optional:"true"`
}

func workerRun(in workerIn) error {
	if in.Consumer == nil && in.AutoAssign == nil {
		return errNothingToRun
	}
	defer closeWorker(in)

	g, ctx := errgroup.WithContext(in.Ctx)
	if in.Consumer != nil {
		g.Go(func() error { return in.Consumer.Run(ctx) })
	} else {
		in.Logger.Warn("kafka consumer disabled, only the scheduler runs")
	}
	if in.AutoAssign != nil {
		g.Go(func() error { return in.AutoAssign.Run(ctx) })
	}

	in.Logger.Info("service-fulfillment-worker started")
	return g.Wait()
}

func closeWorker(in workerIn) {
	if in.Consumer != nil {
		if err := in.Consumer.Close(); err != nil {
			in.Logger.Error("kafka close error", logx.Err(err))
		}
	}
	if c, ok := in.Notifier.(io.Closer); ok {
		if err := c.Close(); err != nil {
			in.Logger.Error("notifier close error", logx.Err(err))
		}
	}
	if in.OrdersCloser != nil {
		if err := in.OrdersCloser(); err != nil {
			in.Logger.Error("orders close error", logx.Err(err))
		}
	}
	if in.StoreCloser != nil {
		in.StoreCloser()
	}
}
