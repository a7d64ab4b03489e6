package app

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"go.uber.org/dig"

	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/notify"
)

const shutdownTimeout = 15 * time.Second

// Runner runs the HTTP server
type Runner struct {
	runFn func(*dig.Container) error
}

// NewRunner returns a new Runner
func NewRunner() *Runner {
	return &Runner{runFn: run}
}

// MustRun starts the HTTP server using the provided DI container
func MustRun(container *dig.Container) {
	NewRunner().MustRun(container)
}

// MustRun starts the HTTP server and blocks until shutdown
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}

	var logger logx.Logger = logx.Nop()
	_ = container.Invoke(func(l logx.Logger) { logger = l })

	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("shutdown requested, exiting")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("startup aborted: startup timeout exceeded")
	default:
		log.Fatalf("run error: %v", err)
	}
}

type runIn struct {
	dig.In

	Ctx          context.Context
	Logger       logx.Logger
	Server       *http.Server
	Pprof        *http.Server     `name:"pprof_server" optional:"true"`
	Notifier     notify.Notifier  `optional:"true"`
	StoreCloser  storeCloser      `optional:"true"`
	OrdersCloser ordersConnCloser `optional:"true"`
}

func run(container *dig.Container) error {
	return container.Invoke(func(in runIn) error {
		startServer(in.Server, in.Logger, "service-fulfillment")
		if in.Pprof != nil {
			startServer(in.Pprof, in.Logger, "pprof")
		}
		waitForShutdown(in.Ctx, in.Logger)
		gracefulShutdown(in.Server, in.Logger, shutdownTimeout)
		if in.Pprof != nil {
			gracefulShutdown(in.Pprof, in.Logger, shutdownTimeout)
		}
		closeResources(in)
		return in.Ctx.Err()
	})
}

func startServer(server *http.Server, logger logx.Logger, name string) {
	go func() {
		logger.Info("listening", logx.String("server", name), logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen error", logx.String("server", name), logx.Err(err))
		}
	}()
}

func waitForShutdown(ctx context.Context, logger logx.Logger) {
	<-ctx.Done()
	logger.Info("shutting down service-fulfillment")
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("graceful shutdown error", logx.String("addr", srv.Addr), logx.Err(err))
	}
}

func closeResources(in runIn) {
	if err := in.Server.Close(); err != nil {
		in.Logger.Warn("server close error", logx.Err(err))
	}
	if c, ok := in.Notifier.(io.Closer); ok {
		if err := c.Close(); err != nil {
			in.Logger.Warn("notifier close error", logx.Err(err))
		}
	}
	if in.OrdersCloser != nil {
		if err := in.OrdersCloser(); err != nil {
			in.Logger.Warn("orders close error", logx.Err(err))
		}
	}
	if in.StoreCloser != nil {
		in.StoreCloser()
	}
}
