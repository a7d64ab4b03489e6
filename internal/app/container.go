package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/dig"

	"service-fulfillment/internal/config"
	"service-fulfillment/internal/http/handlers"
	"service-fulfillment/internal/http/pprofserver"
	"service-fulfillment/internal/http/router"
	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/notify"
	"service-fulfillment/internal/ports/fulfillmenttx"
	"service-fulfillment/internal/repository"
	"service-fulfillment/internal/repository/memory"
	"service-fulfillment/internal/service/assignment"
	"service-fulfillment/internal/service/capacity"
	"service-fulfillment/internal/service/courier"
	"service-fulfillment/internal/service/dashboard"
	"service-fulfillment/internal/service/fulfillment"
	"service-fulfillment/internal/service/sector"
	"service-fulfillment/internal/service/slot"
	"service-fulfillment/internal/storeretry"
	"service-fulfillment/internal/transport/kafka"
)

type dbConnectFunc func(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error)

// storeCloser releases the resources held by the selected store.
type storeCloser func()

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect dbConnectFunc
	logFatalf func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect: connectDbWithRetry,
		logFatalf: log.Fatalf,
	}
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(fn dbConnectFunc) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns a new dig container
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

// build builds and returns a new dig container
func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
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
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds and returns a new dig container
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context) error {
	return provideAll(container,
		func() context.Context { return ctx },
		NewLogger,
		config.Load,
		func(cfg *config.Config) (*time.Location, error) {
			return cfg.Scheduler.Location()
		},
		provideMetrics,
	)
}

func registerStore(container *dig.Container, dbConnect dbConnectFunc) error {
	provider := func(ctx context.Context, cfg *config.Config, logger logx.Logger) (fulfillmenttx.Store, storeCloser, error) {
		if cfg.Store.Driver == config.DriverMemory {
			logger.Info("using in-memory store")
			return memory.New(), func() {}, nil
		}
		pool, err := dbConnect(ctx, logger, cfg.DB.DSN(), 10, time.Second)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewStore(pool), pool.Close, nil
	}
	return provideAll(container, provider)
}

type retrierIn struct {
	dig.In

	Config  *config.Config
	Logger  logx.Logger
	Retries prometheus.Counter `name:"store_retries_total" optional:"true"`
}

func newStoreRetrier(in retrierIn) *storeretry.Retrier {
	s := in.Config.Store
	return storeretry.New(storeretry.Config{
		MaxAttempts: s.RetryAttempts,
		BaseDelay:   s.RetryBaseDelay,
		MaxDelay:    s.RetryMaxDelay,
		OpTimeout:   s.OpTimeout,
	}, in.Logger, in.Retries)
}

type notifierIn struct {
	dig.In

	Config *config.Config
	Logger logx.Logger
	Failed prometheus.Counter `name:"notifications_failed_total" optional:"true"`
}

func newNotifier(in notifierIn) (notify.Notifier, error) {
	k := in.Config.Kafka
	n, err := kafka.NewNotifier(in.Logger, k.Brokers, k.NotificationsTopic, in.Failed)
	if err != nil {
		return nil, fmt.Errorf("kafka notifier: %w", err)
	}
	if n == nil {
		in.Logger.Warn("kafka brokers not configured, notifications disabled")
		return notify.Nop(), nil
	}
	return n, nil
}

type fulfillmentIn struct {
	dig.In

	Store       fulfillmenttx.Store
	Retry       *storeretry.Retrier
	Logger      logx.Logger
	Notifier    notify.Notifier
	Orders      fulfillment.OrderStatusSource `optional:"true"`
	Transitions *prometheus.CounterVec        `name:"fulfillment_transitions_total" optional:"true"`
	Alerts      prometheus.Counter            `name:"pickup_alerts_total" optional:"true"`
}

func newFulfillmentService(in fulfillmentIn) *fulfillment.Service {
	svc := fulfillment.NewService(in.Store, in.Retry, in.Logger, in.Notifier)
	if in.Orders != nil {
		svc.WithOrderStatus(in.Orders)
	}
	if in.Transitions != nil {
		svc.WithMetrics(in.Transitions, in.Alerts)
	}
	return svc
}

type engineIn struct {
	dig.In

	Config   *config.Config
	Store    fulfillmenttx.Store
	Retry    *storeretry.Retrier
	Logger   logx.Logger
	Notifier notify.Notifier
	Created  *prometheus.CounterVec `name:"assignments_created_total" optional:"true"`
}

func newAssignmentEngine(in engineIn) *assignment.Engine {
	sc := in.Config.Scheduler
	policy := assignment.Policy{
		DefaultCapacity: sc.CourierCapacity,
		DailyLoadLimit:  sc.DailyLoadLimit,
		RequireVerified: sc.RequireVerified,
	}
	if in.Created == nil {
		return assignment.NewEngine(in.Store, policy, in.Retry, in.Logger, in.Notifier, nil)
	}
	return assignment.NewEngine(in.Store, policy, in.Retry, in.Logger, in.Notifier, in.Created)
}

type ledgerIn struct {
	dig.In

	Store      fulfillmenttx.Store
	Retry      *storeretry.Retrier
	Logger     logx.Logger
	Admissions *prometheus.CounterVec `name:"slot_admissions_total" optional:"true"`
}

func newCapacityLedger(in ledgerIn) *capacity.Ledger {
	if in.Admissions == nil {
		return capacity.NewLedger(in.Store, in.Retry, in.Logger, nil)
	}
	return capacity.NewLedger(in.Store, in.Retry, in.Logger, in.Admissions)
}

func registerDomainServices(container *dig.Container) error {
	return provideAll(container,
		newStoreRetrier,
		newNotifier,
		func(store fulfillmenttx.Store, retry *storeretry.Retrier, logger logx.Logger) *sector.Service {
			return sector.NewService(store, retry, logger)
		},
		func(store fulfillmenttx.Store, retry *storeretry.Retrier, logger logx.Logger) *slot.Service {
			return slot.NewService(store, retry, logger)
		},
		func(store fulfillmenttx.Store, retry *storeretry.Retrier, logger logx.Logger) *courier.Service {
			return courier.NewService(store, retry, logger)
		},
		func(store fulfillmenttx.Store, retry *storeretry.Retrier, logger logx.Logger, loc *time.Location) *dashboard.Projector {
			return dashboard.NewProjector(store, retry, logger, loc)
		},
		newCapacityLedger,
		newAssignmentEngine,
		newFulfillmentService,
	)
}

type pprofOut struct {
	dig.Out

	Server *http.Server `name:"pprof_server"`
}

func newPprofServer(cfg *config.Config) pprofOut {
	p := cfg.Pprof
	if !p.Enabled {
		return pprofOut{}
	}
	return pprofOut{Server: pprofserver.NewServer(pprofserver.Config{
		Addr: p.Addr,
		User: p.User,
		Pass: p.Pass,
	})}
}

type metricsHandlerOut struct {
	dig.Out

	Handler http.Handler `name:"metrics"`
}

func newMetricsHandler() metricsHandlerOut {
	return metricsHandlerOut{Handler: promhttp.Handler()}
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	return provideAll(container,
		handlers.New,
		handlers.NewClock,
		func(logger logx.Logger, uc *courier.Service) *handlers.CourierHandler {
			return handlers.NewCourierHandler(logger, uc)
		},
		func(logger logx.Logger, uc *sector.Service) *handlers.SectorHandler {
			return handlers.NewSectorHandler(logger, uc)
		},
		func(logger logx.Logger, clock handlers.Clock, slots *slot.Service, ledger *capacity.Ledger) *handlers.SlotHandler {
			return handlers.NewSlotHandler(logger, clock, slots, ledger)
		},
		func(logger logx.Logger, uc *assignment.Engine) *handlers.AssignmentHandler {
			return handlers.NewAssignmentHandler(logger, uc)
		},
		func(logger logx.Logger, uc *fulfillment.Service) *handlers.FulfillmentHandler {
			return handlers.NewFulfillmentHandler(logger, uc)
		},
		func(logger logx.Logger, clock handlers.Clock, uc *dashboard.Projector) *handlers.DashboardHandler {
			return handlers.NewDashboardHandler(logger, clock, uc)
		},
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		newMetricsHandler,
		router.New,
		serverProvider,
		newPprofServer,
	)
}
