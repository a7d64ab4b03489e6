package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"

	"service-fulfillment/internal/logx"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config stores service settings.
type Config struct {
	Port          int
	DB            DB
	Store         Store
	Kafka         Kafka
	OrdersGateway OrdersGateway
	Scheduler     Scheduler
	RateLimit     RateLimit
	Pprof         Pprof
	Log           Log
}

// DB stores PostgreSQL connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN returns the PostgreSQL connection string.
func (d DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Store stores the storage driver and per-call limits.
type Store struct {
	Driver         string
	OpTimeout      time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// Kafka stores broker and topic settings. Empty brokers disable Kafka.
type Kafka struct {
	Brokers            []string
	GroupID            string
	OrdersTopic        string
	NotificationsTopic string
}

// OrdersGateway stores the order service client settings.
type OrdersGateway struct {
	Host        string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Scheduler stores assignment and calendar settings.
type Scheduler struct {
	Timezone        string
	AutoAssignCron  string
	CourierCapacity int
	DailyLoadLimit  int
	RequireVerified bool
}

// Location resolves Timezone.
func (s Scheduler) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// RateLimit stores HTTP rate limiter settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Log selects the level and encoding of the service log.
type Log struct {
	Level  string
	Format string
}

// Pprof stores the pprof side server settings.
type Pprof struct {
	Enabled bool
	Addr    string
	User    string
	Pass    string
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	fs.StringVar(&cfg.Store.Driver, "store", cfg.Store.Driver, "storage driver: postgres or memory")
	fs.StringVar(&cfg.Scheduler.Timezone, "timezone", cfg.Scheduler.Timezone, "operating timezone")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	var errs []error
	cfg := &Config{
		Port: envInt("PORT", defaultPort, &errs),
		DB: DB{
			Host: envString("POSTGRES_HOST", defaultDB.Host),
			Port: envString("POSTGRES_PORT", defaultDB.Port),
			User: envString("POSTGRES_USER", defaultDB.User),
			Pass: envString("POSTGRES_PASSWORD", defaultDB.Pass),
			Name: envString("POSTGRES_DB", defaultDB.Name),
		},
		Store: Store{
			Driver:         envString("STORE_DRIVER", defaultStore.Driver),
			OpTimeout:      envDuration("STORE_OP_TIMEOUT", defaultStore.OpTimeout, &errs),
			RetryAttempts:  envInt("STORE_RETRY_ATTEMPTS", defaultStore.RetryAttempts, &errs),
			RetryBaseDelay: envDuration("STORE_RETRY_BASE_DELAY", defaultStore.RetryBaseDelay, &errs),
			RetryMaxDelay:  envDuration("STORE_RETRY_MAX_DELAY", defaultStore.RetryMaxDelay, &errs),
		},
		Kafka: Kafka{
			Brokers:            envList("KAFKA_BROKERS"),
			GroupID:            envString("KAFKA_GROUP_ID", defaultKafka.GroupID),
			OrdersTopic:        envString("KAFKA_ORDERS_TOPIC", defaultKafka.OrdersTopic),
			NotificationsTopic: envString("KAFKA_NOTIFICATIONS_TOPIC", defaultKafka.NotificationsTopic),
		},
		OrdersGateway: OrdersGateway{
			Host:        envString("ORDER_SERVICE_HOST", defaultOrderServiceHost),
			MaxAttempts: envInt("ORDERS_GATEWAY_MAX_ATTEMPTS", defaultOrdersGateway.MaxAttempts, &errs),
			BaseDelay:   envDuration("ORDERS_GATEWAY_BASE_DELAY", defaultOrdersGateway.BaseDelay, &errs),
			MaxDelay:    envDuration("ORDERS_GATEWAY_MAX_DELAY", defaultOrdersGateway.MaxDelay, &errs),
		},
		Scheduler: Scheduler{
			Timezone:        envString("SCHEDULER_TIMEZONE", defaultScheduler.Timezone),
			AutoAssignCron:  envString("SCHEDULER_AUTO_ASSIGN_CRON", defaultScheduler.AutoAssignCron),
			CourierCapacity: envInt("SCHEDULER_COURIER_CAPACITY", defaultScheduler.CourierCapacity, &errs),
			DailyLoadLimit:  envInt("SCHEDULER_DAILY_LOAD_LIMIT", defaultScheduler.DailyLoadLimit, &errs),
			RequireVerified: envBool("SCHEDULER_REQUIRE_VERIFIED", defaultScheduler.RequireVerified, &errs),
		},
		RateLimit: RateLimit{
			Enabled:    envBool("RATE_LIMIT_ENABLED", defaultRateLimit.Enabled, &errs),
			Rate:       envFloat("RATE_LIMIT_RATE", defaultRateLimit.Rate, &errs),
			Burst:      envInt("RATE_LIMIT_BURST", defaultRateLimit.Burst, &errs),
			TTL:        envDuration("RATE_LIMIT_TTL", defaultRateLimit.TTL, &errs),
			MaxBuckets: envInt("RATE_LIMIT_MAX_BUCKETS", defaultRateLimit.MaxBuckets, &errs),
		},
		Pprof: Pprof{
			Enabled: envBool("PPROF_ENABLED", defaultPprof.Enabled, &errs),
			Addr:    envString("PPROF_ADDR", defaultPprof.Addr),
			User:    envString("PPROF_USER", ""),
			Pass:    envString("PPROF_PASS", ""),
		},
		Log: Log{
			Level:  envString("LOG_LEVEL", defaultLog.Level),
			Format: envString("LOG_FORMAT", defaultLog.Format),
		},
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	if p, err := strconv.Atoi(c.DB.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid POSTGRES_PORT: %q", c.DB.Port))
	}
	switch c.Store.Driver {
	case DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver: %q", c.Store.Driver))
	}
	if c.Store.OpTimeout <= 0 {
		errs = append(errs, fmt.Errorf("STORE_OP_TIMEOUT must be positive"))
	}
	if _, err := c.Scheduler.Location(); err != nil {
		errs = append(errs, fmt.Errorf("invalid SCHEDULER_TIMEZONE: %w", err))
	}
	if c.Scheduler.AutoAssignCron != "" {
		if _, err := cron.ParseStandard(c.Scheduler.AutoAssignCron); err != nil {
			errs = append(errs, fmt.Errorf("invalid SCHEDULER_AUTO_ASSIGN_CRON: %w", err))
		}
	}
	if c.Scheduler.CourierCapacity < 1 || c.Scheduler.CourierCapacity > 200 {
		errs = append(errs, fmt.Errorf("SCHEDULER_COURIER_CAPACITY must be within 1..200"))
	}
	if c.Scheduler.DailyLoadLimit < 0 {
		errs = append(errs, fmt.Errorf("SCHEDULER_DAILY_LOAD_LIMIT must not be negative"))
	}
	if _, err := logx.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logx.FormatJSON, logx.FormatText:
	default:
		errs = append(errs, fmt.Errorf("invalid LOG_FORMAT: %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func envFloat(key string, def float64, errs *[]error) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return f
}

func envBool(key string, def bool, errs *[]error) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return b
}

func envDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}
