package config

import "time"

const defaultPort = 8080

var defaultOrdersGateway = OrdersGateway{
	MaxAttempts: 4,
	BaseDelay:   150 * time.Millisecond,
	MaxDelay:    200 * time.Millisecond,
}

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "test_db",
}

const defaultOrderServiceHost = "localhost:50051"

var defaultStore = Store{
	Driver:         DriverPostgres,
	OpTimeout:      3 * time.Second,
	RetryAttempts:  3,
	RetryBaseDelay: 50 * time.Millisecond,
	RetryMaxDelay:  time.Second,
}

var defaultKafka = Kafka{
	GroupID:            "service-fulfillment",
	OrdersTopic:        "orders",
	NotificationsTopic: "fulfillment-notifications",
}

var defaultScheduler = Scheduler{
	Timezone:        "UTC",
	AutoAssignCron:  "*/15 * * * *",
	CourierCapacity: 30,
	DailyLoadLimit:  0,
	RequireVerified: true,
}

var defaultRateLimit = RateLimit{
	Enabled:    true,
	Rate:       50,
	Burst:      100,
	TTL:        5 * time.Minute,
	MaxBuckets: 10000,
}

var defaultLog = Log{
	Level:  "info",
	Format: "json",
}

var defaultPprof = Pprof{
	Addr: "127.0.0.1:6060",
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultOrdersGateway returns the default orders gateway settings.
func DefaultOrdersGateway() OrdersGateway {
	return defaultOrdersGateway
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultOrderServiceHost returns the default order service host.
func DefaultOrderServiceHost() string {
	return defaultOrderServiceHost
}

// DefaultStore returns the default store settings.
func DefaultStore() Store {
	return defaultStore
}

// DefaultScheduler returns the default scheduler settings.
func DefaultScheduler() Scheduler {
	return defaultScheduler
}
