package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "staybook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	DefaultStoreBackend = StoreMongo

	DefaultHoldDuration        = 15 * time.Minute
	DefaultSweepInterval       = 1 * time.Minute
	DefaultSweepBatchSize      = 200
	DefaultLockWaitTimeout     = 5 * time.Second
	DefaultLockTTL             = 30 * time.Second
	DefaultCurrency            = "KZT"
	DefaultMaxStayNights       = 30
	DefaultMaxAvailabilityDays = 366

	DefaultPaymentGatewayTimeout = 10 * time.Second
	DefaultReconcileInterval     = 2 * time.Minute

	DefaultKafkaEnabled         = false
	DefaultBookingEventsTopic   = "bookings.events"
	DefaultPaymentOutcomesTopic = "payments.outcomes"
	DefaultPaymentOutcomesGroup = "staybook-reconciler"
	DefaultPaymentOutcomesDLQ   = "payments.outcomes.dlq"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)
