package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvStoreBackend    = "STORE_BACKEND"
	EnvCatalogSeedFile = "CATALOG_SEED_FILE"

	EnvHoldDuration        = "HOLD_DURATION"
	EnvSweepInterval       = "SWEEP_INTERVAL"
	EnvSweepBatchSize      = "SWEEP_BATCH_SIZE"
	EnvLockWaitTimeout     = "LOCK_WAIT_TIMEOUT"
	EnvLockTTL             = "LOCK_TTL"
	EnvDefaultCurrency     = "DEFAULT_CURRENCY"
	EnvMaxStayNights       = "MAX_STAY_NIGHTS"
	EnvMaxAvailabilityDays = "MAX_AVAILABILITY_DAYS"

	EnvPaymentGatewayURL     = "PAYMENT_GATEWAY_URL"
	EnvPaymentGatewayTimeout = "PAYMENT_GATEWAY_TIMEOUT"
	EnvPaymentWebhookSecret  = "PAYMENT_WEBHOOK_SECRET"
	EnvReconcileInterval     = "RECONCILE_INTERVAL"

	EnvKafkaEnabled         = "KAFKA_ENABLED"
	EnvBookingEventsTopic   = "KAFKA_BOOKING_EVENTS_TOPIC"
	EnvPaymentOutcomesTopic = "KAFKA_PAYMENT_OUTCOMES_TOPIC"
	EnvPaymentOutcomesGroup = "KAFKA_PAYMENT_OUTCOMES_GROUP"
	EnvPaymentOutcomesDLQ   = "KAFKA_PAYMENT_OUTCOMES_DLQ"
)
