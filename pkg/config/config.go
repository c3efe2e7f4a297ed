package config

import (
	"fmt"
	"os"
	"regexp"
	"staybook/pkg/client"
	"staybook/pkg/logger"
	"strconv"
	"time"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	StoreBackend    string
	CatalogSeedFile string

	HoldDuration        time.Duration
	SweepInterval       time.Duration
	SweepBatchSize      int
	LockWaitTimeout     time.Duration
	LockTTL             time.Duration
	DefaultCurrency     string
	MaxStayNights       int
	MaxAvailabilityDays int

	PaymentGatewayURL     string
	PaymentGatewayTimeout time.Duration
	PaymentWebhookSecret  string
	ReconcileInterval     time.Duration

	KafkaEnabled         bool
	BookingEventsTopic   string
	PaymentOutcomesTopic string
	PaymentOutcomesGroup string
	PaymentOutcomesDLQ   string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		StoreBackend:    getEnvStr(EnvStoreBackend, DefaultStoreBackend),
		CatalogSeedFile: getEnvStr(EnvCatalogSeedFile, ""),

		HoldDuration:        getEnvDuration(EnvHoldDuration, DefaultHoldDuration),
		SweepInterval:       getEnvDuration(EnvSweepInterval, DefaultSweepInterval),
		SweepBatchSize:      getEnvNum(EnvSweepBatchSize, DefaultSweepBatchSize),
		LockWaitTimeout:     getEnvDuration(EnvLockWaitTimeout, DefaultLockWaitTimeout),
		LockTTL:             getEnvDuration(EnvLockTTL, DefaultLockTTL),
		DefaultCurrency:     getEnvStr(EnvDefaultCurrency, DefaultCurrency),
		MaxStayNights:       getEnvNum(EnvMaxStayNights, DefaultMaxStayNights),
		MaxAvailabilityDays: getEnvNum(EnvMaxAvailabilityDays, DefaultMaxAvailabilityDays),

		PaymentGatewayURL:     getEnvStr(EnvPaymentGatewayURL, ""),
		PaymentGatewayTimeout: getEnvDuration(EnvPaymentGatewayTimeout, DefaultPaymentGatewayTimeout),
		PaymentWebhookSecret:  getEnvStr(EnvPaymentWebhookSecret, ""),
		ReconcileInterval:     getEnvDuration(EnvReconcileInterval, DefaultReconcileInterval),

		KafkaEnabled:         getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		BookingEventsTopic:   getEnvStr(EnvBookingEventsTopic, DefaultBookingEventsTopic),
		PaymentOutcomesTopic: getEnvStr(EnvPaymentOutcomesTopic, DefaultPaymentOutcomesTopic),
		PaymentOutcomesGroup: getEnvStr(EnvPaymentOutcomesGroup, DefaultPaymentOutcomesGroup),
		PaymentOutcomesDLQ:   getEnvStr(EnvPaymentOutcomesDLQ, DefaultPaymentOutcomesDLQ),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) UsesMongo() bool {
	return cfg.StoreBackend == StoreMongo
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.StoreBackend != StoreMongo && cfg.StoreBackend != StoreMemory {
		errors = append(errors, fmt.Sprintf("StoreBackend must be one of [mongo, memory], got: %s", cfg.StoreBackend))
	}

	if cfg.StoreBackend == StoreMongo {
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}

		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}

		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	}

	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.HoldDuration <= 0 {
		errors = append(errors, fmt.Sprintf("HoldDuration must be positive, got: %s", cfg.HoldDuration))
	}
	if cfg.SweepInterval <= 0 {
		errors = append(errors, fmt.Sprintf("SweepInterval must be positive, got: %s", cfg.SweepInterval))
	}
	if cfg.SweepBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("SweepBatchSize must be positive, got: %d", cfg.SweepBatchSize))
	}
	if cfg.LockWaitTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("LockWaitTimeout must be positive, got: %s", cfg.LockWaitTimeout))
	}
	if cfg.LockTTL <= cfg.LockWaitTimeout {
		errors = append(errors, fmt.Sprintf("LockTTL (%s) must be greater than LockWaitTimeout (%s)", cfg.LockTTL, cfg.LockWaitTimeout))
	}
	if len(cfg.DefaultCurrency) != 3 {
		errors = append(errors, fmt.Sprintf("DefaultCurrency must be a 3-letter code, got: %s", cfg.DefaultCurrency))
	}
	if cfg.MaxStayNights <= 0 {
		errors = append(errors, fmt.Sprintf("MaxStayNights must be positive, got: %d", cfg.MaxStayNights))
	}
	if cfg.MaxAvailabilityDays <= 0 {
		errors = append(errors, fmt.Sprintf("MaxAvailabilityDays must be positive, got: %d", cfg.MaxAvailabilityDays))
	}
	if cfg.PaymentGatewayTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("PaymentGatewayTimeout must be positive, got: %s", cfg.PaymentGatewayTimeout))
	}
	if cfg.ReconcileInterval <= 0 {
		errors = append(errors, fmt.Sprintf("ReconcileInterval must be positive, got: %s", cfg.ReconcileInterval))
	}

	if cfg.KafkaEnabled {
		if cfg.BookingEventsTopic == "" {
			errors = append(errors, "BookingEventsTopic cannot be empty when Kafka is enabled")
		}
		if cfg.PaymentOutcomesTopic == "" {
			errors = append(errors, "PaymentOutcomesTopic cannot be empty when Kafka is enabled")
		}
		if cfg.PaymentOutcomesGroup == "" {
			errors = append(errors, "PaymentOutcomesGroup cannot be empty when Kafka is enabled")
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"store_backend", cfg.StoreBackend,
		"catalog_seed_file", cfg.CatalogSeedFile,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"hold_duration", cfg.HoldDuration,
		"sweep_interval", cfg.SweepInterval,
		"sweep_batch_size", cfg.SweepBatchSize,
		"lock_wait_timeout", cfg.LockWaitTimeout,
		"lock_ttl", cfg.LockTTL,
		"default_currency", cfg.DefaultCurrency,
		"max_stay_nights", cfg.MaxStayNights,
		"payment_gateway_url", cfg.PaymentGatewayURL,
		"payment_webhook_secret_set", cfg.PaymentWebhookSecret != "",
		"reconcile_interval", cfg.ReconcileInterval,
		"kafka_enabled", cfg.KafkaEnabled,
		"booking_events_topic", cfg.BookingEventsTopic,
		"payment_outcomes_topic", cfg.PaymentOutcomesTopic,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
