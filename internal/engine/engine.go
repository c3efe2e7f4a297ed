// Package engine wires the booking engine for a configured store backend.
package engine

import (
	"fmt"
	"io"

	bookinghandler "staybook/internal/bookings/handler"
	"staybook/internal/bookings/repository"
	"staybook/internal/bookings/service"
	"staybook/internal/bookings/validator"
	calendarhandler "staybook/internal/calendar/handler"
	calendarrepo "staybook/internal/calendar/repository"
	calendarservice "staybook/internal/calendar/service"
	"staybook/internal/health"
	"staybook/internal/notifications"
	"staybook/internal/payments/gateway"
	paymentshandler "staybook/internal/payments/handler"
	"staybook/internal/payments/reconciler"
	pricingrepo "staybook/internal/pricing/repository"
	pricingservice "staybook/internal/pricing/service"
	"staybook/internal/sweeper"
	"staybook/pkg/clock"
	"staybook/pkg/config"
	"staybook/pkg/contracts"
	"staybook/pkg/db"
	"staybook/pkg/db/memory"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/kafka"
	kafka_config "staybook/pkg/kafka/config"
	kafka_middleware "staybook/pkg/kafka/middleware"
	"staybook/pkg/lock"
	"staybook/pkg/model"
)

type Engine struct {
	Bookings   service.BookingService
	Calendar   calendarservice.CalendarService
	Sweeper    *sweeper.Sweeper
	Reconciler *reconciler.Reconciler
	Notifier   notifications.Notifier
	Metrics    *kafka_middleware.Metrics

	cfg      *config.Config
	kafkaCfg *kafka_config.Config
}

type stores struct {
	bookings repository.BookingRepository
	calendar calendarrepo.CalendarRepository
	catalog  pricingrepo.CatalogRepository
	locker   lock.Locker
	tx       db.TransactionManager
}

// Build connects the configured backends and assembles the services.
func Build(cfg *config.Config) (*Engine, error) {
	clk := clock.System()
	v := validator.NewBookingValidator(cfg.Log)

	st, err := buildStores(cfg, clk, v)
	if err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg}
	e.Notifier, err = e.buildNotifier()
	if err != nil {
		return nil, err
	}

	gw := buildGateway(cfg)
	pricing := pricingservice.NewPricingService(st.catalog, cfg)

	e.Bookings = service.NewBookingService(service.Dependencies{
		Bookings:  st.bookings,
		Calendar:  st.calendar,
		Catalog:   st.catalog,
		Pricing:   pricing,
		Locker:    st.locker,
		Tx:        st.tx,
		Validator: v,
		Notifier:  e.Notifier,
		Gateway:   gw,
		Clock:     clk,
	}, cfg)
	e.Calendar = calendarservice.NewCalendarService(st.calendar, st.catalog, pricing, st.locker, st.tx, v, cfg)
	e.Sweeper = sweeper.New(st.bookings, e.Bookings, clk, cfg)
	e.Reconciler = reconciler.New(reconciler.Dependencies{
		Bookings:  e.Bookings,
		Finder:    st.bookings,
		Gateway:   gw,
		Notifier:  e.Notifier,
		Validator: v,
		Clock:     clk,
	}, cfg)

	cfg.Log.Info("Booking engine initialized", "store_backend", cfg.StoreBackend, "kafka_enabled", cfg.KafkaEnabled)
	return e, nil
}

func buildStores(cfg *config.Config, clk clock.Clock, v *validator.BookingValidator) (*stores, error) {
	if cfg.UsesMongo() {
		cfg.SetMongo()
		return &stores{
			bookings: repository.NewMongoBookingRepository(cfg),
			calendar: calendarrepo.NewMongoCalendarRepository(cfg),
			catalog:  pricingrepo.NewMongoCatalogRepository(cfg),
			locker:   calendarrepo.NewMongoPropertyLocker(cfg),
			tx:       mongotx.NewTransactionManager(cfg.Client.Mongo),
		}, nil
	}

	catalog := pricingrepo.NewMemoryCatalogRepository()
	if cfg.CatalogSeedFile != "" {
		if err := catalog.LoadFile(cfg.CatalogSeedFile, v, clk.Now()); err != nil {
			return nil, err
		}
		cfg.Log.Info("Catalog seeded", "file", cfg.CatalogSeedFile)
	}
	cfg.Log.Warn("Using in-memory store, state is lost on restart and not shared between processes")

	return &stores{
		bookings: repository.NewMemoryBookingRepository(clk),
		calendar: calendarrepo.NewMemoryCalendarRepository(clk),
		catalog:  catalog,
		locker:   lock.NewKeyedMutex(cfg.LockWaitTimeout),
		tx:       memory.NewTransactionManager(),
	}, nil
}

func buildGateway(cfg *config.Config) gateway.Gateway {
	switch {
	case cfg.PaymentGatewayURL != "":
		return gateway.NewHTTPGateway(cfg.PaymentGatewayURL, cfg.PaymentGatewayTimeout)
	case !cfg.UsesMongo():
		cfg.Log.Warn("No payment gateway configured, using the in-process fake")
		return gateway.NewFake(model.PaymentStatusSuccessful)
	default:
		cfg.Log.Warn("No payment gateway configured, payment initiation is disabled")
		return nil
	}
}

func (e *Engine) buildNotifier() (notifications.Notifier, error) {
	if !e.cfg.KafkaEnabled {
		return notifications.NewLogNotifier(e.cfg.Log), nil
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		return nil, err
	}
	e.kafkaCfg = kafkaCfg
	e.kafkaCfg.LogConfiguration(e.cfg.Log.Info)
	e.Metrics = kafka_middleware.NewMetrics()

	producer, err := kafka.NewProducer(e.kafkaCfg, e.cfg.BookingEventsTopic, "", e.cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking events producer: %w", err)
	}
	if e.kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(e.cfg.Log))
	}
	producer.Use(e.Metrics.ProducerMiddleware())

	return notifications.NewKafkaNotifier(producer, e.cfg.Log, e.cfg.WriteTimeout), nil
}

// PaymentConsumer subscribes the reconciler to the payment outcomes topic. It
// returns nil when Kafka is disabled.
func (e *Engine) PaymentConsumer() (*kafka.Consumer, error) {
	if !e.cfg.KafkaEnabled {
		return nil, nil
	}

	consumer, err := kafka.NewConsumer(
		e.kafkaCfg,
		e.cfg.PaymentOutcomesTopic,
		e.cfg.PaymentOutcomesGroup,
		e.cfg.PaymentOutcomesDLQ,
		e.Reconciler.HandleMessage,
		e.cfg.Log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment outcomes consumer: %w", err)
	}
	if e.kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(e.cfg.Log))
	}
	consumer.Use(e.Metrics.ConsumerMiddleware())
	return consumer, nil
}

// Handlers returns the API route groups.
func (e *Engine) Handlers() []contracts.Handler {
	return []contracts.Handler{
		bookinghandler.NewBookingHandler(e.Bookings, e.cfg.Log),
		calendarhandler.NewCalendarHandler(e.Calendar, e.cfg.Log),
		paymentshandler.NewWebhookHandler(e.Reconciler, e.cfg.PaymentWebhookSecret, e.cfg.Log),
	}
}

func (e *Engine) HealthHandler() *health.Handler {
	var db health.Pinger
	if e.cfg.UsesMongo() && e.cfg.Client.Mongo != nil {
		db = e.cfg.Client.Mongo
	}
	return health.NewHandler(db, e.cfg.StoreBackend, e.Metrics, e.cfg.Log)
}

// Closers lists resources to release on shutdown.
func (e *Engine) Closers() []io.Closer {
	return []io.Closer{e.Notifier}
}
