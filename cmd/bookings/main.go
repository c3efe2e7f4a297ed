package main

import (
	"context"
	"errors"

	"staybook/internal/engine"
	"staybook/pkg/app"
	"staybook/pkg/config"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Bookings service")
	eng, err := engine.Build(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize booking engine", "error", err)
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(eng.HealthHandler(), eng.Handlers()...)

	serverApp.AddWorker("sweeper", eng.Sweeper.Start)
	serverApp.AddWorker("payment-poller", eng.Reconciler.Start)

	consumer, err := eng.PaymentConsumer()
	if err != nil {
		cfg.Log.Fatal("Failed to initialize payment consumer", "error", err)
	}
	if consumer != nil {
		serverApp.AddWorker("payment-consumer", func(ctx context.Context) {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				cfg.Log.Error("Payment consumer stopped", "error", err)
			}
		})
		serverApp.AddCloser(consumer)
	}
	for _, c := range eng.Closers() {
		serverApp.AddCloser(c)
	}

	serverApp.Run()
}
