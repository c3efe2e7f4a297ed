package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"staybook/pkg/config"
	"staybook/pkg/contracts"
	"staybook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

// Worker is a background loop that runs until its context is cancelled.
type Worker func(ctx context.Context)

type namedWorker struct {
	name string
	run  Worker
}

type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore *middleware.ReplayCache
	rateLimiter      *middleware.GuestRateLimiter
	healthHandler    http.Handler
	appHTTPHandler   http.Handler
	workers          []namedWorker
	closers          []io.Closer
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

// SetApp mounts the health checks with minimal middleware and the API handlers
// behind the full stack.
func (a *Application) SetApp(health contracts.Handler, handlers ...contracts.Handler) {
	a.setHealthHandler(health)
	a.setAppHandler(handlers)
	a.setAppServer()
}

// AddWorker registers a loop started by Run and stopped on shutdown.
func (a *Application) AddWorker(name string, w Worker) {
	a.workers = append(a.workers, namedWorker{name: name, run: w})
}

// AddCloser registers a resource closed after workers and the server stop.
func (a *Application) AddCloser(c io.Closer) {
	a.closers = append(a.closers, c)
}

func (a *Application) setHealthHandler(health contracts.Handler) {
	healthRouter := httprouter.New()
	health.RegisterRoutes(healthRouter)

	var h http.Handler = healthRouter
	h = middleware.RequestLogging(a.cfg.Log)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	a.healthHandler = h
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(handlers []contracts.Handler) {
	appRouter := httprouter.New()
	for _, handler := range handlers {
		handler.RegisterRoutes(appRouter)
	}

	a.idempotencyStore = middleware.NewReplayCache(a.cfg.IdempotencyTTL)
	a.rateLimiter = middleware.NewGuestRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.GuestIDExtractor,
		a.cfg.Log,
	)

	var h http.Handler = appRouter
	h = middleware.Idempotency(a.idempotencyStore, middleware.HeaderIdempotencyKey)(h)
	h = middleware.RequestTimeout(a.cfg.RequestTimeout)(h)
	h = middleware.GuestRateLimit(a.rateLimiter)(h)
	h = middleware.ContentTypeValidation(a.cfg.Log)(h)
	h = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(h)
	h = middleware.RequestLogging(a.cfg.Log)(h)
	h = middleware.Recovery(a.cfg.Log)(h)
	a.appHTTPHandler = h
	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/", a.appHTTPHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler exposes the composed HTTP handler.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	a.startWorkers(ctx, &wg)

	serverErrors := make(chan error, 1)
	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Error("HTTP server failed", "error", err)
		cancel()
		wg.Wait()
		a.closeResources()
		os.Exit(1)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown(cancel, &wg)
	}
}

// RunWorkers runs only the background workers until a shutdown signal.
func (a *Application) RunWorkers() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	a.startWorkers(ctx, &wg)

	<-ctx.Done()
	a.cfg.Log.Info("Shutdown signal received, stopping workers")
	wg.Wait()
	a.closeResources()
	a.cfg.Log.Info("Workers stopped")
}

func (a *Application) startWorkers(ctx context.Context, wg *sync.WaitGroup) {
	for _, w := range a.workers {
		wg.Add(1)
		go func(w namedWorker) {
			defer wg.Done()
			a.cfg.Log.Info("Starting background worker", "worker", w.name)
			w.run(ctx)
			a.cfg.Log.Info("Background worker exited", "worker", w.name)
		}(w)
	}
}

func (a *Application) gracefulShutdown(cancel context.CancelFunc, wg *sync.WaitGroup) {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancelTimeout := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancelTimeout()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	cancel()
	wg.Wait()
	if a.idempotencyStore != nil {
		a.idempotencyStore.Stop()
	}
	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}
	a.cfg.Log.Info("Background workers stopped")

	a.closeResources()
	a.cfg.Log.Info("Server stopped gracefully")
}

func (a *Application) closeResources() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.cfg.Log.Error("Failed to close resource", "error", err)
		}
	}
	if a.cfg.Client != nil {
		a.cfg.Client.GracefulShutdown(a.cfg.Log, a.cfg.ShutdownTimeout)
	}
}
