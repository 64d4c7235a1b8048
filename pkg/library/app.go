// Package library wires the transactional inventory system end to end:
// store, catalog, borrow/purchase engines, job runner, and HTTP server,
// adapted from the teacher's functional-options App in pkg/cedros/app.go
// for embedding or standalone serving.
package library

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/dummy-library/inventory-core/internal/borrow"
	"github.com/dummy-library/inventory-core/internal/catalog"
	"github.com/dummy-library/inventory-core/internal/circuitbreaker"
	"github.com/dummy-library/inventory-core/internal/config"
	"github.com/dummy-library/inventory-core/internal/httpserver"
	"github.com/dummy-library/inventory-core/internal/idempotency"
	"github.com/dummy-library/inventory-core/internal/jobs"
	"github.com/dummy-library/inventory-core/internal/jobs/handlers"
	"github.com/dummy-library/inventory-core/internal/lifecycle"
	"github.com/dummy-library/inventory-core/internal/logger"
	"github.com/dummy-library/inventory-core/internal/metrics"
	"github.com/dummy-library/inventory-core/internal/purchase"
	"github.com/dummy-library/inventory-core/internal/store"
)

// App wires the library-commerce services for reuse or standalone serving.
type App struct {
	Config         *config.Config
	Store          store.Store
	BorrowEngine   *borrow.Engine
	PurchaseEngine *purchase.Engine
	Catalog        *catalog.Cached
	JobRunner      *jobs.Runner

	server           *httpserver.Server
	resourceManager  *lifecycle.Manager
	metricsCollector *metrics.Metrics
}

// Option configures App construction.
type Option func(*options)

type options struct {
	store store.Store
}

// WithStore sets a custom storage backend, bypassing config.Database.Backend.
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// NewApp assembles every collaborator: store, catalog seed, borrow/purchase
// engines, metrics, circuit breaker, idempotency cache, job runner with its
// handlers registered, and the HTTP server wired to the runner's event sink.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("library: config required")
	}

	optState := options{}
	for _, opt := range opts {
		opt(&optState)
	}

	app := &App{
		Config:          cfg,
		resourceManager: lifecycle.NewManager(),
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "inventory-core",
		Environment: cfg.Logging.Environment,
	})

	if optState.store != nil {
		app.Store = optState.store
	} else {
		backingStore, err := store.New(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("library: init store: %w", err)
		}
		app.Store = backingStore
	}
	app.resourceManager.Register("store", app.Store)

	if cfg.Catalog.SeedPath != "" {
		seedBooks, err := catalog.LoadSeedFile(cfg.Catalog.SeedPath)
		if err != nil {
			return nil, fmt.Errorf("library: load catalog seed: %w", err)
		}
		if err := catalog.Seed(context.Background(), app.Store, seedBooks); err != nil {
			return nil, fmt.Errorf("library: seed catalog: %w", err)
		}
		appLogger.Info().Int("books", len(seedBooks)).Str("path", cfg.Catalog.SeedPath).Msg("catalog seeded")
	}
	app.Catalog = catalog.NewCached(app.Store, cfg.Catalog.CacheTTL.Duration)

	app.metricsCollector = metrics.New(prometheus.DefaultRegisterer)

	breakerCfg := circuitbreaker.DefaultConfig()
	breaker := circuitbreaker.New(breakerCfg)

	idempotencyCache := idempotency.New(app.Store)

	app.BorrowEngine = borrow.New(app.Store)
	app.PurchaseEngine = purchase.New(app.Store)

	app.JobRunner = jobs.New(app.Store)
	app.JobRunner.SetMetrics(app.metricsCollector)
	app.JobRunner.Register(store.JobRestock, handlers.Restock)
	app.JobRunner.Register(store.JobReminder, handlers.Reminder)
	app.resourceManager.RegisterFunc("job-runner", func() error {
		app.JobRunner.Stop()
		return nil
	})

	app.server = httpserver.New(httpserver.Deps{
		Config:         cfg,
		Store:          app.Store,
		Catalog:        app.Catalog,
		BorrowEngine:   app.BorrowEngine,
		PurchaseEngine: app.PurchaseEngine,
		Idempotency:    idempotencyCache,
		Metrics:        app.metricsCollector,
		Breaker:        breaker,
		Logger:         appLogger,
	})
	app.JobRunner.SetEventSink(app.server.Hub())
	app.resourceManager.Register("http-server", app.server)

	return app, nil
}

// Start launches the background job runner. The caller is responsible for
// calling ListenAndServe (or Handler, for embedding) separately.
func (a *App) Start(ctx context.Context) {
	a.JobRunner.Start(ctx)
}

// ListenAndServe starts the HTTP server, blocking until it stops.
func (a *App) ListenAndServe() error {
	return a.server.ListenAndServe()
}

// Handler exposes the configured router as an http.Handler, for embedding
// this service's routes inside a larger HTTP server.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Close stops the job runner and HTTP server and releases the store, in
// reverse registration order.
func (a *App) Close() error {
	return a.resourceManager.Close()
}

// NewHandler is a convenience that constructs an App and returns its
// handler plus a shutdown function, for callers embedding this module
// inside a larger service rather than running cmd/server directly.
func NewHandler(cfg *config.Config, opts ...Option) (http.Handler, func(context.Context) error, error) {
	app, err := NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	app.Start(context.Background())
	shutdown := func(context.Context) error {
		return app.Close()
	}
	return app.Handler(), shutdown, nil
}

// Config is an exported alias of the internal configuration struct for embedding use.
type Config = config.Config

// LoadConfig wraps the internal loader for consumers embedding this module.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("library: failed to load config")
		return nil, err
	}
	return cfg, nil
}
