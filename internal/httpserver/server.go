// Package httpserver wires the library-commerce HTTP surface: book search,
// borrow/return, buy/cancel, and the admin ledger/jobs/stream endpoints,
// adapted from the teacher's chi-based server and middleware chain.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dummy-library/inventory-core/internal/borrow"
	"github.com/dummy-library/inventory-core/internal/catalog"
	"github.com/dummy-library/inventory-core/internal/circuitbreaker"
	"github.com/dummy-library/inventory-core/internal/config"
	"github.com/dummy-library/inventory-core/internal/idempotency"
	"github.com/dummy-library/inventory-core/internal/jobs"
	"github.com/dummy-library/inventory-core/internal/logger"
	"github.com/dummy-library/inventory-core/internal/metrics"
	"github.com/dummy-library/inventory-core/internal/purchase"
	"github.com/dummy-library/inventory-core/internal/ratelimit"
	"github.com/dummy-library/inventory-core/internal/store"
)

// Server wires handlers, middleware, and dependencies.
type Server struct {
	handlers
	httpServer *http.Server
	hub        *jobHub
}

type handlers struct {
	cfg            *config.Config
	store          store.Store
	catalog        catalog.Reader
	borrowEngine   *borrow.Engine
	purchaseEngine *purchase.Engine
	idempotency    *idempotency.Cache
	metrics        *metrics.Metrics
	breaker        *circuitbreaker.Breaker
	hub            *jobHub
	logger         zerolog.Logger
}

// Deps bundles the collaborators New needs, avoiding a ten-argument
// constructor as the server's dependency list grows.
type Deps struct {
	Config         *config.Config
	Store          store.Store
	Catalog        catalog.Reader
	BorrowEngine   *borrow.Engine
	PurchaseEngine *purchase.Engine
	Idempotency    *idempotency.Cache
	Metrics        *metrics.Metrics
	Breaker        *circuitbreaker.Breaker
	Logger         zerolog.Logger
}

// New builds the HTTP server with its configured router. Server.Hub
// returns its jobs.EventSink; pass that to Runner.SetEventSink so job
// transitions reach /api/admin/stream subscribers.
func New(deps Deps) *Server {
	router := chi.NewRouter()
	hub := newJobHub(deps.Logger)

	s := &Server{
		handlers: handlers{
			cfg:            deps.Config,
			store:          deps.Store,
			catalog:        deps.Catalog,
			borrowEngine:   deps.BorrowEngine,
			purchaseEngine: deps.PurchaseEngine,
			idempotency:    deps.Idempotency,
			metrics:        deps.Metrics,
			breaker:        deps.Breaker,
			hub:            hub,
			logger:         deps.Logger,
		},
		httpServer: &http.Server{
			Addr:         deps.Config.Server.Address,
			ReadTimeout:  deps.Config.Server.ReadTimeout.Duration,
			WriteTimeout: deps.Config.Server.WriteTimeout.Duration,
			IdleTimeout:  deps.Config.Server.IdleTimeout.Duration,
			Handler:      router,
		},
		hub: hub,
	}

	ConfigureRouter(router, s.handlers)

	return s
}

// Hub exposes the admin-stream event sink for wiring into the job runner.
func (s *Server) Hub() jobs.EventSink {
	return s.hub
}

// ConfigureRouter attaches every route to an existing router.
func ConfigureRouter(router chi.Router, h handlers) {
	if router == nil {
		return
	}

	if len(h.cfg.Server.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   h.cfg.Server.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           300,
		}).Handler)
	}

	router.Use(securityHeadersMiddleware)
	router.Use(logger.Middleware(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(requestMetrics(h.metrics))

	rateLimitCfg := ratelimit.Config{
		GlobalEnabled:  h.cfg.RateLimit.Enabled,
		GlobalLimit:    h.cfg.RateLimit.Limit * 10,
		GlobalWindow:   h.cfg.RateLimit.Window.Duration,
		PerUserEnabled: h.cfg.RateLimit.Enabled,
		PerUserLimit:   h.cfg.RateLimit.Limit,
		PerUserWindow:  h.cfg.RateLimit.Window.Duration,
		Metrics:        h.metrics,
	}

	// Lightweight endpoints: no rate limiting, short timeout.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get("/health", h.health)
		r.Handle("/metrics", promhttp.Handler())
	})

	// Mutating/read endpoints: global + per-user rate limiting.
	router.Group(func(r chi.Router) {
		r.Use(ratelimit.Global(rateLimitCfg))
		r.Use(ratelimit.PerUser(rateLimitCfg))
		r.Use(middleware.Timeout(10 * time.Second))

		r.Get("/api/books", h.listBooks)
		r.Post("/api/books/{isbn}/borrow", h.borrowBook)
		r.Post("/api/books/{isbn}/return", h.returnBook)
		r.With(idempotencyMiddleware(h.idempotency, "buy")).Post("/api/books/{isbn}/buy", h.buyBook)
		r.Post("/api/purchases/{id}/cancel", h.cancelPurchase)

		r.Route("/api/admin", func(ar chi.Router) {
			ar.Use(adminGuard(h.cfg.Admin.Email))
			ar.Get("/ledger", h.adminLedger)
			ar.Get("/jobs", h.adminJobs)
			ar.Get("/stream", h.adminStream)
		})
	})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Handler exposes the configured router as an http.Handler, for embedding
// this server's routes inside a larger http.Server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Close satisfies io.Closer so lifecycle.Manager can register the server
// without a context-aware shutdown call.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
