// Package http assembles the REST API: route tree, middleware chain, and
// server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemStor-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/ChemStor-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware settings needed to
// construct the complete HTTP route tree.  Nil handlers leave their routes
// unregistered; nil middleware configs disable that middleware.
type RouterConfig struct {
	// Handlers
	Compounds *handlers.CompoundHandler
	Sorting   *handlers.SortingHandler
	Health    *handlers.HealthHandler

	// Middleware
	CORS        *middleware.CORSConfig
	RateLimiter middleware.RateLimiter
	RateLimit   *middleware.RateLimitConfig
	Logging     *middleware.LoggingConfig

	// MaxBodySize caps request bodies in bytes; zero leaves them uncapped.
	MaxBodySize int64

	// MetricsHandler serves the Prometheus exposition endpoint at
	// MetricsPath (default /metrics) when set.
	MetricsHandler http.Handler
	MetricsPath    string

	Logger  logging.Logger
	Metrics *prometheus.AppMetrics
}

// NewRouter constructs the HTTP route tree: global middleware, public probe
// endpoints, the metrics endpoint, and the /api/v1 resource groups.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware, outermost first.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.MaxBodySize > 0 {
		r.Use(limitBody(cfg.MaxBodySize))
	}
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.Logger != nil {
		logCfg := middleware.DefaultLoggingConfig()
		if cfg.Logging != nil {
			logCfg = *cfg.Logging
		}
		r.Use(middleware.RequestLogging(cfg.Logger, cfg.Metrics, logCfg))
	}
	if cfg.RateLimiter != nil {
		rlCfg := middleware.DefaultRateLimitConfig()
		if cfg.RateLimit != nil {
			rlCfg = *cfg.RateLimit
		}
		r.Use(middleware.RateLimit(cfg.RateLimiter, rlCfg))
	}

	// Probes stay outside /api/v1 so orchestrators reach them unversioned.
	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Liveness)
		r.Get("/readyz", cfg.Health.Readiness)
		r.Get("/healthz/detail", cfg.Health.Detailed)
	}

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerCompoundRoutes(api, cfg.Compounds)
		registerSortingRoutes(api, cfg.Sorting)
	})

	return r
}

// limitBody wraps request bodies with http.MaxBytesReader so oversized
// payloads fail the first read instead of buffering unbounded.
func limitBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// registerCompoundRoutes mounts compound endpoints under /compounds.
func registerCompoundRoutes(r chi.Router, h *handlers.CompoundHandler) {
	if h == nil {
		return
	}
	r.Route("/compounds", func(cr chi.Router) {
		cr.Post("/resolve", h.Resolve)
		cr.Post("/classify", h.Classify)
		cr.Get("/search", h.Search)
		cr.Get("/audit", h.Audit)
		cr.Get("/{cid}/similar", h.Similar)
	})
}

// registerSortingRoutes mounts sort execution, run history, and storage-group
// endpoints.
func registerSortingRoutes(r chi.Router, h *handlers.SortingHandler) {
	if h == nil {
		return
	}
	r.Post("/sort", h.Sort)
	r.Post("/sort/async", h.SortAsync)

	r.Route("/sort/runs", func(rr chi.Router) {
		rr.Get("/", h.ListRuns)
		rr.Get("/latest", h.LatestRun)
		rr.Get("/{runID}", h.GetRun)
	})

	r.Route("/storage-groups", func(gr chi.Router) {
		gr.Get("/", h.Groups)
		gr.Get("/{group}/residents", h.GroupResidents)
	})
}

//Personal.AI order the ending
