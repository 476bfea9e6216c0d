package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/mixingcompass/internal/interfaces/http/handlers"
	"github.com/turtacn/mixingcompass/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.
type RouterConfig struct {
	// Handlers
	HSPHandler        *handlers.HSPHandler
	SolventHandler    *handlers.SolventHandler
	ExperimentHandler *handlers.ExperimentHandler
	PredictorHandler  *handlers.PredictorHandler
	HealthHandler     *handlers.HealthHandler

	// Middleware
	CORS        *middleware.CORSConfig
	Logging     *middleware.LoggingConfig
	RateLimiter middleware.RateLimiter

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter constructs the complete HTTP route tree from the given
// configuration. It wires global middleware, the public probe and metrics
// endpoints, and the API v1 resource groups into a single http.Handler.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	// --- Global middleware (applied to every request) ---
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	logCfg := middleware.DefaultLoggingConfig()
	if cfg.Logging != nil {
		logCfg = *cfg.Logging
	}
	r.Use(middleware.RequestLogging(logger, logCfg))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, middleware.RateLimitConfig{
			SkipPaths: []string{"/healthz", "/readyz", "/metrics"},
		}))
	}

	// --- Public probe endpoints ---
	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}

	// Metrics scrape endpoint; expected to sit behind an internal firewall
	// rule in production.
	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}

	// --- API v1 ---
	r.Route("/api/v1", func(api chi.Router) {
		registerHSPRoutes(api, cfg.HSPHandler)
		registerSolventRoutes(api, cfg.SolventHandler)
		registerExperimentRoutes(api, cfg.ExperimentHandler)
		registerPredictorRoutes(api, cfg.PredictorHandler)
	})

	return r
}

// registerHSPRoutes mounts sphere fitting endpoints under /hsp.
func registerHSPRoutes(r chi.Router, h *handlers.HSPHandler) {
	if h == nil {
		return
	}
	r.Route("/hsp", func(hr chi.Router) {
		hr.Post("/calculate", h.Calculate)
		hr.Get("/loss-functions", h.LossFunctions)
	})
}

// registerSolventRoutes mounts solvent database endpoints under /solvents.
func registerSolventRoutes(r chi.Router, h *handlers.SolventHandler) {
	if h == nil {
		return
	}
	r.Route("/solvents", func(sr chi.Router) {
		sr.Get("/", h.List)
		sr.Post("/", h.Create)
		sr.Get("/lookup", h.Lookup)
		sr.Post("/search", h.Search)
		sr.Post("/import", h.ImportCSV)
		sr.Get("/export", h.ExportCSV)

		sr.Route("/{solventID}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Delete("/", h.Delete)
		})
	})
}

// registerExperimentRoutes mounts solubility experiment endpoints under
// /experiments.
func registerExperimentRoutes(r chi.Router, h *handlers.ExperimentHandler) {
	if h == nil {
		return
	}
	r.Route("/experiments", func(er chi.Router) {
		er.Get("/", h.List)
		er.Post("/", h.Create)

		er.Route("/{experimentID}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Delete("/", h.Delete)
			item.Post("/tests", h.AddTest)
			item.Post("/calculate", h.Calculate)
			item.Get("/visualization", h.Visualization)
		})
	})
}

// registerPredictorRoutes mounts structure-based prediction endpoints under
// /predict.
func registerPredictorRoutes(r chi.Router, h *handlers.PredictorHandler) {
	if h == nil {
		return
	}
	r.Route("/predict", func(pr chi.Router) {
		pr.Post("/smiles", h.Predict)
	})
}
