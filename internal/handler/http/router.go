package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/brand-service/pkg/health"
	"github.com/utafrali/brand-service/pkg/httputil"
	"github.com/utafrali/brand-service/pkg/middleware"
)

const (
	serviceName = "brand"
	apiVersion  = "1.0.0"
)

// RouterConfig carries the router's tunables.
type RouterConfig struct {
	CORS              middleware.CORSConfig
	PprofAllowedCIDRs []string
	RateLimitRPS      float64
	RateLimitBurst    int
	// RequestTimeout bounds each API request. Zero disables the limit.
	RequestTimeout time.Duration
	// Identify validates bearer tokens for request attribution. Nil leaves
	// every request anonymous.
	Identify middleware.IdentityValidator
}

// NewRouter creates a chi router with all brand service routes registered.
// ctx bounds background work owned by the middleware chain.
func NewRouter(
	ctx context.Context,
	brandService BrandService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	if cfg.Identify != nil {
		r.Use(middleware.Identify(cfg.Identify, logger))
	}
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "Brand CRUD API",
			"version": apiVersion,
			"status":  "active",
		})
	})

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	// Brand API endpoints
	brandHandler := NewBrandHandler(brandService, logger)

	r.Route("/api/v1/brands", func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
		if cfg.RequestTimeout > 0 {
			r.Use(chimw.Timeout(cfg.RequestTimeout))
		}
		r.Use(chimw.Compress(5))
		r.Use(ContentTypeJSON)

		r.Post("/", brandHandler.CreateBrand)
		r.Get("/", brandHandler.ListBrands)
		r.Get("/{id}", brandHandler.GetBrand)
		r.Put("/{id}", brandHandler.UpdateBrand)
		r.Delete("/{id}", brandHandler.DeleteBrand)
	})

	return r
}
