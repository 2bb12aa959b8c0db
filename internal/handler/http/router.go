package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/search-provisioner/pkg/health"
	"github.com/utafrali/search-provisioner/pkg/middleware"
)

// NewRouter creates a chi router with all provisioner routes registered.
func NewRouter(
	admin *AdminHandler,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(5 * time.Minute))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("search-provisioner"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Admin API endpoints
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/provision", admin.Provision)
		r.Post("/seed", admin.Seed)
		r.Post("/backup", admin.Backup)
	})

	return r
}
