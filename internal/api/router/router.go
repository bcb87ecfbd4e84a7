package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pratik-mahalle/ratewatch/internal/api/handlers"
	"github.com/pratik-mahalle/ratewatch/internal/api/middleware"
	"github.com/pratik-mahalle/ratewatch/internal/config"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/metrics"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Alert      *handlers.AlertHandler
	Job        *handlers.JobHandler
	Monitoring *handlers.MonitoringHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(metrics.Middleware)

	// Health checks and metrics
	r.Get("/health", h.Health.Healthz)
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		perSecond := float64(cfg.Server.RequestsPerMin) / 60
		r.Use(middleware.RateLimit(perSecond, cfg.Server.RequestsPerMin))

		r.Route("/monitoring", func(r chi.Router) {
			r.Get("/dashboard", h.Monitoring.Dashboard)
			r.Get("/schedule", h.Monitoring.Schedule)
			r.Get("/compliance/report", h.Monitoring.ComplianceReport)
			r.Post("/jobs", h.Monitoring.Trigger)

			r.Get("/platforms", h.Monitoring.Platforms)
			r.Route("/platforms/{platform}", func(r chi.Router) {
				r.Get("/", h.Monitoring.Platform)
				r.Post("/responses", h.Monitoring.Ingest)
				r.Post("/spam-flag", h.Monitoring.SpamFlag)
				r.Post("/resume", h.Monitoring.Resume)
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.Alert.List)
			r.Get("/summary", h.Alert.Summary)
			r.Get("/{id}", h.Alert.Get)
			r.Put("/{id}/status", h.Alert.UpdateStatus)
		})

		r.Get("/jobs", h.Job.ListJobs)
	})

	return r
}
