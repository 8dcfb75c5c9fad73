package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/suppression-hub/internal/config"
)

// SetupRoutes configures the router: health probes, the SNS webhook at its
// configured path, and the operator API under /api.
func SetupRoutes(cfg config.WebhookConfig, webhook *WebhookHandler, h *Handlers, health *HealthChecker) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health probes (no auth)
	r.Get("/health", health.HandleHealth)
	r.Get("/health/live", health.HandleLiveness)
	r.Get("/health/ready", health.HandleReadiness)

	// SNS delivers here. The handler itself answers 404 when disabled so
	// the route shape does not leak whether the feature exists.
	path := cfg.Path
	if path == "" {
		path = "/webhooks/sns"
	}
	r.Post(path, webhook.HandleNotification)

	// Operator API
	r.Route("/api", func(r chi.Router) {
		r.Route("/suppressions", func(r chi.Router) {
			r.Get("/", h.ListSuppressions)
			r.Post("/", h.CreateSuppression)
			r.Get("/check", h.CheckSuppression)
			r.Get("/stats", h.GetSuppressionStats)
			r.Get("/{id}", h.GetSuppression)
			r.Post("/{id}/release", h.ReleaseSuppression)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Get("/{id}", h.GetEvent)
		})
	})

	return r
}
