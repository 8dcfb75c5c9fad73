package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/suppression-hub/internal/config"
	"github.com/ignite/suppression-hub/internal/service/feedback"
	"github.com/ignite/suppression-hub/internal/service/suppression"
	"github.com/ignite/suppression-hub/internal/sns"
)

// Server is the HTTP front door: the SNS webhook plus the operator API.
type Server struct {
	config  config.Config
	handler http.Handler
	server  *http.Server
	router  *chi.Mux
}

// NewServer wires handlers and routes. redisClient may be nil when the
// cache is disabled; the health check reports it as not configured.
func NewServer(
	cfg config.Config,
	feedbackSvc *feedback.Service,
	suppressionSvc *suppression.Service,
	verifier *sns.Verifier,
	db *sql.DB,
	redisClient *redis.Client,
) *Server {
	webhook := NewWebhookHandler(cfg.Webhook, feedbackSvc, verifier)
	handlers := NewHandlers(feedbackSvc, suppressionSvc)
	health := NewHealthChecker(db, redisClient)

	router := SetupRoutes(cfg.Webhook, webhook, handlers, health)

	return &Server{
		config:  cfg,
		handler: router,
		router:  router,
	}
}

// ListenAndServe starts the HTTP server on addr and blocks.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// Webhook bodies are small JSON documents; keep timeouts tight so a
		// slow-loris peer cannot pin connections.
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
