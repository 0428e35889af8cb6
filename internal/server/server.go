// Package server exposes the HTTP surface of the gateway: agent message
// routes that stream SSE, deployed-agent management, health, and metrics.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/lightenlabs/feather/internal/agent"
	"github.com/lightenlabs/feather/internal/config"
	"github.com/lightenlabs/feather/internal/metrics"
	"github.com/lightenlabs/feather/internal/sandbox"
	"github.com/lightenlabs/feather/internal/store"
)

// Server wires the HTTP routes to the registry, the deployed-agent
// store, and the sandbox provisioner.
type Server struct {
	cfg      *config.Config
	registry *agent.Registry
	store    *store.Store
	prov     sandbox.Provisioner
	limiter  *RateLimiter
}

// New creates a Server.
func New(cfg *config.Config, registry *agent.Registry, st *store.Store, prov sandbox.Provisioner) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		store:    st,
		prov:     prov,
		limiter:  NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
	}
}

// Router builds the chi router with all middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(CORS(s.cfg.AllowedOrigins))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/agents", func(r chi.Router) {
		r.Get("/", s.handleListAgents)

		r.Route("/dynamic", func(r chi.Router) {
			r.Get("/", s.handleListDeployed)
			r.Put("/{slug}", s.handleDeploy)
			r.Delete("/{slug}", s.handleUndeploy)
			r.With(s.limiter.Middleware).Post("/{slug}", s.handleDynamicMessage)
		})

		r.With(s.limiter.Middleware).Post("/{id}", s.handleAgentMessage)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
