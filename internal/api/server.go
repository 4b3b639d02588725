package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/evo-uds/wafmon/internal/api/handler"
	mw "github.com/evo-uds/wafmon/internal/api/middleware"
	"github.com/evo-uds/wafmon/internal/config"
	"github.com/evo-uds/wafmon/internal/core"
)

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	services       *core.Services
	corePool       *pgxpool.Pool
	temporalClient temporalclient.Client
	cfg            *config.Config
}

func NewServer(logger zerolog.Logger, corePool *pgxpool.Pool, temporalClient temporalclient.Client, cfg *config.Config, services *core.Services) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		services:       services,
		corePool:       corePool,
		temporalClient: temporalClient,
		cfg:            cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.corePool))

		// WAF monitoring configurations
		monitor := handler.NewMonitor(s.services.Monitoring)
		r.Get("/tenants/{tenantID}/waf-monitors", monitor.ListByTenant)
		r.Post("/tenants/{tenantID}/waf-monitors", monitor.Enable)
		r.Get("/tenants/{tenantID}/waf-resources", monitor.ListResources)
		r.Post("/tenants/{tenantID}/waf-monitors/test-setup", monitor.TestSetup)
		r.Get("/waf-monitors/{id}", monitor.Get)
		r.Delete("/waf-monitors/{id}", monitor.Disable)

		// API keys
		apiKey := handler.NewAPIKey(s.services.APIKey)
		r.Get("/api-keys", apiKey.List)
		r.Post("/api-keys", apiKey.Create)
		r.Delete("/api-keys/{id}", apiKey.Revoke)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.corePool.Ping(ctx); err != nil {
		checks["core_db"] = err.Error()
		healthy = false
	} else {
		checks["core_db"] = "ok"
	}

	if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
		checks["temporal"] = err.Error()
		healthy = false
	} else {
		checks["temporal"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
