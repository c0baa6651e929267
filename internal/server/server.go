// Package server is the thin HTTP embedding of the guarded-execution core:
// every mutating route funnels through the auth service and executor, and the
// error kinds surface as 400/401/403/429/502 responses.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	v1 "github.com/gosuda/aegis/internal/api/v1"
	"github.com/gosuda/aegis/internal/config"
	"github.com/gosuda/aegis/internal/ratelimit"
	"github.com/gosuda/aegis/internal/server/middleware"
)

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	cfg        *config.Config
}

// New creates a Server with all routes wired. ctx bounds the background
// cleanup of the per-IP login limiter.
func New(ctx context.Context, cfg *config.Config, authSvc v1.AuthService, auditReader v1.AuditReader) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Per-IP limiter for the unauthenticated auth routes. The counter-store
	// limiter cannot key these: no actor identity exists yet.
	loginLimiter := ratelimit.NewLocal(1, cfg.Guard.LoginRateLimitMax)
	loginLimiter.StartCleanup(ctx, 10*time.Minute, 30*time.Minute)

	router.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated auth routes (login, refresh).
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(loginLimiter))

			authConfig := huma.DefaultConfig("Aegis Auth API", "1.0.0")
			authConfig.Servers = []*huma.Server{{URL: "/api/v1"}}
			authAPI := humachi.New(r, authConfig)
			v1.RegisterAuthRoutes(authAPI, authSvc)
		})

		// Authenticated account routes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret))

			apiConfig := huma.DefaultConfig("Aegis API", "1.0.0")
			apiConfig.Servers = []*huma.Server{{URL: "/api/v1"}}
			api := humachi.New(r, apiConfig)
			v1.RegisterAccountRoutes(api, authSvc)
		})

		// Admin-only audit read API.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret))
			r.Use(middleware.RequireAdmin())

			adminConfig := huma.DefaultConfig("Aegis Admin API", "1.0.0")
			adminConfig.Servers = []*huma.Server{{URL: "/api/v1"}}
			adminAPI := humachi.New(r, adminConfig)
			v1.RegisterAuditRoutes(adminAPI, auditReader)
		})
	})

	// Prometheus scrape endpoint (unauthenticated, bind accordingly).
	router.Handle("/metrics", promhttp.Handler())

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Router exposes the chi router for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
