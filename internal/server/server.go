package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/auth"
	"github.com/promptvault/promptvault/internal/config"
	"github.com/promptvault/promptvault/internal/server/middleware"
)

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	store      api.DataStore
	auth       *auth.Service
	policy     auth.Policy
	cfg        *config.Config
}

// New creates a Server with all routes wired. The log endpoints are split
// into a read group and a write group so each sits behind the matching
// access gate.
func New(cfg *config.Config, store api.DataStore, authSvc *auth.Service) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	policy := auth.Policy{
		IdentityConfigured: authSvc.IdentityConfigured(),
		AnonymousWrites:    cfg.AnonymousWrites,
	}

	s := &Server{
		router: router,
		store:  store,
		auth:   authSvc,
		policy: policy,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(authSvc, policy))

		// OAuth redirect flow (browser endpoints, not JSON operations).
		r.Get("/auth/google", s.handleSignIn)
		r.Get("/auth/google/callback", s.handleCallback)
		r.Get("/auth/logout", s.handleLogout)

		// Read operations plus the current-user endpoint.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRead(policy))

			readAPI := humachi.New(r, humaConfig("PromptVault Read API"))
			api.RegisterLogReadRoutes(readAPI, store)
			api.RegisterAuthRoutes(readAPI)
		})

		// Write operations. The read API already serves the docs endpoints
		// on this router, so the write API must not register its own.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireWrite(policy))

			writeCfg := humaConfig("PromptVault Write API")
			writeCfg.OpenAPIPath = ""
			writeCfg.DocsPath = ""
			writeCfg.SchemasPath = ""
			writeCfg.Transformers = nil

			writeAPI := humachi.New(r, writeCfg)
			api.RegisterLogWriteRoutes(writeAPI, store)
		})
	})

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

func humaConfig(title string) huma.Config {
	cfg := huma.DefaultConfig(title, "1.0.0")
	cfg.Servers = []*huma.Server{
		{URL: "/api"},
	}
	return cfg
}

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

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
