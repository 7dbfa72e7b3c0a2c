package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/eshaffer321/auditflow/internal/api/handlers"
	"github.com/eshaffer321/auditflow/internal/api/middleware"
	"github.com/eshaffer321/auditflow/internal/application/service"
	"github.com/eshaffer321/auditflow/internal/infrastructure/config"
	"github.com/eshaffer321/auditflow/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// ConfigFrom builds the server config from application settings.
func ConfigFrom(cfg config.ServerConfig) Config {
	c := DefaultConfig()
	if cfg.Port > 0 {
		c.Port = cfg.Port
	}
	if len(cfg.AllowedOrigins) > 0 {
		c.AllowedOrigins = cfg.AllowedOrigins
	}
	return c
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	audit      *service.AuditService
}

// NewServer creates a new API server.
// If audit is nil, a service is built from the environment config.
func NewServer(cfg Config, repo storage.Repository, audit *service.AuditService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if audit == nil {
		audit = service.NewAuditService(nil, repo, logger)
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		repo:   repo,
		audit:  audit,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.Recovery(s.logger))

	// CORS
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))

	// Request logging
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler(s.repo)
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		// Clients
		clientsHandler := handlers.NewClientsHandler(s.repo, s.logger)
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", clientsHandler.List)
			r.Post("/", clientsHandler.Create)
			r.Get("/{id}", clientsHandler.Get)
			r.Put("/{id}", clientsHandler.Update)
			r.Delete("/{id}", clientsHandler.Delete)
		})

		// Engagement tasks
		tasksHandler := handlers.NewTasksHandler(s.repo, s.logger)
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", tasksHandler.List)
			r.Post("/", tasksHandler.Create)
			r.Get("/{id}", tasksHandler.Get)
			r.Put("/{id}", tasksHandler.Update)
			r.Delete("/{id}", tasksHandler.Delete)
			r.Patch("/{id}/checklist/{itemID}", tasksHandler.SetChecklistItem)
		})

		// Variance analysis
		varianceHandler := handlers.NewVarianceHandler(s.repo, s.audit, s.logger)
		r.Route("/variance", func(r chi.Router) {
			r.Post("/", varianceHandler.Run)
			r.Post("/upload", varianceHandler.Upload)
			r.Get("/", varianceHandler.List)
			r.Get("/{id}", varianceHandler.Get)
			r.Get("/{id}/export", varianceHandler.Export)
			r.Put("/{id}/thresholds", varianceHandler.Reclassify)
		})

		// Sample selection
		samplesHandler := handlers.NewSamplesHandler(s.repo, s.audit, s.logger)
		r.Route("/samples", func(r chi.Router) {
			r.Post("/", samplesHandler.Run)
			r.Post("/upload", samplesHandler.Upload)
			r.Get("/", samplesHandler.List)
			r.Get("/{id}", samplesHandler.Get)
			r.Get("/{id}/export", samplesHandler.Export)
		})

		// Stats
		statsHandler := handlers.NewStatsHandler(s.repo, s.logger)
		r.Get("/stats", statsHandler.Get)
	})
}

// Start starts the HTTP server. It returns nil once Shutdown is called,
// including when Shutdown ran first.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
