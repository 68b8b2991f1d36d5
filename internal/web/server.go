package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/attendance-dashboard/internal/analytics"
	"github.com/kozaktomas/attendance-dashboard/internal/attendance"
	"github.com/kozaktomas/attendance-dashboard/internal/backend"
	"github.com/kozaktomas/attendance-dashboard/internal/camera"
	"github.com/kozaktomas/attendance-dashboard/internal/config"
	"github.com/kozaktomas/attendance-dashboard/internal/database"
	"github.com/kozaktomas/attendance-dashboard/internal/metrics"
	"github.com/kozaktomas/attendance-dashboard/internal/roster"
	"github.com/kozaktomas/attendance-dashboard/internal/web/middleware"
)

// requestTimeout bounds regular API requests. Streams, the overlay socket and
// the event stream are long-lived and run without it.
const requestTimeout = 2 * time.Minute

// Services are the long-lived components the HTTP handlers use.
type Services struct {
	Backend   *backend.Client
	Feed      *camera.Feed
	Selector  *camera.Selector
	Settings  database.SettingsStore
	Roster    *roster.Service
	Resolver  *attendance.StartResolver
	View      *attendance.View
	Poller    *attendance.Poller
	Analytics *analytics.Service
	Metrics   *metrics.Metrics

	// AnalyticsSource names where analytics read logs from ("backend" or "mariadb").
	AnalyticsSource string
}

// Server represents the web server
type Server struct {
	config         *config.Config
	services       *Services
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *middleware.SessionManager
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, services *Services, port int, host string, sessionSecret string, sessionRepo middleware.SessionRepository) *Server {
	r := chi.NewRouter()

	// Create session manager with optional persistence
	sessionManager := middleware.NewSessionManager(sessionSecret, sessionRepo)

	s := &Server{
		config:         cfg,
		services:       services,
		router:         r,
		sessionManager: sessionManager,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	// No WriteTimeout: MJPEG and SSE responses stay open for as long as the
	// dashboard is displayed. Regular routes are bounded by requestTimeout.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting dashboard on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
