package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/sweeply/internal/config"
	"github.com/me/sweeply/internal/store"
)

// Token lifetimes. Access tokens are short-lived; clients are expected
// to rotate through /auth/refresh_tokens. Refresh tokens are single-use.
const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

// Server is the sweeply REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	store     store.Store

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithTokenTTLs overrides the default token lifetimes (used in tests).
func WithTokenTTLs(access, refresh time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = access
		s.refreshTTL = refresh
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.ServerConfig, st store.Store, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		logger:     logger.With("component", "server"),
		config:     cfg,
		startTime:  time.Now(),
		store:      st,
		accessTTL:  accessTokenTTL,
		refreshTTL: refreshTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		// Health
		r.Get("/health", s.handleHealth)

		// Auth endpoints are reachable without a bearer token. A 401
		// from these must never trigger a client-side refresh loop, so
		// clients exempt them from retry handling.
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/refresh_tokens", s.handleRefreshTokens)
			r.Post("/activate", s.handleActivate)
		})

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/users/me", s.handleCurrentUser)

			r.Route("/daily_assignments", func(r chi.Router) {
				r.Get("/", s.handleListAssignments)
				r.With(s.adminOnly).Post("/", s.handleCreateAssignment)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetAssignment)
					r.Patch("/", s.handleUpdateAssignment)
				})
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", s.handleListReports)
				r.Post("/", s.handleCreateReport)
			})

			// Admin-only management endpoints.
			r.Group(func(r chi.Router) {
				r.Use(s.adminOnly)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", s.handleListUsers)
					r.Post("/", s.handleCreateUser)
					r.Delete("/{id}", s.handleDeleteUser)
				})
				r.Route("/locations", func(r chi.Router) {
					r.Get("/", s.handleListLocations)
					r.Post("/", s.handleCreateLocation)
				})
				r.Route("/rooms", func(r chi.Router) {
					r.Get("/", s.handleListRooms)
					r.Post("/", s.handleCreateRoom)
				})
				r.Route("/tasks", func(r chi.Router) {
					r.Get("/", s.handleListTasks)
					r.Post("/", s.handleCreateTask)
					r.Delete("/{id}", s.handleDeleteTask)
				})
			})
		})
	})
}
