package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"log/slog"

	"github.com/me/blogd/internal/audit"
	"github.com/me/blogd/internal/auth"
	"github.com/me/blogd/internal/config"
	"github.com/me/blogd/internal/session"
	"github.com/me/blogd/internal/store"
)

// Server is the blogd REST API server. Every state-changing route runs
// the same ordered guard pipeline: CSRF check, session authentication,
// input validation, authorization, then business logic. Each stage fails
// closed.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	store     store.Store
	sessions  *session.Manager
	csrf      *session.CsrfGuard
	hasher    *auth.Hasher
	audit     *audit.Log
}

// New creates a new Server with all routes registered.
func New(cfg config.ServerConfig, st store.Store, sessions *session.Manager, hasher *auth.Hasher, auditLog *audit.Log, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		store:     st,
		sessions:  sessions,
		csrf:      session.NewCsrfGuard(),
		hasher:    hasher,
		audit:     auditLog,
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
	r.Use(s.recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api", func(r chi.Router) {
		// Health
		r.Get("/health", s.handleHealth)

		// Open endpoints
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Get("/posts", s.handleListPosts)
		r.Get("/search", s.handleSearch)
		r.Get("/reflect-xss", s.handleReflectXSS)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Post("/logout", s.handleLogout)
			r.Get("/user", s.handleCurrentUser)
			r.Get("/csrf-token", s.handleCsrfToken)
			r.Delete("/posts/{id}", s.handleDeletePost)

			// State-changing endpoints additionally require the
			// anti-forgery ticket.
			r.Group(func(r chi.Router) {
				r.Use(s.requireCSRF)
				r.Post("/posts", s.handleCreatePost)
			})
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusNotFound, "Endpoint not found")
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Endpoint not found")
	})
}
