// Package server exposes the ledger over HTTP and a websocket stream.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/NgigiN/prosperledger/internal/app"
)

const sessionCookie = "prosperledger_session"

// Config holds server configuration
type Config struct {
	Port           int
	Log            zerolog.Logger
	App            *app.App
	AllowedOrigins []string
}

type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	app     *app.App
	port    int
	origins []string
	started time.Time
}

func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		app:     cfg.App,
		port:    cfg.Port,
		origins: credentialedOrigins(cfg.AllowedOrigins),
		started: time.Now(),
	}
	if len(s.origins) < len(cfg.AllowedOrigins) {
		s.log.Warn().Msg("Ignoring wildcard origin: the session cookie needs explicit origins")
	}

	s.setupMiddleware()
	s.setupRoutes()

	// No WriteTimeout: the stream route holds its connection open. Other
	// routes are bounded by the Timeout middleware.
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	if len(s.origins) == 0 {
		return
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	timeout := middleware.Timeout(30 * time.Second)

	s.router.With(timeout).Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(timeout)

			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.requireSession)

				r.Get("/overview", s.handleOverview)
				r.Get("/catalog", s.handleCatalog)

				r.Route("/transactions", func(r chi.Router) {
					r.Get("/", s.handleListTransactions)
					r.Post("/", s.handleAddTransaction)
					r.Delete("/{id}", s.handleDeleteTransaction)
				})

				r.Route("/debts", func(r chi.Router) {
					r.Get("/", s.handleListDebts)
					r.Post("/", s.handleAddDebt)
					r.Post("/{id}/toggle", s.handleToggleDebt)
					r.Delete("/{id}", s.handleDeleteDebt)
				})

				r.Get("/settings", s.handleGetSettings)
				r.Put("/settings", s.handleSaveSettings)
			})
		})

		// Long-lived, so outside the timeout.
		r.With(s.requireSession).Get("/stream", s.handleStream)
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// credentialedOrigins drops "*": a wildcard must not be paired with
// credentialed requests. An empty result means same-origin only.
func credentialedOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o != "*" {
			out = append(out, o)
		}
	}
	return out
}

// requireSession rejects requests that do not carry the current session.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || !s.app.Authorized(c.Value) {
			s.writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		next.ServeHTTP(w, r)
	})
}
