// Package server provides the HTTP server and routing for the finance
// tracker.
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

	"github.com/papaya09/Personal-Finance-Tracker/internal/auth"
	"github.com/papaya09/Personal-Finance-Tracker/internal/database"
	accountshandlers "github.com/papaya09/Personal-Finance-Tracker/internal/modules/accounts/handlers"
	markethandlers "github.com/papaya09/Personal-Finance-Tracker/internal/modules/market/handlers"
)

// Config holds server configuration
type Config struct {
	Log      zerolog.Logger
	Port     int
	DevMode  bool
	DataDir  string
	FolioDB  *database.DB
	CacheDB  *database.DB
	Auth     *auth.Service
	Accounts *accountshandlers.Handler
	Market   *markethandlers.Handler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	devMode        bool
	authService    *auth.Service
	accounts       *accountshandlers.Handler
	market         *markethandlers.Handler
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		devMode:        cfg.DevMode,
		authService:    cfg.Auth,
		accounts:       cfg.Accounts,
		market:         cfg.Market,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.DataDir, cfg.FolioDB, cfg.CacheDB),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}

	// Session resolution (never rejects - RequireAuth does)
	s.router.Use(s.authService.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Public: health, pages, sign-in/out, market data and diagnostics
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/", s.handleHome)
	s.router.Get("/login", s.handleLogin)
	s.authService.RegisterRoutes(s.router)
	s.market.RegisterRoutes(s.router)
	s.router.Get("/system/status", s.systemHandlers.HandleSystemStatus)

	// Only the per-user document store requires a signed-in user
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		s.accounts.RegisterRoutes(r)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
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
