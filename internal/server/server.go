// Package server provides the HTTP server and routing for the report API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/andrew-rosca/etrade-report/internal/database"
	"github.com/andrew-rosca/etrade-report/internal/modules/buckets"
	"github.com/andrew-rosca/etrade-report/internal/modules/cash_flows"
	cashflowshandlers "github.com/andrew-rosca/etrade-report/internal/modules/cash_flows/handlers"
	"github.com/andrew-rosca/etrade-report/internal/modules/concentration"
	concentrationhandlers "github.com/andrew-rosca/etrade-report/internal/modules/concentration/handlers"
	"github.com/andrew-rosca/etrade-report/internal/modules/portfolio"
	portfoliohandlers "github.com/andrew-rosca/etrade-report/internal/modules/portfolio/handlers"
	"github.com/andrew-rosca/etrade-report/internal/modules/reports"
	reportshandlers "github.com/andrew-rosca/etrade-report/internal/modules/reports/handlers"
)

// Broker is the authorization surface exposed over HTTP. *etrade.Client
// satisfies it.
type Broker interface {
	IsAuthenticated() bool
	HasPendingAuthorization() bool
	Sandbox() bool
	StartAuthorization() (string, error)
	CompleteAuthorization(verifier string) error
	Logout() error
}

// JobRunner triggers registered background jobs by name.
// *scheduler.Scheduler satisfies it.
type JobRunner interface {
	RunNow(name string) error
	Jobs() []string
}

// Config holds server configuration.
type Config struct {
	Log           zerolog.Logger
	Port          int
	DevMode       bool
	DataDir       string
	Broker        Broker
	Jobs          JobRunner
	CacheDB       *database.DB
	Portfolio     *portfolio.Service
	Classifier    *buckets.Classifier
	Concentration *concentration.Service
	CashFlows     *cash_flows.Service
	Reports       *reports.Service

	// DefaultTopN bounds concentration tables when a request does not
	// pass ?top=. Comes from the analysis configuration.
	DefaultTopN int
}

// Server is the HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    Config
	log    zerolog.Logger
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		log:    cfg.Log.With().Str("component", "server").Logger(),
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

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
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
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	authHandlers := NewAuthHandlers(s.cfg.Broker, s.log)
	systemHandlers := NewSystemHandlers(s.cfg.Broker, s.cfg.Jobs, s.cfg.CacheDB, s.cfg.DataDir, s.log)

	portfolioHandler := portfoliohandlers.NewHandler(s.cfg.Portfolio, s.cfg.Classifier, s.log)
	cashFlowsHandler := cashflowshandlers.NewHandler(s.cfg.CashFlows, s.log)
	concentrationHandler := concentrationhandlers.NewHandler(s.cfg.Portfolio, s.cfg.Concentration, s.cfg.DefaultTopN, s.log)
	reportsHandler := reportshandlers.NewHandler(s.cfg.Reports, s.cfg.DefaultTopN, s.log)

	s.router.Route("/api", func(r chi.Router) {
		// Authorization and status endpoints stay reachable while the
		// broker session is not established yet.
		authHandlers.RegisterRoutes(r)
		r.Get("/system/status", systemHandlers.HandleSystemStatus)

		// Everything else needs an active broker session.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuthorization)

			portfolioHandler.RegisterRoutes(r)
			cashFlowsHandler.RegisterRoutes(r)
			concentrationHandler.RegisterRoutes(r)
			reportsHandler.RegisterRoutes(r)

			r.Post("/system/sync/portfolio", systemHandlers.HandleSyncPortfolio)
			r.Post("/system/sync/transactions", systemHandlers.HandleSyncTransactions)
		})
	})
}

// requireAuthorization rejects data requests until the broker session is
// established, pointing the caller at the authorization flow.
func (s *Server) requireAuthorization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.Broker.IsAuthenticated() {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "not authorized with E*TRADE, start authorization via POST /api/auth/start",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "etrade-report",
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
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
