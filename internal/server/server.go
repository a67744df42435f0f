package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sigil-protocol/sigil-scan/internal/cache"
	"github.com/sigil-protocol/sigil-scan/internal/config"
	"github.com/sigil-protocol/sigil-scan/internal/events"
	"github.com/sigil-protocol/sigil-scan/internal/logger"
	"github.com/sigil-protocol/sigil-scan/internal/scanner"
)

// Version is stamped by the build; the default marks development runs.
var Version = "dev"

// Server exposes the scanner over HTTP.
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	scanner *scanner.Scanner
	cache   *cache.ResultCache // nil when the result cache is disabled
	hub     *events.Hub
	limiter *clientLimiter
	router  *mux.Router
	server  *http.Server
}

// New creates a new scan server instance. resultCache may be nil.
func New(cfg *config.Config, log *logger.Logger, sc *scanner.Scanner, resultCache *cache.ResultCache) *Server {
	hub := events.NewHub(&cfg.Events, log.WithComponent("events").Logger)

	server := &Server{
		config:  cfg,
		logger:  log.WithComponent("server"),
		scanner: sc,
		cache:   resultCache,
		hub:     hub,
		router:  mux.NewRouter(),
	}
	if cfg.RateLimit.Enabled {
		server.limiter = newClientLimiter(&cfg.RateLimit)
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	if s.config.Events.Enabled {
		s.router.HandleFunc(s.config.Events.Path, s.handleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/scan", s.handleScan).Methods("POST")
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("Starting scan server",
		zap.Int("port", s.config.Server.Port),
		zap.String("registry_url", s.config.Registry.URL),
		zap.Bool("offline", s.config.Registry.Offline),
		zap.Bool("cache_enabled", s.cache != nil),
	)

	go s.hub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping scan server")
	return s.server.Shutdown(ctx)
}

// handleWebSocket hands the connection to the event hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.HandleWebSocket(w, r)
}

// Hub returns the event hub for broadcasting events.
func (s *Server) Hub() *events.Hub {
	return s.hub
}
