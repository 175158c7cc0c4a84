// Package server wires the HTTP surface: routes, middleware chain, and
// server lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/authgate/internal/auth"
	"github.com/avolkov/authgate/internal/config"
	"github.com/avolkov/authgate/internal/observability"
	"github.com/avolkov/authgate/internal/server/middleware"
	"github.com/avolkov/authgate/internal/token"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race
// conditions when multiple servers are created in one process.
var ginModeOnce sync.Once

// Server is the authgate HTTP server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	cfg        *config.Config
	users      *auth.Service
	tokens     *token.Service
	admission  *middleware.AdmissionController
	logger     observability.Logger
	metrics    *observability.Metrics
	mu         sync.Mutex
	running    bool
}

// Option is a functional option for the server.
type Option func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics for the server.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// New creates a server with its full middleware chain and routes. The
// admission ledger sweeper is started here and stopped by Stop.
func New(cfg *config.Config, users *auth.Service, tokens *token.Service, opts ...Option) *Server {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		engine: gin.New(),
		cfg:    cfg,
		users:  users,
		tokens: tokens,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.admission = middleware.NewAdmissionController(
		cfg.Gate.Interval.Duration(),
		middleware.WithAdmissionLogger(s.logger),
		middleware.WithClientTTL(cfg.Gate.ClientTTL.Duration()),
		middleware.WithGlobalCeiling(cfg.Gate.GlobalRPS, cfg.Gate.GlobalBurst),
	)
	s.admission.StartAutoCleanup()

	s.engine.Use(
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Gate(middleware.GateConfig{
			Admission:      s.admission,
			Extractor:      middleware.NewClientIPExtractor(cfg.Gate.TrustedProxies),
			ExemptPrefixes: cfg.Gate.ExemptPrefixes,
			Logger:         s.logger,
			Metrics:        s.metrics,
		}),
	)

	s.registerRoutes()

	return s
}

// registerRoutes attaches every route the service exposes.
func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/health", s.handleHealth)

	if s.cfg.Metrics.Enabled && s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	authGroup := s.engine.Group("/auth")
	{
		authGroup.POST("/", s.handleSignup)
		authGroup.POST("/token", s.handleToken)
	}

	api := s.engine.Group("/api/v1")
	api.Use(middleware.RequireAuth(middleware.AuthConfig{
		Tokens: s.tokens,
		Logger: s.logger,
	}))
	{
		api.GET("/me", s.handleMe)
	}
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start runs the HTTP server. It blocks until the server stops and
// returns nil after a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Address, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: s.cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  s.cfg.Server.IdleTimeout.Duration(),
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", addr),
	)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down and stops the admission
// ledger sweeper.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admission.Stop()

	if !s.running || s.httpServer == nil {
		return nil
	}
	s.running = false

	s.logger.Info("stopping HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
