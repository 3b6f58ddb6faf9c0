// Package http serves the salary estimate form and its JSON/websocket API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"salaryestimator/db"
	"salaryestimator/ml"
	"salaryestimator/monitoring"
)

// Server wraps the HTTP listener.
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

type ServerConfig struct {
	Port           int
	ReadTimeout    time.Duration
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
	MaxClients     int
	MaxBodyBytes   int64
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		AllowedOrigins: []string{"*"},
		RateLimit:      10,
		RateBurst:      20,
		MaxClients:     1024,
		MaxBodyBytes:   1 << 16,
	}
}

// Deps are the long-lived collaborators shared by every request. Everything
// but Pipeline is optional.
type Deps struct {
	Pipeline *ml.Pipeline
	Store    *db.Store
	Metrics  *monitoring.MetricsCollector
	Hub      *monitoring.WebSocketHub
	Alerts   *monitoring.AlertSystem
	Logger   *zap.Logger
}

func NewServer(config ServerConfig, deps Deps) (*Server, error) {
	if deps.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	handler, err := NewHandler(config, deps)
	if err != nil {
		return nil, err
	}

	return &Server{
		server: &http.Server{
			Addr:        fmt.Sprintf(":%d", config.Port),
			Handler:     handler,
			ReadTimeout: config.ReadTimeout,
			IdleTimeout: 120 * time.Second,
		},
		config: config,
		logger: deps.Logger,
	}, nil
}

// NewHandler builds the routed and wrapped handler without a listener.
func NewHandler(config ServerConfig, deps Deps) (http.Handler, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	h := &handlers{deps: deps}
	if err := h.register(mux); err != nil {
		return nil, err
	}

	rateLimit, err := RateLimitMiddleware(config.RateLimit, config.RateBurst, config.MaxClients)
	if err != nil {
		return nil, err
	}

	chain := Chain(
		RecoveryMiddleware(deps.Logger),
		RequestIDMiddleware,
		LoggerMiddleware(deps.Logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		rateLimit,
		RequestSizeMiddleware(config.MaxBodyBytes),
	)
	return chain(mux), nil
}

// Start blocks until the server stops. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) Addr() string {
	return s.server.Addr
}
