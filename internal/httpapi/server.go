package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config holds HTTP server settings
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRouter wires middleware and routes. Extra middleware, such as rate limiting, runs after
// request logging so rejected requests are still logged.
func NewRouter(h *Handler, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestContext(), RequestLogger(), Recovery())
	r.GET("/health", Health)

	api := r.Group("/pricing", extra...)
	api.POST("/calculate", h.Calculate)
	api.POST("/settle", h.Settle)
	return r
}

// Server represents the pricing HTTP server
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// NewServer creates a new HTTP server for the router
func NewServer(cfg Config, router http.Handler, logger *zap.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown error: %w", err)
	}
	return nil
}
