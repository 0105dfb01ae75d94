package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/venuescout/internal/logger"
)

// Server timeouts.
const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)

// SetupRoutes configures all API routes.
func SetupRoutes(router *gin.Engine, handler *Handler, health *HealthHandler) {
	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)

	router.POST("/query", handler.Query)
	router.POST("/scrape", handler.Scrape)
	router.GET("/scrape/:job_id", handler.JobStatus)
}

// Server wraps the HTTP server with graceful shutdown.
type Server struct {
	srv    *http.Server
	logger logger.Interface
}

// NewServer builds the gin engine and HTTP server.
func NewServer(addr string, handler *Handler, health *HealthHandler, development bool, log logger.Interface) *Server {
	if !development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(log))

	SetupRoutes(router, handler, health)

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
		logger: log,
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	return nil
}
