// Package httpapi exposes documents, chat and sessions over HTTP.
//
// Every JSON response uses the envelope {success, data} or
// {success, error{code, message}}. The caller is identified by the
// X-Owner-ID header; it scopes data but is not authentication.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

const (
	// DefaultMaxUploadBytes bounds a single document upload.
	DefaultMaxUploadBytes = 32 << 20

	shutdownTimeout = 10 * time.Second
)

// Ports groups the services the API drives.
type Ports struct {
	Documents driving.DocumentService
	Search    driving.SearchService
	Chat      driving.ChatService
	Sessions  driving.SessionService
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// Server is the HTTP API.
type Server struct {
	ports     Ports
	metrics   *metrics.Metrics
	router    *gin.Engine
	server    *http.Server
	maxUpload int64
}

// New builds the router. Call Run to serve it on addr.
func New(addr string, ports Ports, m *metrics.Metrics, opts ...Option) (*Server, error) {
	if ports.Documents == nil || ports.Chat == nil || ports.Sessions == nil || ports.Search == nil {
		return nil, errors.New("httpapi: all ports are required")
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		ports:     ports,
		metrics:   m,
		router:    gin.New(),
		maxUpload: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(requestLogger(m))
	s.routes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := s.router.Group("/api")
	api.Use(ownerMiddleware())

	api.POST("/documents", s.uploadDocument)
	api.GET("/documents", s.listDocuments)
	api.GET("/documents/:id", s.getDocument)
	api.DELETE("/documents/:id", s.deleteDocument)

	api.GET("/search", s.search)

	api.POST("/chat", s.chat)
	api.POST("/chat/stream", s.chatStream)

	api.GET("/sessions", s.listSessions)
	api.GET("/sessions/:id", s.getSession)
	api.PATCH("/sessions/:id", s.renameSession)
	api.DELETE("/sessions/:id", s.deleteSession)
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "ragdesk"})
}
