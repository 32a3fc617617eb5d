// Package server exposes the renderer over HTTP for previewing templates.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-groupcontent/internal/version"
	"github.com/goliatone/go-groupcontent/pkg/entity"
	"github.com/goliatone/go-groupcontent/pkg/orchestrator"
	"github.com/goliatone/go-groupcontent/pkg/sandbox"
)

const maxBodyBytes = 1 << 20

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

// Generator renders a request. *orchestrator.Orchestrator satisfies it.
type Generator interface {
	Generate(ctx context.Context, req orchestrator.Request) ([]byte, error)
}

// Option customises the server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultTheme sets the theme used when a request has no theme query.
func WithDefaultTheme(name, variant string) Option {
	return func(s *Server) {
		s.theme = name
		s.variant = variant
	}
}

// Server is the preview HTTP server.
type Server struct {
	generator Generator
	router    *gin.Engine
	addr      string
	theme     string
	variant   string
	logger    *zap.Logger
}

// New builds the router.
func New(generator Generator, options ...Option) *Server {
	s := &Server{
		generator: generator,
		addr:      "127.0.0.1:8080",
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.GET("/healthz", s.health)
	router.POST("/render", s.render)
	s.router = router
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("preview server listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		<-errCh
		return nil
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Version})
}

func (s *Server) render(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		badRequest(c, err)
		return
	}
	if len(body) > maxBodyBytes {
		respondProblem(c, problem{
			Type:   typeTooLarge,
			Title:  "Payload Too Large",
			Status: http.StatusRequestEntityTooLarge,
			Detail: fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes),
		})
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		badRequest(c, errors.New("request body is empty"))
		return
	}

	g, err := entity.Decode(body, formatOf(c.ContentType()))
	if err != nil {
		badRequest(c, err)
		return
	}

	req := orchestrator.Request{
		Entity:  &g,
		Theme:   c.DefaultQuery("theme", s.theme),
		Variant: c.DefaultQuery("variant", s.variant),
	}
	out, err := s.generator.Generate(c.Request.Context(), req)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", out)
}

func (s *Server) renderError(c *gin.Context, err error) {
	var secErr *sandbox.SecurityError
	switch {
	case errors.As(err, &secErr):
		s.logger.Warn("template security violation",
			zap.String("template", secErr.TemplateName),
			zap.Int("line", secErr.Line),
			zap.Error(err))
		respondProblem(c, problem{
			Type:   typeSecurity,
			Title:  "Template Security Violation",
			Status: http.StatusUnprocessableEntity,
			Detail: err.Error(),
			Extensions: map[string]any{
				"kind":     string(secErr.Kind),
				"name":     secErr.Name,
				"template": secErr.TemplateName,
				"line":     secErr.Line,
			},
		})
	case errors.Is(err, entity.ErrLabelRequired):
		respondProblem(c, problem{Type: typeValidation, Title: "Validation Error", Status: http.StatusBadRequest, Detail: err.Error()})
	default:
		s.logger.Error("render failed", zap.Error(err))
		respondProblem(c, problem{Type: typeInternal, Title: "Internal Server Error", Status: http.StatusInternalServerError, Detail: err.Error()})
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Next()
		s.logger.Debug("request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func formatOf(contentType string) string {
	switch {
	case strings.Contains(contentType, "yaml"):
		return "yaml"
	case strings.Contains(contentType, "json"):
		return "json"
	default:
		return ""
	}
}
