// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes search, chat and the project library over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/agent"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/metrics"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/rag"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/search"
	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/store"
	"github.com/SEERINTELAI/academic-research-tool-sub000/pkg/types"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

const shutdownTimeout = 10 * time.Second

// Chatter answers chat turns.
type Chatter interface {
	ProcessMessage(ctx context.Context, projectID string, req types.ChatRequest) (types.ChatResponse, error)
}

// Knowledge reports on the RAG store.
type Knowledge interface {
	Configured() bool
	Health(ctx context.Context) error
	PipelineStatus(ctx context.Context) (rag.PipelineStatus, error)
}

// Server is the HTTP API.
type Server struct {
	echo     *echo.Echo
	addr     string
	store    *store.Store
	searcher agent.Searcher
	chat     Chatter
	rag      Knowledge
	ingest   agent.IngestQueue
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithKnowledge enables the RAG status route.
func WithKnowledge(k Knowledge) Option {
	return func(s *Server) { s.rag = k }
}

// WithIngestQueue enables the ingestion route.
func WithIngestQueue(q agent.IngestQueue) Option {
	return func(s *Server) { s.ingest = q }
}

// WithMetrics serves the registry on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the server and registers its routes.
func New(cfg types.ServerConfig, st *store.Store, searcher agent.Searcher, chat Chatter, opts ...Option) *Server {
	s := &Server{
		addr:     cfg.Addr,
		store:    st,
		searcher: searcher,
		chat:     chat,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.addr == "" {
		s.addr = DefaultAddr
	}
	s.logger = s.logger.Named("server")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	e.Use(s.logRequests)
	s.echo = e
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	api := s.echo.Group("/api")
	api.POST("/search", s.search)
	api.POST("/intent", s.parseIntent)
	api.GET("/rag/status", s.ragStatus)

	api.GET("/projects", s.listProjects)
	api.POST("/projects", s.createProject)

	p := api.Group("/projects/:id")
	p.POST("/chat", s.chatTurn)
	p.GET("/chat/history", s.chatHistory)
	p.GET("/session", s.session)
	p.GET("/papers", s.listPapers)
	p.GET("/papers/:index", s.getPaper)
	p.POST("/papers/ingest", s.ingestPapers)
	p.GET("/outline", s.outline)
	p.GET("/library", s.searchLibrary)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.addr))
		errc <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		req := c.Request()
		s.logger.Debug("request",
			zap.String("method", req.Method),
			zap.String("path", c.Path()),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// handleError maps domain errors onto status codes. Unexpected errors are
// logged and reported without detail.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := http.StatusInternalServerError, "internal server error"
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code, msg = he.Code, fmt.Sprint(he.Message)
	case errors.Is(err, search.ErrInvalidRequest), errors.Is(err, agent.ErrInvalidMessage):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound), errors.Is(err, search.ErrNotFound):
		code, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, rag.ErrNotConfigured):
		code, msg = http.StatusServiceUnavailable, err.Error()
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: msg})
	}
	if err != nil {
		s.logger.Warn("writing error response", zap.Error(err))
	}
}

func badRequest(format string, args ...any) error {
	return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}
