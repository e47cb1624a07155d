// Package server provides the HTTP API for remedyd.
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

	"github.com/fyrsmithlabs/remedyd/internal/config"
	"github.com/fyrsmithlabs/remedyd/internal/orchestrator"
)

const serviceName = "remedyd"

// Server provides HTTP endpoints for remedyd.
type Server struct {
	echo   *echo.Echo
	orch   *orchestrator.Service
	logger *zap.Logger
	config config.ServerConfig
}

// NewServer creates a new HTTP server.
func NewServer(orch *orchestrator.Service, logger *zap.Logger, cfg config.ServerConfig) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:   e,
		orch:   orch,
		logger: logger,
		config: cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/fix", s.handleFix)
	v1.GET("/stats", s.handleStats)
}

// FixRequest is the request body for POST /api/v1/fix.
type FixRequest struct {
	Language string `json:"language"`
	CWE      string `json:"cwe"`
	Code     string `json:"code"`

	// UseRAG defaults to true when omitted.
	UseRAG *bool `json:"use_rag"`
}

// RootResponse is the response body for GET /.
type RootResponse struct {
	Service      string `json:"service"`
	Status       string `json:"status"`
	Model        string `json:"model"`
	RAGAvailable bool   `json:"rag_available"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleRoot returns service information.
func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, RootResponse{
		Service:      serviceName,
		Status:       "running",
		Model:        s.orch.ModelName(),
		RAGAvailable: s.orch.RetrievalAvailable(),
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// handleFix runs one remediation request through the pipeline.
func (s *Server) handleFix(c echo.Context) error {
	var req FixRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid fix request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	useRAG := true
	if req.UseRAG != nil {
		useRAG = *req.UseRAG
	}

	resp, err := s.orch.ProcessFix(c.Request().Context(), &orchestrator.FixRequest{
		Language: req.Language,
		CWE:      req.CWE,
		Code:     req.Code,
		UseRAG:   useRAG,
	})
	if err != nil {
		if errors.Is(err, orchestrator.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, resp)
}

// handleStats returns aggregate usage metrics. With no logged
// requests the body is an empty JSON object.
func (s *Server) handleStats(c echo.Context) error {
	summary, err := s.orch.Stats(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to compute stats", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute stats")
	}
	if summary == nil {
		return c.JSON(http.StatusOK, map[string]any{})
	}
	return c.JSON(http.StatusOK, summary)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
