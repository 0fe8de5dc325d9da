// Package v1 provides the HTTP handlers for the API.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/llmsc-security/swe-agent-api/internal/domain"
	"github.com/llmsc-security/swe-agent-api/internal/service"
)

// Version is the reported service version.
const Version = "0.1.0"

// ServiceName is the reported service identifier.
const ServiceName = "swe-agent-api"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers all routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/version", h.GetVersion)
	e.GET("/info", h.GetInfo)

	// Run submission
	e.POST("/run", h.Run)
	e.POST("/batch-run", h.BatchRun)
	e.POST("/run/:run_id/stop", h.StopRun)

	// Run tracking
	e.GET("/trajectory/:run_id", h.GetTrajectory)
	e.GET("/trajectory/:run_id/file", h.GetTrajectoryFile)
	e.GET("/trajectories", h.ListTrajectories)
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

// GetVersion returns the service version.
// GET /version
func (h *Handler) GetVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"version": Version,
	})
}

// GetInfo returns information about the service setup.
// GET /info
func (h *Handler) GetInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service": ServiceName,
		"version": Version,
		"endpoints": map[string]string{
			"/health":                   "GET - Health check",
			"/version":                  "GET - Get version",
			"/run":                      "POST - Run agent on problem",
			"/batch-run":                "POST - Run agent on multiple problems",
			"/run/{run_id}/stop":        "POST - Stop an ongoing run",
			"/trajectory/{run_id}":      "GET - Get run status",
			"/trajectory/{run_id}/file": "GET - Get full run event log",
			"/trajectories":             "GET - List runs",
			"/metrics":                  "GET - Prometheus metrics",
			"/info":                     "GET - Get this info",
		},
	})
}

// jsonError maps a domain error to an HTTP status with a structured body.
func jsonError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateRun), errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
