package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/fulfillrelay/internal/server/http/dto"
)

const serviceMessage = "Fulfillment Relay API"

// ServiceHandler serves the informational and health endpoints.
type ServiceHandler struct {
	facade HealthFacade
	logger *slog.Logger
}

// NewServiceHandler creates ServiceHandler instance.
func NewServiceHandler(facade HealthFacade, logger *slog.Logger) *ServiceHandler {
	return &ServiceHandler{facade: facade, logger: logger}
}

// Root handles GET /.
func (h *ServiceHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ServiceInfo{
		Message:   serviceMessage,
		Timestamp: now(),
		Path:      c.Request.URL.Path,
	})
}

// Health handles GET /health.
func (h *ServiceHandler) Health(c *gin.Context) {
	if err := h.facade.HealthCheck(c.Request.Context()); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, dto.HealthStatus{Status: "unhealthy", Timestamp: now()})
		return
	}
	c.JSON(http.StatusOK, dto.HealthStatus{Status: "healthy", Timestamp: now()})
}

// NotFound answers unknown routes.
func (h *ServiceHandler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Not Found", Path: c.Request.URL.Path})
}

// MethodNotAllowed answers known routes requested with the wrong method.
func (h *ServiceHandler) MethodNotAllowed(c *gin.Context) {
	c.String(http.StatusMethodNotAllowed, "Method not allowed")
}
