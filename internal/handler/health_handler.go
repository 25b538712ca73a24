package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resource-conflict-api/internal/dto"
	"github.com/noah-isme/resource-conflict-api/internal/models"
	"github.com/noah-isme/resource-conflict-api/internal/service"
	"github.com/noah-isme/resource-conflict-api/pkg/response"
)

type healthChecker interface {
	Check(ctx context.Context) models.HealthStatus
}

// HealthHandler exposes observability endpoints.
type HealthHandler struct {
	health  healthChecker
	metrics *service.MetricsService
}

// NewHealthHandler constructs the handler.
func NewHealthHandler(health healthChecker, metrics *service.MetricsService) *HealthHandler {
	return &HealthHandler{health: health, metrics: metrics}
}

// Health godoc
// @Summary Service health
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	status := h.health.Check(c.Request.Context())
	if !status.Healthy {
		response.JSON(c, http.StatusServiceUnavailable, dto.HealthResponse{Status: "degraded", Database: "disconnected"})
		return
	}
	response.JSON(c, http.StatusOK, dto.HealthResponse{Status: "ok", Database: "connected"})
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *HealthHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
