package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resource-conflict-api/internal/models"
	"github.com/noah-isme/resource-conflict-api/internal/service"
)

type healthCheckerStub struct{ status models.HealthStatus }

func (s healthCheckerStub) Check(ctx context.Context) models.HealthStatus { return s.status }

func TestHealthHandler(t *testing.T) {
	handler := NewHealthHandler(healthCheckerStub{status: models.HealthStatus{Healthy: true, Database: true}}, nil)
	c, w := newJSONContext(http.MethodGet, "/health", nil)
	handler.Health(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"connected"}`, w.Body.String())

	handler = NewHealthHandler(healthCheckerStub{}, nil)
	c, w = newJSONContext(http.MethodGet, "/health", nil)
	handler.Health(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","database":"disconnected"}`, w.Body.String())
}

func TestPrometheusEndpoint(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordCommit(service.OutcomeCommitted)
	handler := NewHealthHandler(healthCheckerStub{}, metrics)
	c, w := newJSONContext(http.MethodGet, "/metrics", nil)

	handler.Prometheus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `reservation_commits_total{outcome="committed"} 1`)
}
