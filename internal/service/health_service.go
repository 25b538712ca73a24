package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/resource-conflict-api/internal/models"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// HealthService probes the schedule store.
type HealthService struct {
	db      pinger
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthService constructs the service.
func NewHealthService(db pinger, timeout time.Duration, logger *zap.Logger) *HealthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthService{db: db, timeout: timeout, logger: logger}
}

// Check pings the database within the store timeout.
func (s *HealthService) Check(ctx context.Context) models.HealthStatus {
	if s.db == nil {
		return models.HealthStatus{}
	}
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("health check: database unreachable", zap.Error(err))
		return models.HealthStatus{Healthy: false, Database: false}
	}
	return models.HealthStatus{Healthy: true, Database: true}
}
