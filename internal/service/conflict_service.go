package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/resource-conflict-api/internal/dto"
	"github.com/noah-isme/resource-conflict-api/internal/models"
	"github.com/noah-isme/resource-conflict-api/internal/repository"
	appErrors "github.com/noah-isme/resource-conflict-api/pkg/errors"
)

type overlapFinder interface {
	FindOverlaps(ctx context.Context, q sqlx.QueryerContext, resourceIDs []int64, interval models.TimeRange, excludeID *int64) ([]models.ScheduleOverlap, error)
}

// ConflictService answers whether a candidate interval is free on a set of resources.
type ConflictService struct {
	repo      overlapFinder
	validator *validator.Validate
	metrics   *MetricsService
	timeout   time.Duration
	logger    *zap.Logger
}

// NewConflictService constructs the service. timeout bounds each store lookup; zero disables it.
func NewConflictService(repo overlapFinder, validate *validator.Validate, metrics *MetricsService, timeout time.Duration, logger *zap.Logger) *ConflictService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{
		repo:      repo,
		validator: validate,
		metrics:   metrics,
		timeout:   timeout,
		logger:    logger,
	}
}

// Check validates a wire request and runs the conflict check.
func (s *ConflictService) Check(ctx context.Context, req dto.CheckConflictsRequest) (*dto.CheckConflictsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid conflict check payload")
	}
	interval, err := parseInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	conflicts, err := s.CheckConflicts(ctx, req.ResourceIDs, interval, req.ExcludeScheduleID)
	if err != nil {
		return nil, err
	}
	return &dto.CheckConflictsResponse{
		HasConflicts: len(conflicts) > 0,
		Conflicts:    dto.NewConflictItems(conflicts),
	}, nil
}

// CheckConflicts returns one conflict per (resource, existing reservation) pair whose interval
// intersects interval. An empty result means the interval is free on every resource.
func (s *ConflictService) CheckConflicts(ctx context.Context, resourceIDs []int64, interval models.TimeRange, excludeID *int64) ([]models.Conflict, error) {
	ids, err := normalizeResourceIDs(resourceIDs)
	if err != nil {
		return nil, err
	}
	if err := validateInterval(interval); err != nil {
		return nil, err
	}
	if excludeID != nil && *excludeID <= 0 {
		return nil, appErrors.Validation("invalid exclusion", map[string]string{"exclude_schedule_id": "must be greater than 0"})
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	conflicts, err := s.find(ctx, nil, ids, interval, excludeID)
	if err != nil {
		s.metrics.RecordConflictCheck(OutcomeError, 0)
		return nil, s.storeError(err, "check conflicts", ids, interval)
	}

	outcome := OutcomeClear
	if len(conflicts) > 0 {
		outcome = OutcomeConflict
	}
	s.metrics.RecordConflictCheck(outcome, len(conflicts))
	return conflicts, nil
}

// find runs the overlap lookup on q (the pool when nil) and keeps only rows that truly
// intersect under the half-open rule.
func (s *ConflictService) find(ctx context.Context, q sqlx.QueryerContext, ids []int64, interval models.TimeRange, excludeID *int64) ([]models.Conflict, error) {
	started := time.Now()
	overlaps, err := s.repo.FindOverlaps(ctx, q, ids, interval, excludeID)
	s.metrics.ObserveDBQuery("find_overlaps", time.Since(started))
	if err != nil {
		return nil, err
	}

	conflicts := make([]models.Conflict, 0, len(overlaps))
	for _, overlap := range overlaps {
		if !overlap.Interval().Overlaps(interval) {
			continue
		}
		conflicts = append(conflicts, models.NewConflict(overlap, interval))
	}
	return conflicts, nil
}

func (s *ConflictService) storeError(err error, op string, ids []int64, interval models.TimeRange) error {
	return logStoreError(s.logger, repository.ClassifyStoreError(err, op), op, ids, interval)
}

// logStoreError logs classified failures that carry a hidden cause and returns appErr.
func logStoreError(logger *zap.Logger, appErr *appErrors.Error, op string, ids []int64, interval models.TimeRange) error {
	fields := []zap.Field{
		zap.String("operation", op),
		zap.Int64s("resource_ids", ids),
		zap.Time("start_time", interval.Start),
		zap.Time("end_time", interval.End),
		zap.String("code", appErr.Code),
		zap.Error(appErr.Err),
	}
	switch {
	case appErr.Code == appErrors.ErrInternal.Code:
		logger.Error("schedule store failure", fields...)
	case appErrors.IsUnavailable(appErr):
		logger.Warn("schedule store unavailable", fields...)
	}
	return appErr
}

func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
