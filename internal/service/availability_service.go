package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/resource-conflict-api/internal/dto"
	"github.com/noah-isme/resource-conflict-api/internal/models"
	"github.com/noah-isme/resource-conflict-api/internal/repository"
	appErrors "github.com/noah-isme/resource-conflict-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type scheduleLister interface {
	ListByResource(ctx context.Context, resourceID int64, from, to time.Time) ([]models.ScheduleEntry, error)
}

type resourceReader interface {
	FindByID(ctx context.Context, id int64) (*models.Resource, error)
}

// AvailabilityService renders a resource's calendar.
type AvailabilityService struct {
	schedules scheduleLister
	resources resourceReader
	validator *validator.Validate
	metrics   *MetricsService
	timeout   time.Duration
	maxDays   int
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service. maxDays caps the requested window.
func NewAvailabilityService(schedules scheduleLister, resources resourceReader, validate *validator.Validate, metrics *MetricsService, timeout time.Duration, maxDays int, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxDays <= 0 {
		maxDays = 90
	}
	return &AvailabilityService{
		schedules: schedules,
		resources: resources,
		validator: validate,
		metrics:   metrics,
		timeout:   timeout,
		maxDays:   maxDays,
		logger:    logger,
	}
}

// Query validates a wire request and returns the calendar.
func (s *AvailabilityService) Query(ctx context.Context, q dto.AvailabilityQuery) (*dto.AvailabilityResponse, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, validationError(err, "invalid availability query")
	}
	window, err := ParseDateRange(q.StartDate, q.EndDate, s.maxDays)
	if err != nil {
		return nil, err
	}
	entries, err := s.GetSchedule(ctx, q.ResourceID, window)
	if err != nil {
		return nil, err
	}
	return &dto.AvailabilityResponse{
		ResourceID: q.ResourceID,
		StartDate:  window.Start,
		EndDate:    window.End,
		Entries:    dto.NewAvailabilityEntries(entries),
	}, nil
}

// GetSchedule lists the reservations of resourceID intersecting window, oldest first.
func (s *AvailabilityService) GetSchedule(ctx context.Context, resourceID int64, window models.TimeRange) ([]models.ScheduleEntry, error) {
	if resourceID <= 0 {
		return nil, appErrors.Validation("invalid resource id", map[string]string{"resource_id": "must be greater than 0"})
	}
	if err := validateInterval(window); err != nil {
		return nil, err
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.resources.FindByID(ctx, resourceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, s.storeError(err, "load resource", resourceID, window)
	}

	started := time.Now()
	entries, err := s.schedules.ListByResource(ctx, resourceID, window.Start, window.End)
	s.metrics.ObserveDBQuery("list_by_resource", time.Since(started))
	if err != nil {
		return nil, s.storeError(err, "list availability", resourceID, window)
	}
	return entries, nil
}

func (s *AvailabilityService) storeError(err error, op string, resourceID int64, window models.TimeRange) error {
	return logStoreError(s.logger, repository.ClassifyStoreError(err, op), op, []int64{resourceID}, window)
}

// ParseDateRange accepts YYYY-MM-DD (whole UTC days, end date inclusive) or RFC3339 bounds
// and rejects empty, inverted or windows longer than maxDays.
func ParseDateRange(startRaw, endRaw string, maxDays int) (models.TimeRange, error) {
	fields := map[string]string{}
	start, startErr := parseBound(startRaw, false)
	if startErr != nil {
		fields["start_date"] = startErr.Error()
	}
	end, endErr := parseBound(endRaw, true)
	if endErr != nil {
		fields["end_date"] = endErr.Error()
	}
	if len(fields) > 0 {
		return models.TimeRange{}, appErrors.Validation("invalid date range", fields)
	}

	window := models.TimeRange{Start: start, End: end}
	if err := window.Validate(); err != nil {
		return models.TimeRange{}, appErrors.Validation("invalid date range", map[string]string{"end_date": "must not be before start_date"})
	}
	if maxDays > 0 && window.Duration() > time.Duration(maxDays)*24*time.Hour {
		return models.TimeRange{}, appErrors.Validation("date range too long", map[string]string{"end_date": fmt.Sprintf("range must not exceed %d days", maxDays)})
	}
	return window, nil
}

func parseBound(raw string, inclusiveEnd bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("is required")
	}
	if day, err := time.Parse(dateLayout, raw); err == nil {
		if inclusiveEnd {
			return day.AddDate(0, 0, 1), nil
		}
		return day, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("must be YYYY-MM-DD or an RFC3339 timestamp")
	}
	return ts.UTC(), nil
}
