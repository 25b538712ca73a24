package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/resource-conflict-api/internal/dto"
	"github.com/noah-isme/resource-conflict-api/internal/models"
	"github.com/noah-isme/resource-conflict-api/internal/repository"
	appErrors "github.com/noah-isme/resource-conflict-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type reservationStore interface {
	txProvider
	FindByID(ctx context.Context, q sqlx.QueryerContext, id int64, forUpdate bool) (*models.Reservation, error)
	LockResources(ctx context.Context, e sqlx.ExecerContext, resourceIDs []int64) error
	InsertBatch(ctx context.Context, q sqlx.QueryerContext, reservations []models.Reservation) ([]models.Reservation, error)
	Delete(ctx context.Context, e sqlx.ExecerContext, id int64) error
}

// ReservationService is the reservation writer. Every write runs in one transaction that
// serialises on the affected resources and re-verifies overlaps before inserting.
type ReservationService struct {
	store     reservationStore
	conflicts *ConflictService
	validator *validator.Validate
	metrics   *MetricsService
	timeout   time.Duration
	logger    *zap.Logger
}

// NewReservationService constructs the writer.
func NewReservationService(store reservationStore, conflicts *ConflictService, validate *validator.Validate, metrics *MetricsService, timeout time.Duration, logger *zap.Logger) *ReservationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{
		store:     store,
		conflicts: conflicts,
		validator: validate,
		metrics:   metrics,
		timeout:   timeout,
		logger:    logger,
	}
}

// writePlan describes one transactional write.
type writePlan struct {
	op          string
	resourceIDs []int64
	interval    models.TimeRange
	force       bool
	excludeID   *int64
	// prepare runs after the resource locks and before the overlap re-check.
	prepare func(ctx context.Context, tx *sqlx.Tx) error
	// rows builds the reservations to insert; overridden holds resources that overlap.
	rows func(overridden map[int64]bool) []models.Reservation
}

// CommitRequest validates a wire request and commits it.
func (s *ReservationService) CommitRequest(ctx context.Context, req dto.CommitReservationRequest) (*models.CommitResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid reservation payload")
	}
	interval, err := parseInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	return s.Commit(ctx, models.CommitRequest{
		ResourceIDs: req.ResourceIDs,
		Interval:    interval,
		Owner:       models.ReservationOwner{EventID: req.EventID, TaskID: req.TaskID},
		Force:       req.Force,
		Notes:       req.Notes,
	})
}

// Commit reserves every resource in req over req.Interval. Without Force any overlap rejects
// the whole request and nothing is written; with Force overlapping rows are stored as overrides.
func (s *ReservationService) Commit(ctx context.Context, req models.CommitRequest) (*models.CommitResult, error) {
	ids, err := normalizeResourceIDs(req.ResourceIDs)
	if err != nil {
		return nil, err
	}
	if err := validateInterval(req.Interval); err != nil {
		return nil, err
	}
	if req.Owner.EventID <= 0 {
		return nil, appErrors.Validation("reservation owner required", map[string]string{"event_id": "must be greater than 0"})
	}

	plan := writePlan{
		op:          "commit reservation",
		resourceIDs: ids,
		interval:    req.Interval,
		force:       req.Force,
		rows: func(overridden map[int64]bool) []models.Reservation {
			rows := make([]models.Reservation, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, models.Reservation{
					ResourceID: id,
					EventID:    req.Owner.EventID,
					TaskID:     req.Owner.TaskID,
					StartTime:  req.Interval.Start,
					EndTime:    req.Interval.End,
					Notes:      req.Notes,
					IsOverride: overridden[id],
				})
			}
			return rows
		},
	}
	return s.execute(ctx, plan)
}

// ReviseRequest validates a wire request and revises reservation id.
func (s *ReservationService) ReviseRequest(ctx context.Context, id int64, req dto.ReviseReservationRequest) (*models.CommitResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid reservation payload")
	}
	interval, err := parseInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	return s.Revise(ctx, id, interval, req.Force)
}

// Revise moves reservation id to interval by deleting and recreating it in one transaction.
// The reservation's own row never counts as a conflict.
func (s *ReservationService) Revise(ctx context.Context, id int64, interval models.TimeRange, force bool) (*models.CommitResult, error) {
	if id <= 0 {
		return nil, appErrors.Validation("invalid reservation id", map[string]string{"id": "must be greater than 0"})
	}
	if err := validateInterval(interval); err != nil {
		return nil, err
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	existing, err := s.store.FindByID(ctx, nil, id, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, s.storeError(err, "load reservation", nil, interval)
	}

	var current *models.Reservation
	plan := writePlan{
		op:          "revise reservation",
		resourceIDs: []int64{existing.ResourceID},
		interval:    interval,
		force:       force,
		excludeID:   &id,
		prepare: func(ctx context.Context, tx *sqlx.Tx) error {
			locked, err := s.store.FindByID(ctx, tx, id, true)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
				}
				return err
			}
			if locked.ResourceID != existing.ResourceID {
				return appErrors.Clone(appErrors.ErrConflict, "reservation changed concurrently")
			}
			current = locked
			return s.store.Delete(ctx, tx, id)
		},
		rows: func(overridden map[int64]bool) []models.Reservation {
			return []models.Reservation{{
				ResourceID: current.ResourceID,
				EventID:    current.EventID,
				TaskID:     current.TaskID,
				StartTime:  interval.Start,
				EndTime:    interval.End,
				Notes:      current.Notes,
				IsOverride: overridden[current.ResourceID],
			}}
		},
	}
	return s.executeWithin(ctx, plan)
}

// Unassign deletes reservation id.
func (s *ReservationService) Unassign(ctx context.Context, id int64) error {
	if id <= 0 {
		return appErrors.Validation("invalid reservation id", map[string]string{"id": "must be greater than 0"})
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	err := s.store.Delete(ctx, nil, id)
	s.metrics.ObserveDBQuery("delete_reservation", time.Since(started))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return s.storeError(err, "unassign reservation", nil, models.TimeRange{})
	}
	s.logger.Info("reservation unassigned", zap.Int64("reservation_id", id))
	return nil
}

// ParseReservationID parses a path id.
func ParseReservationID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Validation("invalid reservation id", map[string]string{"id": "must be a positive integer"})
	}
	return id, nil
}

func (s *ReservationService) execute(ctx context.Context, plan writePlan) (*models.CommitResult, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()
	return s.executeWithin(ctx, plan)
}

func (s *ReservationService) executeWithin(ctx context.Context, plan writePlan) (*models.CommitResult, error) {
	if !plan.force {
		// Cheap rejection before taking locks; the transaction re-checks regardless.
		conflicts, err := s.conflicts.find(ctx, nil, plan.resourceIDs, plan.interval, plan.excludeID)
		if err != nil {
			s.metrics.RecordCommit(OutcomeError)
			return nil, s.storeError(err, plan.op, plan.resourceIDs, plan.interval)
		}
		if len(conflicts) > 0 {
			s.metrics.RecordCommit(OutcomeRejected)
			return &models.CommitResult{Committed: false, Conflicts: conflicts}, nil
		}
	}

	result, err := s.runTx(ctx, plan)
	if err == nil {
		s.recordResult(plan, result)
		return result, nil
	}

	appErr := repository.ClassifyStoreError(err, plan.op)
	if repository.IsExclusionViolation(err) {
		if result, ok := s.rereadConflicts(ctx, plan); ok {
			s.metrics.RecordCommit(OutcomeRejected)
			return result, nil
		}
	}
	s.metrics.RecordCommit(OutcomeError)
	return nil, logStoreError(s.logger, appErr, plan.op, plan.resourceIDs, plan.interval)
}

// rereadConflicts explains an exclusion violation raised by a concurrent writer.
func (s *ReservationService) rereadConflicts(ctx context.Context, plan writePlan) (*models.CommitResult, bool) {
	conflicts, err := s.conflicts.find(ctx, nil, plan.resourceIDs, plan.interval, plan.excludeID)
	if err != nil || len(conflicts) == 0 {
		if err != nil {
			s.logger.Warn("re-reading conflicts after exclusion violation failed", zap.Error(err))
		}
		return nil, false
	}
	return &models.CommitResult{Committed: false, Conflicts: conflicts}, true
}

func (s *ReservationService) runTx(ctx context.Context, plan writePlan) (result *models.CommitResult, err error) {
	tx, err := s.store.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.store.LockResources(ctx, tx, plan.resourceIDs); err != nil {
		return nil, err
	}
	if plan.prepare != nil {
		if err := plan.prepare(ctx, tx); err != nil {
			return nil, err
		}
	}

	conflicts, err := s.conflicts.find(ctx, tx, plan.resourceIDs, plan.interval, plan.excludeID)
	if err != nil {
		return nil, err
	}
	overridden := make(map[int64]bool, len(conflicts))
	if len(conflicts) > 0 {
		if !plan.force {
			return &models.CommitResult{Committed: false, Conflicts: conflicts}, nil
		}
		for _, c := range conflicts {
			overridden[c.ResourceID] = true
		}
	}

	started := time.Now()
	stored, err := s.store.InsertBatch(ctx, tx, plan.rows(overridden))
	s.metrics.ObserveDBQuery("insert_reservations", time.Since(started))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	committed = true

	if len(overridden) > 0 {
		s.logger.Warn("reservation forced over existing bookings",
			zap.String("operation", plan.op),
			zap.Int64s("resource_ids", plan.resourceIDs),
			zap.Int("conflicts", len(conflicts)),
		)
	}
	return &models.CommitResult{Committed: true, Reservations: stored}, nil
}

func (s *ReservationService) recordResult(plan writePlan, result *models.CommitResult) {
	switch {
	case !result.Committed:
		s.metrics.RecordCommit(OutcomeRejected)
	case hasOverride(result.Reservations):
		s.metrics.RecordCommit(OutcomeForced)
	default:
		s.metrics.RecordCommit(OutcomeCommitted)
	}
	if result.Committed {
		s.logger.Info("reservations committed",
			zap.String("operation", plan.op),
			zap.Int64s("resource_ids", plan.resourceIDs),
			zap.Time("start_time", plan.interval.Start),
			zap.Time("end_time", plan.interval.End),
		)
	}
}

func hasOverride(reservations []models.Reservation) bool {
	for _, r := range reservations {
		if r.IsOverride {
			return true
		}
	}
	return false
}

func (s *ReservationService) storeError(err error, op string, ids []int64, interval models.TimeRange) error {
	return logStoreError(s.logger, repository.ClassifyStoreError(err, op), op, ids, interval)
}
