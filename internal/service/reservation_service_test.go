package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/resource-conflict-api/internal/dto"
	"github.com/noah-isme/resource-conflict-api/internal/models"
	"github.com/noah-isme/resource-conflict-api/internal/repository"
	appErrors "github.com/noah-isme/resource-conflict-api/pkg/errors"
)

type reservationFixture struct {
	svc       *ReservationService
	conflicts *ConflictService
	store     *memoryStore
	mock      sqlmock.Sqlmock
	metrics   *MetricsService
}

func newReservationFixture(t *testing.T) reservationFixture {
	store, mock := newMemoryStore(t)
	metrics := NewMetricsService()
	conflicts := NewConflictService(store, nil, metrics, 0, zap.NewNop())
	return reservationFixture{
		svc:       NewReservationService(store, conflicts, nil, metrics, 0, zap.NewNop()),
		conflicts: conflicts,
		store:     store,
		mock:      mock,
		metrics:   metrics,
	}
}

func commitRequest(interval models.TimeRange, force bool, ids ...int64) models.CommitRequest {
	return models.CommitRequest{
		ResourceIDs: ids,
		Interval:    interval,
		Owner:       models.ReservationOwner{EventID: 50},
		Force:       force,
	}
}

func TestCommitWritesEveryResource(t *testing.T) {
	f := newReservationFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.svc.Commit(context.Background(), commitRequest(span(10, 12), false, 2, 1))
	require.NoError(t, err)
	require.True(t, result.Committed)
	require.Len(t, result.Reservations, 2)
	assert.Equal(t, int64(1), result.Reservations[0].ResourceID)
	assert.Equal(t, int64(2), result.Reservations[1].ResourceID)
	assert.False(t, result.Reservations[0].IsOverride)
	assert.Equal(t, [][]int64{{1, 2}}, f.store.locked)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.commits.WithLabelValues(OutcomeCommitted)))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCommitWithoutForceReportsOnlyConflictingResource(t *testing.T) {
	f := newReservationFixture(t)
	f.store.seed(1, 10, span(10, 12))

	result, err := f.svc.Commit(context.Background(), commitRequest(span(11, 13), false, 1, 2))
	require.NoError(t, err)
	assert.False(t, result.Committed)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, int64(1), result.Conflicts[0].ResourceID)
	assert.Equal(t, 1, f.store.count())
	assert.Empty(t, f.store.locked)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCommitForceThenCheckStillReportsOriginal(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	a, err := f.svc.Commit(ctx, commitRequest(span(10, 12), false, 1))
	require.NoError(t, err)
	require.True(t, a.Committed)

	rejected, err := f.svc.Commit(ctx, commitRequest(span(11, 13), false, 1))
	require.NoError(t, err)
	require.False(t, rejected.Committed)
	require.Len(t, rejected.Conflicts, 1)
	assert.Equal(t, a.Reservations[0].ID, rejected.Conflicts[0].ScheduleID)
	assert.Equal(t, 1, f.store.count())

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	b, err := f.svc.Commit(ctx, commitRequest(span(11, 13), true, 1))
	require.NoError(t, err)
	require.True(t, b.Committed)
	require.Len(t, b.Reservations, 1)
	assert.True(t, b.Reservations[0].IsOverride)

	bID := b.Reservations[0].ID
	conflicts, err := f.conflicts.CheckConflicts(ctx, []int64{1}, span(11, 13), &bID)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, a.Reservations[0].ID, conflicts[0].ScheduleID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCommitForceOverridesOnlyConflictingResources(t *testing.T) {
	f := newReservationFixture(t)
	f.store.seed(1, 10, span(9, 17))
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.svc.Commit(context.Background(), commitRequest(span(11, 15), true, 1, 2))
	require.NoError(t, err)
	require.True(t, result.Committed)
	require.Len(t, result.Reservations, 2)
	assert.True(t, result.Reservations[0].IsOverride)
	assert.False(t, result.Reservations[1].IsOverride)
	assert.Equal(t, 3, f.store.count())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.commits.WithLabelValues(OutcomeForced)))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCommitReverifiesInsideTransaction(t *testing.T) {
	f := newReservationFixture(t)
	var competitor int64
	f.store.afterLock = func(s *memoryStore) {
		competitor = s.seed(1, 77, span(10, 11))
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	result, err := f.svc.Commit(context.Background(), commitRequest(span(9, 12), false, 1))
	require.NoError(t, err)
	assert.False(t, result.Committed)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, competitor, result.Conflicts[0].ScheduleID)
	assert.Equal(t, 1, f.store.count())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCommitExclusionViolationBecomesConflict(t *testing.T) {
	provider, mock := newTxProviderMock(t)
	repo := repository.NewReservationRepository(provider.db)
	conflicts := NewConflictService(repo, nil, nil, 0, nil)
	svc := NewReservationService(repo, conflicts, nil, nil, 0, nil)

	columns := []string{"id", "resource_id", "resource_name", "event_id", "event_name", "task_id", "task_title", "start_time", "end_time", "is_override"}
	mock.ExpectQuery("FROM resource_schedules rs").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM resource_schedules rs").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery("INSERT INTO resource_schedules").
		WillReturnError(&pq.Error{Code: "23P01", Constraint: "resource_schedules_no_overlap"})
	mock.ExpectRollback()
	mock.ExpectQuery("FROM resource_schedules rs").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(9, 1, "Projector", 77, "Launch", nil, nil, at(10), at(11), false))

	result, err := svc.Commit(context.Background(), commitRequest(span(9, 12), false, 1))
	require.NoError(t, err)
	assert.False(t, result.Committed)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "Projector", result.Conflicts[0].ResourceName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitForeignKeyViolationIsValidation(t *testing.T) {
	provider, mock := newTxProviderMock(t)
	repo := repository.NewReservationRepository(provider.db)
	svc := NewReservationService(repo, NewConflictService(repo, nil, nil, 0, nil), nil, nil, 0, nil)

	columns := []string{"id", "resource_id", "resource_name", "event_id", "event_name", "task_id", "task_title", "start_time", "end_time", "is_override"}
	mock.ExpectQuery("FROM resource_schedules rs").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM resource_schedules rs").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery("INSERT INTO resource_schedules").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "resource_schedules_event_id_fkey"})
	mock.ExpectRollback()

	_, err := svc.Commit(context.Background(), commitRequest(span(9, 12), false, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConcurrentCommitsExactlyOneSucceeds(t *testing.T) {
	f := newReservationFixture(t)
	f.mock.MatchExpectationsInOrder(false)
	for i := 0; i < 2; i++ {
		f.mock.ExpectBegin()
	}
	f.mock.ExpectCommit()
	f.mock.ExpectRollback()

	intervals := []models.TimeRange{span(10, 12), span(11, 13)}
	results := make([]*models.CommitResult, len(intervals))
	errs := make([]error, len(intervals))
	var wg sync.WaitGroup
	for i, interval := range intervals {
		wg.Add(1)
		go func(i int, interval models.TimeRange) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Commit(context.Background(), commitRequest(interval, false, 1))
		}(i, interval)
	}
	wg.Wait()

	committed := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Committed {
			committed++
		} else {
			assert.Len(t, results[i].Conflicts, 1)
		}
	}
	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, f.store.count())
}

func TestForcedCommitRacingPlainCommitIsSerialised(t *testing.T) {
	f := newReservationFixture(t)
	f.store.seed(1, 10, span(9, 11))
	f.mock.MatchExpectationsInOrder(false)
	f.mock.ExpectBegin()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectRollback()

	forcedHolds := make(chan struct{})
	f.store.afterLock = func(s *memoryStore) {
		<-s.arrived
		close(forcedHolds)
		// keep the lock until the plain writer is queued behind it
		select {
		case <-s.arrived:
		case <-time.After(2 * time.Second):
		}
	}

	var forced *models.CommitResult
	var forcedErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		forced, forcedErr = f.svc.Commit(context.Background(), commitRequest(span(10, 13), true, 1))
	}()

	<-forcedHolds
	plain, err := f.svc.Commit(context.Background(), commitRequest(span(12, 14), false, 1))
	<-done

	require.NoError(t, forcedErr)
	require.True(t, forced.Committed)
	require.Len(t, forced.Reservations, 1)
	assert.True(t, forced.Reservations[0].IsOverride)

	require.NoError(t, err)
	assert.False(t, plain.Committed)
	require.Len(t, plain.Conflicts, 1)
	assert.Equal(t, forced.Reservations[0].ID, plain.Conflicts[0].ScheduleID)
	assert.Equal(t, 2, f.store.count())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCommitValidatesInput(t *testing.T) {
	f := newReservationFixture(t)

	_, err := f.svc.Commit(context.Background(), commitRequest(span(12, 10), false, 1))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req := commitRequest(span(10, 12), false, 1)
	req.Owner.EventID = 0
	_, err = f.svc.Commit(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "event_id")

	_, err = f.svc.CommitRequest(context.Background(), dto.CommitReservationRequest{
		ResourceIDs: []int64{1},
		StartTime:   "2025-03-14T10:00:00Z",
		EndTime:     "not-a-time",
		EventID:     50,
	})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "end_time")
	assert.Zero(t, f.store.queries)
}

func TestReviseMovesReservationIgnoringItself(t *testing.T) {
	f := newReservationFixture(t)
	id := f.store.seed(1, 10, span(9, 12))
	f.store.seed(1, 11, span(13, 15))
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	result, err := f.svc.Revise(context.Background(), id, span(10, 13), false)
	require.NoError(t, err)
	require.True(t, result.Committed)
	require.Len(t, result.Reservations, 1)
	moved := result.Reservations[0]
	assert.Equal(t, int64(10), moved.EventID)
	assert.Equal(t, at(10), moved.StartTime)
	assert.Equal(t, 2, f.store.count())

	_, err = f.store.FindByID(context.Background(), nil, id, false)
	assert.Error(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestReviseRejectsConflictWithOthers(t *testing.T) {
	f := newReservationFixture(t)
	id := f.store.seed(1, 10, span(9, 12))
	other := f.store.seed(1, 11, span(13, 15))

	result, err := f.svc.Revise(context.Background(), id, span(11, 14), false)
	require.NoError(t, err)
	assert.False(t, result.Committed)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, other, result.Conflicts[0].ScheduleID)

	kept, err := f.store.FindByID(context.Background(), nil, id, false)
	require.NoError(t, err)
	assert.Equal(t, at(9), kept.StartTime)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestReviseReportsConcurrentMoveAsError(t *testing.T) {
	f := newReservationFixture(t)
	id := f.store.seed(1, 10, span(9, 12))
	f.store.afterLock = func(s *memoryStore) {
		s.moveReservation(id, 2)
		s.seed(1, 11, span(13, 15))
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	result, err := f.svc.Revise(context.Background(), id, span(12, 14), true)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, "reservation changed concurrently", appErrors.FromError(err).Message)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestReviseMissingReservation(t *testing.T) {
	f := newReservationFixture(t)

	_, err := f.svc.Revise(context.Background(), 999, span(9, 10), false)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.ReviseRequest(context.Background(), 999, dto.ReviseReservationRequest{StartTime: "x", EndTime: "y"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUnassign(t *testing.T) {
	f := newReservationFixture(t)
	id := f.store.seed(1, 10, span(9, 12))

	require.NoError(t, f.svc.Unassign(context.Background(), id))
	assert.Zero(t, f.store.count())

	err := f.svc.Unassign(context.Background(), id)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	err = f.svc.Unassign(context.Background(), 0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestParseReservationID(t *testing.T) {
	id, err := ParseReservationID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "abc", "0", "-3"} {
		_, err := ParseReservationID(raw)
		assert.ErrorIs(t, err, appErrors.ErrValidation, raw)
	}
}
