package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resource-conflict-api/internal/models"
)

func at(h int) time.Time {
	return time.Date(2025, 3, 14, h, 0, 0, 0, time.UTC)
}

func span(from, to int) models.TimeRange {
	return models.TimeRange{Start: at(from), End: at(to)}
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// memoryStore is a schedule store kept in memory. Transactions are delegated to sqlmock so
// begin/commit/rollback ordering can be asserted; row changes apply immediately.
type memoryStore struct {
	*txProviderMock

	mu      sync.Mutex
	rows    []models.Reservation
	nextID  int64
	locked  [][]int64
	queries int

	// held mimics pg_advisory_xact_lock: one slot per resource, freed when the writer's
	// context ends, which the service does right after commit or rollback.
	held map[int64]chan struct{}
	// arrived receives a value each time a writer starts waiting for locks.
	arrived chan struct{}

	// afterLock runs once locks are held, standing in for a writer that committed in between.
	afterLock func(s *memoryStore)
	findErr   error
}

func newMemoryStore(t *testing.T) (*memoryStore, sqlmock.Sqlmock) {
	provider, mock := newTxProviderMock(t)
	return &memoryStore{
		txProviderMock: provider,
		nextID:         100,
		held:           make(map[int64]chan struct{}),
		arrived:        make(chan struct{}, 8),
	}, mock
}

func (s *memoryStore) seed(resourceID, eventID int64, interval models.TimeRange) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.rows = append(s.rows, models.Reservation{
		ID:         s.nextID,
		ResourceID: resourceID,
		EventID:    eventID,
		StartTime:  interval.Start,
		EndTime:    interval.End,
	})
	return s.nextID
}

func (s *memoryStore) deleteEvent(eventID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, r := range s.rows {
		if r.EventID != eventID {
			kept = append(kept, r)
		}
	}
	s.rows = kept
}

func (s *memoryStore) FindOverlaps(ctx context.Context, q sqlx.QueryerContext, resourceIDs []int64, interval models.TimeRange, excludeID *int64) ([]models.ScheduleOverlap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	if s.findErr != nil {
		return nil, s.findErr
	}
	wanted := make(map[int64]bool, len(resourceIDs))
	for _, id := range resourceIDs {
		wanted[id] = true
	}
	var out []models.ScheduleOverlap
	for _, r := range s.rows {
		if !wanted[r.ResourceID] || !r.Interval().Overlaps(interval) {
			continue
		}
		if excludeID != nil && r.ID == *excludeID {
			continue
		}
		out = append(out, models.ScheduleOverlap{
			ScheduleID:   r.ID,
			ResourceID:   r.ResourceID,
			ResourceName: fmt.Sprintf("Resource %d", r.ResourceID),
			EventID:      r.EventID,
			EventName:    fmt.Sprintf("Event %d", r.EventID),
			TaskID:       r.TaskID,
			StartTime:    r.StartTime,
			EndTime:      r.EndTime,
			IsOverride:   r.IsOverride,
		})
	}
	return out, nil
}

func (s *memoryStore) FindByID(ctx context.Context, q sqlx.QueryerContext, id int64, forUpdate bool) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memoryStore) LockResources(ctx context.Context, e sqlx.ExecerContext, resourceIDs []int64) error {
	s.mu.Lock()
	s.locked = append(s.locked, append([]int64(nil), resourceIDs...))
	slots := make([]chan struct{}, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		slot, ok := s.held[id]
		if !ok {
			slot = make(chan struct{}, 1)
			s.held[id] = slot
		}
		slots = append(slots, slot)
	}
	s.mu.Unlock()

	select {
	case s.arrived <- struct{}{}:
	default:
	}

	acquired := make([]chan struct{}, 0, len(slots))
	release := func() {
		for _, slot := range acquired {
			<-slot
		}
	}
	for _, slot := range slots {
		select {
		case slot <- struct{}{}:
			acquired = append(acquired, slot)
		case <-ctx.Done():
			release()
			return ctx.Err()
		}
	}
	go func() {
		<-ctx.Done()
		release()
	}()

	s.mu.Lock()
	hook := s.afterLock
	s.afterLock = nil
	s.mu.Unlock()
	if hook != nil {
		hook(s)
	}
	return nil
}

func (s *memoryStore) moveReservation(id, resourceID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].ResourceID = resourceID
		}
	}
}

// InsertBatch enforces the exclusion rule the way the database does.
func (s *memoryStore) InsertBatch(ctx context.Context, q sqlx.QueryerContext, reservations []models.Reservation) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]models.Reservation, 0, len(reservations))
	for _, item := range reservations {
		if !item.IsOverride {
			for _, existing := range s.rows {
				if existing.ResourceID == item.ResourceID && !existing.IsOverride && existing.Interval().Overlaps(item.Interval()) {
					return nil, &pq.Error{Code: "23P01", Constraint: "resource_schedules_no_overlap"}
				}
			}
		}
		s.nextID++
		item.ID = s.nextID
		item.CreatedAt = at(0)
		item.UpdatedAt = at(0)
		stored = append(stored, item)
	}
	s.rows = append(s.rows, stored...)
	return stored, nil
}

func (s *memoryStore) Delete(ctx context.Context, e sqlx.ExecerContext, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rows {
		if r.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
