package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/resource-conflict-api/internal/models"
)

const overlapSelect = `SELECT rs.id, rs.resource_id, r.name AS resource_name, rs.event_id, e.name AS event_name,
rs.task_id, t.title AS task_title, rs.start_time, rs.end_time, rs.is_override
FROM resource_schedules rs
JOIN resources r ON r.id = rs.resource_id
JOIN events e ON e.id = rs.event_id
LEFT JOIN tasks t ON t.id = rs.task_id
WHERE rs.resource_id = ANY($1)
AND tstzrange(rs.start_time, rs.end_time, '[)') && tstzrange($2, $3, '[)')`

const reservationColumns = `id, resource_id, event_id, task_id, start_time, end_time, notes, is_override, created_at, updated_at`

// ReservationRepository is the schedule store. Overlap lookups go through the GiST range
// index; non-overlap per resource is enforced by the table's exclusion constraint.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// BeginTxx starts a transaction on the underlying pool.
func (r *ReservationRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

func (r *ReservationRepository) queryer(q sqlx.QueryerContext) sqlx.QueryerContext {
	if q != nil {
		return q
	}
	return r.db
}

func (r *ReservationRepository) execer(e sqlx.ExecerContext) sqlx.ExecerContext {
	if e != nil {
		return e
	}
	return r.db
}

// FindOverlaps returns every reservation on any of resourceIDs whose interval intersects
// interval, in one statement. excludeID, when set, is left out of the search.
func (r *ReservationRepository) FindOverlaps(ctx context.Context, q sqlx.QueryerContext, resourceIDs []int64, interval models.TimeRange, excludeID *int64) ([]models.ScheduleOverlap, error) {
	query := overlapSelect
	args := []interface{}{pq.Array(resourceIDs), interval.Start, interval.End}
	if excludeID != nil {
		query += fmt.Sprintf(" AND rs.id <> $%d", len(args)+1)
		args = append(args, *excludeID)
	}
	query += " ORDER BY rs.resource_id ASC, rs.start_time ASC, rs.id ASC"

	var overlaps []models.ScheduleOverlap
	if err := sqlx.SelectContext(ctx, r.queryer(q), &overlaps, query, args...); err != nil {
		return nil, fmt.Errorf("find schedule overlaps: %w", err)
	}
	return overlaps, nil
}

// ListByResource returns the reservations of one resource intersecting [from, to), oldest first.
func (r *ReservationRepository) ListByResource(ctx context.Context, resourceID int64, from, to time.Time) ([]models.ScheduleEntry, error) {
	const query = `SELECT rs.id, rs.resource_id, rs.event_id, e.name AS event_name, rs.task_id, t.title AS task_title,
rs.start_time, rs.end_time, rs.notes, rs.is_override
FROM resource_schedules rs
JOIN events e ON e.id = rs.event_id
LEFT JOIN tasks t ON t.id = rs.task_id
WHERE rs.resource_id = $1
AND tstzrange(rs.start_time, rs.end_time, '[)') && tstzrange($2, $3, '[)')
ORDER BY rs.start_time ASC, rs.id ASC`

	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, resourceID, from, to); err != nil {
		return nil, fmt.Errorf("list schedule by resource: %w", err)
	}
	return entries, nil
}

// FindByID loads a reservation. forUpdate row-locks it for the surrounding transaction.
func (r *ReservationRepository) FindByID(ctx context.Context, q sqlx.QueryerContext, id int64, forUpdate bool) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM resource_schedules WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var reservation models.Reservation
	if err := sqlx.GetContext(ctx, r.queryer(q), &reservation, query, id); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// LockResources takes a transaction-scoped advisory lock per resource, in ascending id
// order so concurrent multi-resource commits cannot deadlock.
func (r *ReservationRepository) LockResources(ctx context.Context, e sqlx.ExecerContext, resourceIDs []int64) error {
	ids := append([]int64(nil), resourceIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, err := r.execer(e).ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, id); err != nil {
			return fmt.Errorf("lock resource %d: %w", id, err)
		}
	}
	return nil
}

// InsertBatch writes reservations and fills in their generated ids and timestamps.
// Callers wrap it in a transaction so a rejected row discards the whole batch.
func (r *ReservationRepository) InsertBatch(ctx context.Context, q sqlx.QueryerContext, reservations []models.Reservation) ([]models.Reservation, error) {
	const query = `INSERT INTO resource_schedules (resource_id, event_id, task_id, start_time, end_time, notes, is_override, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
RETURNING id, created_at, updated_at`

	now := time.Now().UTC()
	stored := make([]models.Reservation, 0, len(reservations))
	for _, item := range reservations {
		row := r.queryer(q).QueryRowxContext(ctx, query,
			item.ResourceID, item.EventID, item.TaskID, item.StartTime, item.EndTime, item.Notes, item.IsOverride, now)
		if err := row.Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("insert reservation for resource %d: %w", item.ResourceID, err)
		}
		stored = append(stored, item)
	}
	return stored, nil
}

// Delete removes a reservation by id, returning sql.ErrNoRows when nothing matched.
func (r *ReservationRepository) Delete(ctx context.Context, e sqlx.ExecerContext, id int64) error {
	res, err := r.execer(e).ExecContext(ctx, `DELETE FROM resource_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete reservation rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
