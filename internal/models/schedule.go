package models

import (
	"encoding/json"
	"time"
)

// Reservation is one row of resource_schedules: a resource held for an event (and optionally
// one of its tasks) over the half-open interval [StartTime, EndTime).
type Reservation struct {
	ID         int64     `db:"id" json:"id"`
	ResourceID int64     `db:"resource_id" json:"resource_id"`
	EventID    int64     `db:"event_id" json:"event_id"`
	TaskID     *int64    `db:"task_id" json:"task_id,omitempty"`
	StartTime  time.Time `db:"start_time" json:"start_time"`
	EndTime    time.Time `db:"end_time" json:"end_time"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	IsOverride bool      `db:"is_override" json:"is_override"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Interval returns the reservation's time range.
func (r Reservation) Interval() TimeRange {
	return TimeRange{Start: r.StartTime, End: r.EndTime}
}

// ReservationOwner identifies what a reservation is held for.
type ReservationOwner struct {
	EventID int64
	TaskID  *int64
}

// ScheduleEntry is a reservation annotated for calendar display.
type ScheduleEntry struct {
	ID         int64     `db:"id"`
	ResourceID int64     `db:"resource_id"`
	EventID    int64     `db:"event_id"`
	EventName  string    `db:"event_name"`
	TaskID     *int64    `db:"task_id"`
	TaskTitle  *string   `db:"task_title"`
	StartTime  time.Time `db:"start_time"`
	EndTime    time.Time `db:"end_time"`
	Notes      *string   `db:"notes"`
	IsOverride bool      `db:"is_override"`
}

// ScheduleOverlap is an existing reservation found to intersect a candidate interval,
// joined with the names needed to explain it.
type ScheduleOverlap struct {
	ScheduleID   int64     `db:"id"`
	ResourceID   int64     `db:"resource_id"`
	ResourceName string    `db:"resource_name"`
	EventID      int64     `db:"event_id"`
	EventName    string    `db:"event_name"`
	TaskID       *int64    `db:"task_id"`
	TaskTitle    *string   `db:"task_title"`
	StartTime    time.Time `db:"start_time"`
	EndTime      time.Time `db:"end_time"`
	IsOverride   bool      `db:"is_override"`
}

// Interval returns the overlapping reservation's time range.
func (o ScheduleOverlap) Interval() TimeRange {
	return TimeRange{Start: o.StartTime, End: o.EndTime}
}

// IdempotencyRecord is the replayable outcome of a keyed commit request.
type IdempotencyRecord struct {
	Fingerprint string          `json:"fingerprint"`
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body"`
	CreatedAt   time.Time       `json:"created_at"`
}
