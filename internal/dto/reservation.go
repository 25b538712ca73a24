package dto

import "time"

// CommitReservationRequest reserves every listed resource for one interval.
type CommitReservationRequest struct {
	ResourceIDs []int64 `json:"resource_ids" validate:"required,min=1,dive,gt=0"`
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	EventID     int64   `json:"event_id" validate:"required,gt=0"`
	TaskID      *int64  `json:"task_id,omitempty" validate:"omitempty,gt=0"`
	Force       bool    `json:"force"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ReviseReservationRequest moves an existing reservation to a new interval.
type ReviseReservationRequest struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Force     bool   `json:"force"`
}

// ReservationItem is a persisted reservation.
type ReservationItem struct {
	ID         int64     `json:"id"`
	ResourceID int64     `json:"resource_id"`
	EventID    int64     `json:"event_id"`
	TaskID     *int64    `json:"task_id,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Notes      *string   `json:"notes,omitempty"`
	IsOverride bool      `json:"is_override"`
	CreatedAt  time.Time `json:"created_at"`
}

// CommitResponse carries either the written reservations or the blocking conflicts.
type CommitResponse struct {
	Committed    bool              `json:"committed"`
	Reservations []ReservationItem `json:"reservations,omitempty"`
	Conflicts    []ConflictItem    `json:"conflicts,omitempty"`
}
