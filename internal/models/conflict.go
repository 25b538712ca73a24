package models

import (
	"fmt"
	"time"
)

// Conflict explains why a candidate interval cannot be booked on one resource.
// It is derived per (resource, existing reservation) pair and never stored.
type Conflict struct {
	ResourceID     int64
	ResourceName   string
	ScheduleID     int64
	EventID        int64
	EventName      string
	TaskID         *int64
	TaskTitle      *string
	ExistingStart  time.Time
	ExistingEnd    time.Time
	RequestedStart time.Time
	RequestedEnd   time.Time
	Message        string
}

// NewConflict builds the conflict for an overlap against the requested interval.
func NewConflict(overlap ScheduleOverlap, requested TimeRange) Conflict {
	return Conflict{
		ResourceID:     overlap.ResourceID,
		ResourceName:   overlap.ResourceName,
		ScheduleID:     overlap.ScheduleID,
		EventID:        overlap.EventID,
		EventName:      overlap.EventName,
		TaskID:         overlap.TaskID,
		TaskTitle:      overlap.TaskTitle,
		ExistingStart:  overlap.StartTime,
		ExistingEnd:    overlap.EndTime,
		RequestedStart: requested.Start,
		RequestedEnd:   requested.End,
		Message:        conflictMessage(overlap),
	}
}

func conflictMessage(o ScheduleOverlap) string {
	owner := fmt.Sprintf("event %q", o.EventName)
	if o.TaskTitle != nil && *o.TaskTitle != "" {
		owner = fmt.Sprintf("task %q of event %q", *o.TaskTitle, o.EventName)
	}
	return fmt.Sprintf("%s is already booked for %s from %s to %s",
		o.ResourceName,
		owner,
		o.StartTime.UTC().Format(time.RFC3339),
		o.EndTime.UTC().Format(time.RFC3339),
	)
}

// CommitRequest asks the writer to reserve every resource over one interval.
type CommitRequest struct {
	ResourceIDs []int64
	Interval    TimeRange
	Owner       ReservationOwner
	Force       bool
	Notes       *string
}

// CommitResult reports either the written reservations or the conflicts that blocked them.
type CommitResult struct {
	Committed    bool
	Reservations []Reservation
	Conflicts    []Conflict
}
