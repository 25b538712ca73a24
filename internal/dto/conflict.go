package dto

import "time"

// CheckConflictsRequest asks whether an interval is free on a set of resources.
type CheckConflictsRequest struct {
	ResourceIDs       []int64 `json:"resource_ids" validate:"required,min=1,dive,gt=0"`
	StartTime         string  `json:"start_time" validate:"required"`
	EndTime           string  `json:"end_time" validate:"required"`
	ExcludeScheduleID *int64  `json:"exclude_schedule_id,omitempty" validate:"omitempty,gt=0"`
}

// ConflictItem describes one existing reservation that blocks the request.
type ConflictItem struct {
	ResourceID            int64     `json:"resource_id"`
	ResourceName          string    `json:"resource_name"`
	ConflictingScheduleID int64     `json:"conflicting_schedule_id"`
	ConflictingEventID    int64     `json:"conflicting_event_id"`
	ConflictingEventName  string    `json:"conflicting_event_name"`
	ConflictingTaskID     *int64    `json:"conflicting_task_id,omitempty"`
	ConflictingTaskTitle  *string   `json:"conflicting_task_title,omitempty"`
	ExistingStartTime     time.Time `json:"existing_start_time"`
	ExistingEndTime       time.Time `json:"existing_end_time"`
	RequestedStartTime    time.Time `json:"requested_start_time"`
	RequestedEndTime      time.Time `json:"requested_end_time"`
	Message               string    `json:"message"`
}

// CheckConflictsResponse is the result of a conflict check. Conflicts is never null.
type CheckConflictsResponse struct {
	HasConflicts bool           `json:"has_conflicts"`
	Conflicts    []ConflictItem `json:"conflicts"`
}
