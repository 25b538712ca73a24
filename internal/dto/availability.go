package dto

import "time"

// AvailabilityQuery selects a resource calendar window.
type AvailabilityQuery struct {
	ResourceID int64  `form:"resource_id" json:"resource_id" validate:"required,gt=0"`
	StartDate  string `form:"start_date" json:"start_date" validate:"required"`
	EndDate    string `form:"end_date" json:"end_date" validate:"required"`
}

// AvailabilityEntry is one booked interval on the calendar.
type AvailabilityEntry struct {
	ID         int64     `json:"id"`
	EventID    int64     `json:"event_id"`
	EventName  string    `json:"event_name"`
	TaskID     *int64    `json:"task_id,omitempty"`
	TaskTitle  *string   `json:"task_title,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Notes      *string   `json:"notes,omitempty"`
	IsOverride bool      `json:"is_override"`
}

// AvailabilityResponse lists a resource's reservations in chronological order.
type AvailabilityResponse struct {
	ResourceID int64               `json:"resource_id"`
	StartDate  time.Time           `json:"start_date"`
	EndDate    time.Time           `json:"end_date"`
	Entries    []AvailabilityEntry `json:"entries"`
}

// HealthResponse reports store connectivity.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
