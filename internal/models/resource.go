package models

import "time"

// ResourceCategory classifies assignable resources.
type ResourceCategory string

const (
	ResourceCategoryStaff     ResourceCategory = "staff"
	ResourceCategoryEquipment ResourceCategory = "equipment"
	ResourceCategoryMaterials ResourceCategory = "materials"
)

// Resource is an assignable entity. Identical items are separate rows; there is no quantity.
type Resource struct {
	ID          int64            `db:"id" json:"id"`
	Name        string           `db:"name" json:"name"`
	Category    ResourceCategory `db:"category" json:"category"`
	HourlyRate  *float64         `db:"hourly_rate" json:"hourly_rate,omitempty"`
	IsAvailable bool             `db:"is_available" json:"is_available"`
	Notes       *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// HealthStatus summarises store connectivity.
type HealthStatus struct {
	Healthy  bool
	Database bool
}
