package dto

import "github.com/noah-isme/resource-conflict-api/internal/models"

// NewConflictItems converts engine conflicts to their wire form. The result is never nil.
func NewConflictItems(conflicts []models.Conflict) []ConflictItem {
	items := make([]ConflictItem, 0, len(conflicts))
	for _, c := range conflicts {
		items = append(items, ConflictItem{
			ResourceID:            c.ResourceID,
			ResourceName:          c.ResourceName,
			ConflictingScheduleID: c.ScheduleID,
			ConflictingEventID:    c.EventID,
			ConflictingEventName:  c.EventName,
			ConflictingTaskID:     c.TaskID,
			ConflictingTaskTitle:  c.TaskTitle,
			ExistingStartTime:     c.ExistingStart,
			ExistingEndTime:       c.ExistingEnd,
			RequestedStartTime:    c.RequestedStart,
			RequestedEndTime:      c.RequestedEnd,
			Message:               c.Message,
		})
	}
	return items
}

// NewCommitResponse converts a commit result to its wire form.
func NewCommitResponse(result *models.CommitResult) CommitResponse {
	if result == nil {
		return CommitResponse{}
	}
	if !result.Committed {
		return CommitResponse{Committed: false, Conflicts: NewConflictItems(result.Conflicts)}
	}
	items := make([]ReservationItem, 0, len(result.Reservations))
	for _, r := range result.Reservations {
		items = append(items, ReservationItem{
			ID:         r.ID,
			ResourceID: r.ResourceID,
			EventID:    r.EventID,
			TaskID:     r.TaskID,
			StartTime:  r.StartTime,
			EndTime:    r.EndTime,
			Notes:      r.Notes,
			IsOverride: r.IsOverride,
			CreatedAt:  r.CreatedAt,
		})
	}
	return CommitResponse{Committed: true, Reservations: items}
}

// NewAvailabilityEntries converts calendar rows to their wire form. The result is never nil.
func NewAvailabilityEntries(entries []models.ScheduleEntry) []AvailabilityEntry {
	out := make([]AvailabilityEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, AvailabilityEntry{
			ID:         e.ID,
			EventID:    e.EventID,
			EventName:  e.EventName,
			TaskID:     e.TaskID,
			TaskTitle:  e.TaskTitle,
			StartTime:  e.StartTime,
			EndTime:    e.EndTime,
			Notes:      e.Notes,
			IsOverride: e.IsOverride,
		})
	}
	return out
}
