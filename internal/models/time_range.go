package models

import (
	"errors"
	"time"
)

// ErrInvalidInterval is returned when an interval does not end strictly after it starts.
var ErrInvalidInterval = errors.New("end must be after start")

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Validate rejects empty and inverted intervals.
func (r TimeRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || !r.End.After(r.Start) {
		return ErrInvalidInterval
	}
	return nil
}

// Overlaps reports whether r and other share an instant. Touching intervals do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Duration returns End - Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}
