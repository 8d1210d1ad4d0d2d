package booking

import (
	"context"
	"fmt"
	"time"

	bookingRepo "visapoint/database/repository/booking"
	"visapoint/models"
)

// AvailabilityResult is returned by the availability check. Conflicts are
// included so the caller can show what blocks the slot.
type AvailabilityResult struct {
	Available bool             `json:"available"`
	Conflicts []models.Booking `json:"conflicts"`
}

// AvailabilityChecker answers whether a candidate interval is free. It is
// read-only; the lifecycle service repeats the check under the calendar lock
// before inserting, so callers can use this freely for display.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, start time.Time, durationMinutes int) (AvailabilityResult, error)
}

// DefaultAvailabilityChecker queries the interval store for true interval
// overlap: an existing booking conflicts when it starts before the candidate
// ends and ends after the candidate starts. A long booking that merely
// extends into the candidate window is therefore detected.
type DefaultAvailabilityChecker struct {
	Repo bookingRepo.Repository
}

func (c *DefaultAvailabilityChecker) CheckAvailability(ctx context.Context, start time.Time, durationMinutes int) (AvailabilityResult, error) {
	if durationMinutes <= 0 {
		return AvailabilityResult{}, &ValidationError{Field: "durationMinutes", Message: "must be positive"}
	}

	start = start.UTC()
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	conflicts, err := c.Repo.FindOverlapping(ctx, start, end)
	if err != nil {
		return AvailabilityResult{}, fmt.Errorf("availability query failed: %w", err)
	}

	return AvailabilityResult{
		Available: len(conflicts) == 0,
		Conflicts: conflicts,
	}, nil
}
