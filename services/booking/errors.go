package booking

import (
	"errors"
	"fmt"

	"visapoint/models"
)

var (
	// ErrNotFound is returned when a booking id does not resolve.
	ErrNotFound = errors.New("booking not found")

	// ErrAlreadyCancelled is returned when confirming a cancelled booking.
	// Cancelled is terminal; a paid webhook landing here is a reconciliation
	// failure, not a silent success.
	ErrAlreadyCancelled = errors.New("booking already cancelled")

	// ErrLockBusy is returned when the calendar lock could not be acquired.
	ErrLockBusy = errors.New("calendar busy, retry")
)

// ValidationError reports a missing or malformed booking field, rejected
// before any side effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError reports that the requested slot overlaps existing bookings.
// The conflicts are included for caller diagnostics.
type ConflictError struct {
	Conflicts []models.Booking
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot unavailable: %d conflicting booking(s)", len(e.Conflicts))
}
