package bookingRepo

import (
	"context"
	"time"

	"visapoint/models"
)

// Repository is the interval store for booking records. All booking mutation
// in the system goes through the lifecycle service, which in turn goes
// through this interface; nothing writes to the collection directly.
type Repository interface {
	Insert(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)

	// UpdateStatus transitions a booking from one status to another. The
	// update is conditional on the current status so concurrent transitions
	// cannot clobber each other; it reports whether a document matched.
	UpdateStatus(ctx context.Context, id, from, to string, paymentID string) (bool, error)

	// FindOverlapping returns non-cancelled bookings whose half-open interval
	// intersects [start, end).
	FindOverlapping(ctx context.Context, start, end time.Time) ([]models.Booking, error)

	// FindByOwner and FindByDateRange are read projections for dashboards.
	// Both exclude cancelled bookings and order by start ascending.
	FindByOwner(ctx context.Context, ownerID string) ([]models.Booking, error)
	FindByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error)

	// CancelPendingBefore cancels pending bookings created before the cutoff
	// and returns how many were swept.
	CancelPendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
