package booking

import (
	"context"
	"testing"
	"time"

	bookingRepo "visapoint/database/repository/booking"
	"visapoint/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedBooking(t *testing.T, repo bookingRepo.Repository, id string, start time.Time, minutes int, status string) models.Booking {
	t.Helper()
	b := models.Booking{
		ID:              id,
		ContactName:     "Ana Silva",
		ContactEmail:    "ana@example.com",
		Start:           start.UTC(),
		DurationMinutes: minutes,
		ProductID:       "visa-consultation",
		Status:          status,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(context.Background(), &b))
	return b
}

func TestCheckAvailability(t *testing.T) {
	base := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		existing      []models.Booking
		start         time.Time
		duration      int
		wantAvailable bool
		wantConflicts int
	}{
		{
			name:          "empty calendar",
			start:         base,
			duration:      60,
			wantAvailable: true,
		},
		{
			name: "candidate starts inside existing booking",
			existing: []models.Booking{
				{ID: "b1", Start: base, DurationMinutes: 60, Status: models.BookingStatusConfirmed},
			},
			start:         base.Add(30 * time.Minute),
			duration:      30,
			wantAvailable: false,
			wantConflicts: 1,
		},
		{
			name: "adjacent slot on half-open boundary",
			existing: []models.Booking{
				{ID: "b1", Start: base, DurationMinutes: 60, Status: models.BookingStatusConfirmed},
			},
			start:         base.Add(60 * time.Minute),
			duration:      30,
			wantAvailable: true,
		},
		{
			name: "long existing booking extends into candidate window",
			existing: []models.Booking{
				{ID: "b1", Start: base.Add(-90 * time.Minute), DurationMinutes: 120, Status: models.BookingStatusConfirmed},
			},
			start:         base,
			duration:      30,
			wantAvailable: false,
			wantConflicts: 1,
		},
		{
			name: "cancelled bookings do not conflict",
			existing: []models.Booking{
				{ID: "b1", Start: base, DurationMinutes: 60, Status: models.BookingStatusCancelled},
			},
			start:         base,
			duration:      60,
			wantAvailable: true,
		},
		{
			name: "pending bookings hold their slot",
			existing: []models.Booking{
				{ID: "b1", Start: base, DurationMinutes: 60, Status: models.BookingStatusPending},
			},
			start:         base.Add(45 * time.Minute),
			duration:      60,
			wantAvailable: false,
			wantConflicts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := bookingRepo.NewMemoryBookingRepo()
			for i := range tt.existing {
				require.NoError(t, repo.Insert(context.Background(), &tt.existing[i]))
			}
			checker := &DefaultAvailabilityChecker{Repo: repo}

			result, err := checker.CheckAvailability(context.Background(), tt.start, tt.duration)
			require.NoError(t, err)
			require.Equal(t, tt.wantAvailable, result.Available)
			require.Len(t, result.Conflicts, tt.wantConflicts)
		})
	}
}

func TestCheckAvailabilityRejectsBadDuration(t *testing.T) {
	checker := &DefaultAvailabilityChecker{Repo: bookingRepo.NewMemoryBookingRepo()}

	_, err := checker.CheckAvailability(context.Background(), time.Now(), 0)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestCheckAvailabilityNormalizesToUTC(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	base := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	seedBooking(t, repo, "b1", base, 60, models.BookingStatusConfirmed)

	// Same instant expressed in a non-UTC zone must still conflict.
	lima := time.FixedZone("America/Lima", -5*3600)
	checker := &DefaultAvailabilityChecker{Repo: repo}
	result, err := checker.CheckAvailability(context.Background(), base.In(lima), 60)
	require.NoError(t, err)
	require.False(t, result.Available)
}

func newTestLifecycle(repo bookingRepo.Repository) *DefaultLifecycleManager {
	return &DefaultLifecycleManager{
		Repo:       repo,
		Lock:       NewLocalSlotLock(),
		Logger:     zap.NewNop(),
		PendingTTL: 30 * time.Minute,
	}
}
