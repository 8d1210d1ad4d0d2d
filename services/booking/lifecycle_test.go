package booking

import (
	"context"
	"testing"
	"time"

	bookingRepo "visapoint/database/repository/booking"
	"visapoint/models"

	"github.com/stretchr/testify/require"
)

func validInput(start time.Time) BookingInput {
	return BookingInput{
		ContactName:     "Ana Silva",
		ContactEmail:    "ana@example.com",
		ContactPhone:    "+51 999 000 111",
		Start:           start,
		DurationMinutes: 60,
		ProductID:       "visa-consultation",
		StaffID:         "staff-1",
		Amount:          15000,
		Currency:        "usd",
	}
}

func TestCreatePendingThenConfirmRoundTrip(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	m := newTestLifecycle(repo)
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	pending, err := m.CreatePending(context.Background(), validInput(start))
	require.NoError(t, err)
	require.Equal(t, models.BookingStatusPending, pending.Status)
	require.NotEmpty(t, pending.ID)

	confirmed, err := m.Confirm(context.Background(), pending.ID, "pi_123")
	require.NoError(t, err)
	require.Equal(t, models.BookingStatusConfirmed, confirmed.Status)
	require.Equal(t, "pi_123", confirmed.PaymentID)

	// All originally-submitted fields unchanged.
	stored, err := repo.GetByID(context.Background(), pending.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana Silva", stored.ContactName)
	require.Equal(t, "ana@example.com", stored.ContactEmail)
	require.Equal(t, start, stored.Start)
	require.Equal(t, 60, stored.DurationMinutes)
	require.Equal(t, "visa-consultation", stored.ProductID)
}

func TestConfirmIsIdempotent(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	m := newTestLifecycle(repo)
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	pending, err := m.CreatePending(context.Background(), validInput(start))
	require.NoError(t, err)

	first, err := m.Confirm(context.Background(), pending.ID, "pi_123")
	require.NoError(t, err)
	second, err := m.Confirm(context.Background(), pending.ID, "pi_123")
	require.NoError(t, err)
	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.PaymentID, second.PaymentID)
}

func TestConfirmUnknownID(t *testing.T) {
	m := newTestLifecycle(bookingRepo.NewMemoryBookingRepo())

	_, err := m.Confirm(context.Background(), "missing", "pi_123")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmCancelledBooking(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	m := newTestLifecycle(repo)
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	pending, err := m.CreatePending(context.Background(), validInput(start))
	require.NoError(t, err)
	_, err = m.Cancel(context.Background(), pending.ID)
	require.NoError(t, err)

	_, err = m.Confirm(context.Background(), pending.ID, "pi_123")
	require.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestCreateRejectsOverlap(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	m := newTestLifecycle(repo)
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	_, err := m.CreatePending(context.Background(), validInput(start))
	require.NoError(t, err)

	overlapping := validInput(start.Add(30 * time.Minute))
	_, err = m.CreatePending(context.Background(), overlapping)
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	require.Len(t, cErr.Conflicts, 1)

	// Adjacent slot is fine: half-open intervals.
	adjacent := validInput(start.Add(60 * time.Minute))
	_, err = m.CreatePending(context.Background(), adjacent)
	require.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	m := newTestLifecycle(bookingRepo.NewMemoryBookingRepo())
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*BookingInput)
	}{
		{"missing name", func(in *BookingInput) { in.ContactName = " " }},
		{"missing email", func(in *BookingInput) { in.ContactEmail = "" }},
		{"zero start", func(in *BookingInput) { in.Start = time.Time{} }},
		{"bad duration", func(in *BookingInput) { in.DurationMinutes = -10 }},
		{"missing product", func(in *BookingInput) { in.ProductID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(start)
			tt.mutate(&in)
			_, err := m.CreatePending(context.Background(), in)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func TestCreateWhileLockHeld(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	m := newTestLifecycle(repo)
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	// Simulate another in-flight booking request holding the calendar.
	lock := m.Lock.(*LocalSlotLock)
	token, err := lock.Acquire(context.Background(), calendarLockKey)
	require.NoError(t, err)

	_, err = m.CreatePending(context.Background(), validInput(start))
	require.ErrorIs(t, err, ErrLockBusy)

	require.NoError(t, lock.Release(context.Background(), calendarLockKey, token))
	_, err = m.CreatePending(context.Background(), validInput(start))
	require.NoError(t, err)
}

func TestCreateConfirmedFallbackBypassesCheck(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	m := newTestLifecycle(repo)
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	_, err := m.CreateDirect(context.Background(), validInput(start))
	require.NoError(t, err)

	// Paid webhook with no recoverable booking id: the booking is created
	// even though it overlaps.
	created, err := m.CreateConfirmedFallback(context.Background(), validInput(start.Add(15*time.Minute)), "mp-777")
	require.NoError(t, err)
	require.Equal(t, models.BookingStatusConfirmed, created.Status)
	require.Equal(t, "mp-777", created.PaymentID)
}

func TestExpirePending(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	m := newTestLifecycle(repo)

	stale := models.Booking{
		ID:              "stale",
		Status:          models.BookingStatusPending,
		Start:           time.Now().UTC().Add(2 * time.Hour),
		DurationMinutes: 60,
		CreatedAt:       time.Now().UTC().Add(-2 * time.Hour),
	}
	fresh := models.Booking{
		ID:              "fresh",
		Status:          models.BookingStatusPending,
		Start:           time.Now().UTC().Add(3 * time.Hour),
		DurationMinutes: 60,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(context.Background(), &stale))
	require.NoError(t, repo.Insert(context.Background(), &fresh))

	swept, err := m.ExpirePending(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, swept)

	got, err := repo.GetByID(context.Background(), "stale")
	require.NoError(t, err)
	require.Equal(t, models.BookingStatusCancelled, got.Status)
	got, err = repo.GetByID(context.Background(), "fresh")
	require.NoError(t, err)
	require.Equal(t, models.BookingStatusPending, got.Status)
}

func TestListProjectionsExcludeCancelled(t *testing.T) {
	repo := bookingRepo.NewMemoryBookingRepo()
	m := newTestLifecycle(repo)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	seedBooking(t, repo, "early", day.Add(9*time.Hour), 60, models.BookingStatusConfirmed)
	seedBooking(t, repo, "late", day.Add(15*time.Hour), 60, models.BookingStatusConfirmed)
	seedBooking(t, repo, "gone", day.Add(11*time.Hour), 60, models.BookingStatusCancelled)

	got, err := m.ListByDateRange(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "early", got[0].ID)
	require.Equal(t, "late", got[1].ID)
}
