package bookingRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"visapoint/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// MemoryBookingRepo is an in-memory Repository for tests and local
// development without a database. Everything is copied in and out so
// callers cannot mutate stored records.
type MemoryBookingRepo struct {
	mu       sync.RWMutex
	bookings map[string]models.Booking
}

func NewMemoryBookingRepo() *MemoryBookingRepo {
	return &MemoryBookingRepo{bookings: make(map[string]models.Booking)}
}

func (repo *MemoryBookingRepo) Insert(_ context.Context, booking *models.Booking) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.bookings[booking.ID] = *booking
	return nil
}

func (repo *MemoryBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	booking, ok := repo.bookings[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &booking, nil
}

func (repo *MemoryBookingRepo) UpdateStatus(_ context.Context, id, from, to string, paymentID string) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	booking, ok := repo.bookings[id]
	if !ok || booking.Status != from {
		return false, nil
	}
	booking.Status = to
	if paymentID != "" {
		booking.PaymentID = paymentID
	}
	repo.bookings[id] = booking
	return true, nil
}

func (repo *MemoryBookingRepo) FindOverlapping(_ context.Context, start, end time.Time) ([]models.Booking, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	var out []models.Booking
	for _, b := range repo.bookings {
		if b.Status == models.BookingStatusCancelled {
			continue
		}
		if b.Overlaps(start, end) {
			out = append(out, b)
		}
	}
	sortByStart(out)
	return out, nil
}

func (repo *MemoryBookingRepo) FindByOwner(_ context.Context, ownerID string) ([]models.Booking, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	var out []models.Booking
	for _, b := range repo.bookings {
		if b.Status != models.BookingStatusCancelled && b.StaffID == ownerID {
			out = append(out, b)
		}
	}
	sortByStart(out)
	return out, nil
}

func (repo *MemoryBookingRepo) FindByDateRange(_ context.Context, start, end time.Time) ([]models.Booking, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	var out []models.Booking
	for _, b := range repo.bookings {
		if b.Status == models.BookingStatusCancelled {
			continue
		}
		if !b.Start.Before(start) && b.Start.Before(end) {
			out = append(out, b)
		}
	}
	sortByStart(out)
	return out, nil
}

func (repo *MemoryBookingRepo) CancelPendingBefore(_ context.Context, cutoff time.Time) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var swept int64
	for id, b := range repo.bookings {
		if b.Status == models.BookingStatusPending && b.CreatedAt.Before(cutoff) {
			b.Status = models.BookingStatusCancelled
			repo.bookings[id] = b
			swept++
		}
	}
	return swept, nil
}

func sortByStart(bookings []models.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].Start.Before(bookings[j].Start)
	})
}
