package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	bookingRepo "visapoint/database/repository/booking"
	"visapoint/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// calendarLockKey guards the whole consultation calendar. Bookings from any
// staff member share one timeline, so the overlap invariant is global.
const calendarLockKey = "slotlock:calendar"

// BookingInput carries the fields submitted when creating a booking.
type BookingInput struct {
	ContactName     string    `json:"contactName"`
	ContactEmail    string    `json:"contactEmail"`
	ContactPhone    string    `json:"contactPhone"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"durationMinutes"`
	ProductID       string    `json:"productId"`
	ClientID        string    `json:"clientId,omitempty"`
	StaffID         string    `json:"staffId,omitempty"`
	Amount          int64     `json:"amount,omitempty"`
	Currency        string    `json:"currency,omitempty"`
}

// Validate rejects incomplete input before any side effect.
func (in BookingInput) Validate() error {
	switch {
	case strings.TrimSpace(in.ContactName) == "":
		return &ValidationError{Field: "contactName", Message: "required"}
	case strings.TrimSpace(in.ContactEmail) == "":
		return &ValidationError{Field: "contactEmail", Message: "required"}
	case in.Start.IsZero():
		return &ValidationError{Field: "start", Message: "required"}
	case in.DurationMinutes <= 0:
		return &ValidationError{Field: "durationMinutes", Message: "must be positive"}
	case strings.TrimSpace(in.ProductID) == "":
		return &ValidationError{Field: "productId", Message: "required"}
	}
	return nil
}

// LifecycleManager owns the booking state machine:
// pending -> confirmed and pending -> cancelled, both terminal.
type LifecycleManager interface {
	// CreatePending reserves a slot awaiting payment. The availability check
	// and the insert run under the calendar lock.
	CreatePending(ctx context.Context, in BookingInput) (*models.Booking, error)

	// CreateDirect creates a confirmed booking with no payment attached
	// (staff-entered or free consultations). Same locked validation.
	CreateDirect(ctx context.Context, in BookingInput) (*models.Booking, error)

	// CreateConfirmedFallback creates a confirmed booking for a paid webhook
	// whose metadata carries no booking id. The payment has already been
	// taken, so the slot check is advisory: conflicts are logged for staff
	// follow-up instead of rejecting the paid booking.
	CreateConfirmedFallback(ctx context.Context, in BookingInput, paymentID string) (*models.Booking, error)

	// Confirm moves a pending booking to confirmed. Idempotent: confirming
	// an already-confirmed booking returns the record unchanged.
	Confirm(ctx context.Context, id, paymentID string) (*models.Booking, error)

	// Cancel moves a pending booking to cancelled.
	Cancel(ctx context.Context, id string) (*models.Booking, error)

	ListByOwner(ctx context.Context, ownerID string) ([]models.Booking, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error)

	// ExpirePending cancels pending bookings older than the configured TTL.
	ExpirePending(ctx context.Context) (int64, error)
}

// DefaultLifecycleManager is the production lifecycle service.
type DefaultLifecycleManager struct {
	Repo       bookingRepo.Repository
	Lock       SlotLock
	Logger     *zap.Logger
	PendingTTL time.Duration
}

func (m *DefaultLifecycleManager) CreatePending(ctx context.Context, in BookingInput) (*models.Booking, error) {
	return m.createChecked(ctx, in, models.BookingStatusPending)
}

func (m *DefaultLifecycleManager) CreateDirect(ctx context.Context, in BookingInput) (*models.Booking, error) {
	return m.createChecked(ctx, in, models.BookingStatusConfirmed)
}

// createChecked holds the calendar lock across the availability re-check and
// the insert, so no other request can slip an overlapping booking between
// the two.
func (m *DefaultLifecycleManager) createChecked(ctx context.Context, in BookingInput, status string) (*models.Booking, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	token, err := m.Lock.Acquire(ctx, calendarLockKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := m.Lock.Release(ctx, calendarLockKey, token); err != nil {
			m.Logger.Error("failed to release calendar lock", zap.Error(err))
		}
	}()

	start := in.Start.UTC()
	end := start.Add(time.Duration(in.DurationMinutes) * time.Minute)
	conflicts, err := m.Repo.FindOverlapping(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("overlap check failed: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}

	booking := m.newBooking(in, status)
	if err := m.Repo.Insert(ctx, booking); err != nil {
		return nil, err
	}

	m.Logger.Info("booking created",
		zap.String("bookingID", booking.ID),
		zap.String("status", status),
		zap.Time("start", booking.Start))
	return booking, nil
}

func (m *DefaultLifecycleManager) CreateConfirmedFallback(ctx context.Context, in BookingInput, paymentID string) (*models.Booking, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	start := in.Start.UTC()
	end := start.Add(time.Duration(in.DurationMinutes) * time.Minute)
	conflicts, err := m.Repo.FindOverlapping(ctx, start, end)
	if err != nil {
		m.Logger.Error("fallback overlap check failed", zap.Error(err))
	} else if len(conflicts) > 0 {
		ids := make([]string, len(conflicts))
		for i, c := range conflicts {
			ids[i] = c.ID
		}
		m.Logger.Warn("paid fallback booking overlaps existing bookings",
			zap.String("paymentID", paymentID),
			zap.Strings("conflictIDs", ids))
	}

	booking := m.newBooking(in, models.BookingStatusConfirmed)
	booking.PaymentID = paymentID
	if err := m.Repo.Insert(ctx, booking); err != nil {
		return nil, err
	}

	m.Logger.Info("fallback booking created from webhook metadata",
		zap.String("bookingID", booking.ID),
		zap.String("paymentID", paymentID))
	return booking, nil
}

func (m *DefaultLifecycleManager) newBooking(in BookingInput, status string) *models.Booking {
	return &models.Booking{
		ID:              uuid.New().String(),
		ContactName:     in.ContactName,
		ContactEmail:    in.ContactEmail,
		ContactPhone:    in.ContactPhone,
		Start:           in.Start.UTC(),
		DurationMinutes: in.DurationMinutes,
		ProductID:       in.ProductID,
		ClientID:        in.ClientID,
		StaffID:         in.StaffID,
		Status:          status,
		Amount:          in.Amount,
		Currency:        in.Currency,
		CreatedAt:       time.Now().UTC(),
	}
}

func (m *DefaultLifecycleManager) Confirm(ctx context.Context, id, paymentID string) (*models.Booking, error) {
	booking, err := m.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch booking.Status {
	case models.BookingStatusConfirmed:
		// Webhooks are delivered at least once; a repeat confirm is success.
		return booking, nil
	case models.BookingStatusCancelled:
		return nil, ErrAlreadyCancelled
	}

	matched, err := m.Repo.UpdateStatus(ctx, id, models.BookingStatusPending, models.BookingStatusConfirmed, paymentID)
	if err != nil {
		return nil, err
	}
	if !matched {
		// Lost a race with a concurrent transition; re-read and decide.
		booking, err = m.getByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if booking.Status == models.BookingStatusConfirmed {
			return booking, nil
		}
		return nil, ErrAlreadyCancelled
	}

	booking.Status = models.BookingStatusConfirmed
	booking.PaymentID = paymentID
	m.Logger.Info("booking confirmed",
		zap.String("bookingID", id),
		zap.String("paymentID", paymentID))
	return booking, nil
}

func (m *DefaultLifecycleManager) Cancel(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := m.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPending {
		return nil, fmt.Errorf("cannot cancel booking %s in status %s", id, booking.Status)
	}

	matched, err := m.Repo.UpdateStatus(ctx, id, models.BookingStatusPending, models.BookingStatusCancelled, "")
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, fmt.Errorf("cannot cancel booking %s: no longer pending", id)
	}

	booking.Status = models.BookingStatusCancelled
	m.Logger.Info("booking cancelled", zap.String("bookingID", id))
	return booking, nil
}

func (m *DefaultLifecycleManager) getByID(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := m.Repo.GetByID(ctx, id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (m *DefaultLifecycleManager) ListByOwner(ctx context.Context, ownerID string) ([]models.Booking, error) {
	return m.Repo.FindByOwner(ctx, ownerID)
}

func (m *DefaultLifecycleManager) ListByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	return m.Repo.FindByDateRange(ctx, start.UTC(), end.UTC())
}

func (m *DefaultLifecycleManager) ExpirePending(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-m.PendingTTL)
	swept, err := m.Repo.CancelPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		m.Logger.Info("expired stale pending bookings", zap.Int64("count", swept))
	}
	return swept, nil
}
