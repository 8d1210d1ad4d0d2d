package models

import "time"

// Booking status values. A booking is created "pending" when a checkout is
// initiated and moves to "confirmed" exactly once, when the payment webhook
// is reconciled. Confirmed and cancelled are terminal.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking represents a reserved consultation slot. The contact and product
// fields are a point-in-time snapshot: the record must stand on its own
// without joining back to a mutable catalog or client document.
type Booking struct {
	ID              string    `bson:"id" json:"id"`                                     // Unique booking identifier (UUID)
	ContactName     string    `bson:"contact_name" json:"contactName"`                  // Client full name
	ContactEmail    string    `bson:"contact_email" json:"contactEmail"`                // Client email
	ContactPhone    string    `bson:"contact_phone" json:"contactPhone"`                // Client phone
	Start           time.Time `bson:"start" json:"start"`                               // Slot start, always stored in UTC
	DurationMinutes int       `bson:"duration_minutes" json:"durationMinutes"`          // Slot length in minutes
	ProductID       string    `bson:"product_id" json:"productId"`                      // Booked service/product reference
	ClientID        string    `bson:"client_id,omitempty" json:"clientId,omitempty"`    // Linked portal client, if any
	StaffID         string    `bson:"staff_id,omitempty" json:"staffId,omitempty"`      // Assigned staff member, if any
	Status          string    `bson:"status" json:"status"`                             // pending | confirmed | cancelled
	Amount          int64     `bson:"amount,omitempty" json:"amount,omitempty"`         // Price in minor currency units
	Currency        string    `bson:"currency,omitempty" json:"currency,omitempty"`     // ISO 4217 code
	PaymentID       string    `bson:"payment_id,omitempty" json:"paymentId,omitempty"`  // External payment reference once confirmed
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
}

// End returns the exclusive end of the booking's half-open interval
// [Start, Start+Duration).
func (b Booking) End() time.Time {
	return b.Start.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Overlaps reports whether two bookings occupy intersecting time.
// Half-open intervals: back-to-back bookings do not overlap.
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && b.End().After(start)
}
