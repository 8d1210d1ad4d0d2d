package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Gateway identifiers. These appear in routes, metadata bags and
// reconciliation idempotency keys, so they are fixed strings.
const (
	GatewayStripe      = "stripe"
	GatewayMercadoPago = "mercadopago"
)

// Metadata kind discriminators. Routing in the reconciliation dispatcher is
// done on this tag, never on the gateway event type alone.
const (
	MetadataKindBooking = "booking"
	MetadataKindQuote   = "quote"
)

// CheckoutSession is the gateway-side resource created alongside a pending
// booking. It is not persisted locally; the metadata bag it carries is the
// only channel that brings the booking id back on the webhook.
type CheckoutSession struct {
	SessionID   string `json:"sessionId"`   // External session/preference id
	Gateway     string `json:"gateway"`     // stripe | mercadopago
	CheckoutURL string `json:"checkoutUrl"` // Where the client completes payment
	BookingID   string `json:"bookingId"`   // Linked pending booking
	Amount      int64  `json:"amount"`      // Minor currency units
	Currency    string `json:"currency"`
}

// BookingMetadata is the closed schema for the string-keyed metadata bag
// attached to a checkout session. Gateways round-trip it verbatim; the
// adapters decode and validate it at the boundary so nothing downstream
// touches raw maps.
type BookingMetadata struct {
	Kind            string    // booking | quote
	BookingID       string    // Empty on legacy sessions created before ids were embedded
	ContactName     string
	ContactEmail    string
	ContactPhone    string
	Start           time.Time // Slot start, UTC; needed to rebuild a booking on the fallback path
	ProductID       string
	DurationMinutes int
	ClientID        string
	StaffID         string
	DocumentIDs     []string // Only set for quote-approval events
}

// Validate checks the fields required to act on the event. A booking event
// without a booking id is still valid (fallback creation path), but then the
// contact snapshot must be recoverable from the bag.
func (m BookingMetadata) Validate() error {
	switch m.Kind {
	case MetadataKindBooking:
		if m.BookingID != "" {
			return nil
		}
		if m.ContactName == "" || m.ContactEmail == "" {
			return errors.New("metadata has neither booking id nor contact snapshot")
		}
		if m.ProductID == "" || m.DurationMinutes <= 0 {
			return errors.New("metadata missing product or duration")
		}
		if m.Start.IsZero() {
			return errors.New("metadata missing slot start")
		}
		return nil
	case MetadataKindQuote:
		if len(m.DocumentIDs) == 0 {
			return errors.New("quote metadata carries no document ids")
		}
		return nil
	default:
		return fmt.Errorf("unknown metadata kind %q", m.Kind)
	}
}

// ToMap flattens the metadata for a gateway metadata bag.
func (m BookingMetadata) ToMap() map[string]string {
	out := map[string]string{
		"kind": m.Kind,
	}
	if m.BookingID != "" {
		out["bookingId"] = m.BookingID
	}
	if m.ContactName != "" {
		out["contactName"] = m.ContactName
	}
	if m.ContactEmail != "" {
		out["contactEmail"] = m.ContactEmail
	}
	if m.ContactPhone != "" {
		out["contactPhone"] = m.ContactPhone
	}
	if !m.Start.IsZero() {
		out["start"] = m.Start.UTC().Format(time.RFC3339)
	}
	if m.ProductID != "" {
		out["productId"] = m.ProductID
	}
	if m.DurationMinutes > 0 {
		out["durationMinutes"] = strconv.Itoa(m.DurationMinutes)
	}
	if m.ClientID != "" {
		out["clientId"] = m.ClientID
	}
	if m.StaffID != "" {
		out["staffId"] = m.StaffID
	}
	if len(m.DocumentIDs) > 0 {
		out["documentIds"] = strings.Join(m.DocumentIDs, ",")
	}
	return out
}

// MetadataFromMap decodes a gateway metadata bag. Unknown keys are ignored;
// a malformed duration is an error rather than a silent zero.
func MetadataFromMap(bag map[string]string) (BookingMetadata, error) {
	m := BookingMetadata{
		Kind:         bag["kind"],
		BookingID:    bag["bookingId"],
		ContactName:  bag["contactName"],
		ContactEmail: bag["contactEmail"],
		ContactPhone: bag["contactPhone"],
		ProductID:    bag["productId"],
		ClientID:     bag["clientId"],
		StaffID:      bag["staffId"],
	}
	if raw := bag["start"]; raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return BookingMetadata{}, fmt.Errorf("invalid start %q: %w", raw, err)
		}
		m.Start = t.UTC()
	}
	if raw := bag["durationMinutes"]; raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			return BookingMetadata{}, fmt.Errorf("invalid durationMinutes %q: %w", raw, err)
		}
		m.DurationMinutes = d
	}
	if raw := bag["documentIds"]; raw != "" {
		m.DocumentIDs = strings.Split(raw, ",")
	}
	return m, nil
}

// ConfirmationEvent is the normalized payment event produced by both gateway
// adapters. Gateway-specific payload shapes never leak past the adapter.
type ConfirmationEvent struct {
	Gateway   string          // Originating gateway
	PaymentID string          // External payment/session id, used as idempotency key material
	Metadata  BookingMetadata // Decoded metadata bag
}
