package payment

import (
	"context"
	"errors"

	"visapoint/models"
)

// ErrBadSignature is returned when a pushed webhook body fails signature
// verification. It is the one webhook failure that must be rejected
// synchronously instead of acknowledged.
var ErrBadSignature = errors.New("webhook signature verification failed")

// Gateway normalizes one external payment integration. Both implementations
// produce the same ConfirmationEvent shape; gateway-specific payloads never
// leak past this boundary.
type Gateway interface {
	// Name returns the gateway identifier used in routes and metadata.
	Name() string

	// CreateCheckout opens an external checkout session for a pending
	// booking, embedding the metadata bag that later carries the booking id
	// back on the webhook.
	CreateCheckout(ctx context.Context, booking *models.Booking) (*models.CheckoutSession, error)

	// ParseWebhook turns a raw webhook delivery into a ConfirmationEvent.
	// A nil event with nil error means the delivery is valid but irrelevant
	// (wrong event kind or status) and should simply be acknowledged.
	ParseWebhook(ctx context.Context, raw []byte, signature string) (*models.ConfirmationEvent, error)
}
