package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"visapoint/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// StripeGateway is the push-webhook integration: Stripe signs each event
// body and posts it to us directly.
type StripeGateway struct {
	API           *client.API
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Logger        *zap.Logger
}

// NewStripeGateway builds the gateway with its own API client so no global
// key state is shared.
func NewStripeGateway(apiKey, webhookSecret, successURL, cancelURL string, logger *zap.Logger) *StripeGateway {
	return &StripeGateway{
		API:           client.New(apiKey, nil),
		WebhookSecret: webhookSecret,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		Logger:        logger,
	}
}

func (g *StripeGateway) Name() string {
	return models.GatewayStripe
}

// CreateCheckout opens a Stripe Checkout Session. Stripe takes amounts in
// minor units, so the booking amount passes through unchanged.
func (g *StripeGateway) CreateCheckout(ctx context.Context, booking *models.Booking) (*models.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.SuccessURL),
		CancelURL:  stripe.String(g.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(booking.Currency),
					UnitAmount: stripe.Int64(booking.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(booking.ProductID),
					},
				},
			},
		},
	}
	params.Context = ctx

	meta := checkoutMetadata(booking)
	for k, v := range meta.ToMap() {
		params.AddMetadata(k, v)
	}

	sess, err := g.API.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session creation failed: %w", err)
	}

	return &models.CheckoutSession{
		SessionID:   sess.ID,
		Gateway:     models.GatewayStripe,
		CheckoutURL: sess.URL,
		BookingID:   booking.ID,
		Amount:      booking.Amount,
		Currency:    booking.Currency,
	}, nil
}

// ParseWebhook verifies the signature against the raw, unparsed body. Any
// re-serialization before this point would invalidate the signature, so the
// handler hands the bytes over exactly as received.
func (g *StripeGateway) ParseWebhook(ctx context.Context, raw []byte, signature string) (*models.ConfirmationEvent, error) {
	// Endpoints stay pinned to whatever API version they were created with,
	// so a version that differs from the SDK's is not a signature failure.
	event, err := webhook.ConstructEventWithOptions(raw, signature, g.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	if event.Type != "checkout.session.completed" {
		g.Logger.Debug("ignoring stripe event", zap.String("type", string(event.Type)))
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode stripe checkout session: %w", err)
	}

	meta, err := models.MetadataFromMap(sess.Metadata)
	if err != nil {
		return nil, fmt.Errorf("invalid stripe session metadata: %w", err)
	}
	if meta.Kind == "" {
		// Sessions created outside this system carry no discriminator.
		g.Logger.Debug("ignoring stripe session without metadata kind", zap.String("sessionID", sess.ID))
		return nil, nil
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stripe session metadata: %w", err)
	}

	return &models.ConfirmationEvent{
		Gateway:   models.GatewayStripe,
		PaymentID: sess.ID,
		Metadata:  meta,
	}, nil
}

// checkoutMetadata builds the metadata bag embedded in the session. The
// booking id is the critical field; the contact snapshot rides along so the
// fallback path can still reconstruct the booking if the id is ever lost.
func checkoutMetadata(booking *models.Booking) models.BookingMetadata {
	return models.BookingMetadata{
		Kind:            models.MetadataKindBooking,
		BookingID:       booking.ID,
		ContactName:     booking.ContactName,
		ContactEmail:    booking.ContactEmail,
		ContactPhone:    booking.ContactPhone,
		Start:           booking.Start,
		ProductID:       booking.ProductID,
		DurationMinutes: booking.DurationMinutes,
		ClientID:        booking.ClientID,
		StaffID:         booking.StaffID,
	}
}
