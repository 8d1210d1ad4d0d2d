package reconcile

import (
	"context"
	"fmt"

	quoteRepo "visapoint/database/repository/quote"
	"visapoint/models"
	"visapoint/services/booking"

	"go.uber.org/zap"
)

// Dispatcher consumes normalized confirmation events and drives the booking
// lifecycle (or the quote-approval side effect) idempotently. Deliveries are
// at least once; nothing here may assume exactly once.
type Dispatcher struct {
	Lifecycle   booking.LifecycleManager
	Quotes      quoteRepo.QuoteRepository
	Idempotency IdempotencyStore
	Alerter     Alerter
	Logger      *zap.Logger
}

// Reconcile processes one delivery. A returned error means internal
// processing failed; the webhook handler still acknowledges the gateway and
// the Alerter has already been notified where the failure left paid state
// unreconciled.
func (d *Dispatcher) Reconcile(ctx context.Context, event models.ConfirmationEvent) error {
	// Route on the metadata discriminator, never on gateway event kind: both
	// families arrive through the same webhook entry points.
	switch event.Metadata.Kind {
	case models.MetadataKindQuote:
		return d.approveQuotes(ctx, event)
	case models.MetadataKindBooking:
		return d.reconcileBooking(ctx, event)
	default:
		d.Logger.Warn("dropping event with unknown metadata kind",
			zap.String("kind", event.Metadata.Kind),
			zap.String("gateway", event.Gateway))
		return nil
	}
}

func (d *Dispatcher) reconcileBooking(ctx context.Context, event models.ConfirmationEvent) error {
	if id := event.Metadata.BookingID; id != "" {
		// Preferred path: confirm the pending booking. Idempotent, so
		// redeliveries land here harmlessly.
		if _, err := d.Lifecycle.Confirm(ctx, id, event.PaymentID); err != nil {
			d.Alerter.ReconciliationFailed(ctx, event, err)
			return fmt.Errorf("confirm booking %s: %w", id, err)
		}
		d.Logger.Info("booking reconciled",
			zap.String("bookingID", id),
			zap.String("gateway", event.Gateway))
		return nil
	}

	// Legacy path: no booking id in the metadata. The payment id is the only
	// stable handle, so it becomes the dedup key; without it a redelivered
	// webhook would create a duplicate confirmed booking.
	key := fmt.Sprintf("recon:%s:%s", event.Gateway, event.PaymentID)
	first, err := d.Idempotency.FirstDelivery(ctx, key)
	if err != nil {
		d.Alerter.ReconciliationFailed(ctx, event, err)
		return err
	}
	if !first {
		d.Logger.Info("dropping replayed fallback delivery",
			zap.String("gateway", event.Gateway),
			zap.String("paymentID", event.PaymentID))
		return nil
	}

	in := booking.BookingInput{
		ContactName:     event.Metadata.ContactName,
		ContactEmail:    event.Metadata.ContactEmail,
		ContactPhone:    event.Metadata.ContactPhone,
		Start:           event.Metadata.Start,
		DurationMinutes: event.Metadata.DurationMinutes,
		ProductID:       event.Metadata.ProductID,
		ClientID:        event.Metadata.ClientID,
		StaffID:         event.Metadata.StaffID,
	}
	created, err := d.Lifecycle.CreateConfirmedFallback(ctx, in, event.PaymentID)
	if err != nil {
		// Give the key back so the gateway's redelivery gets another attempt;
		// otherwise the paid booking is lost behind an "already processed" key.
		if ferr := d.Idempotency.Forget(ctx, key); ferr != nil {
			d.Logger.Error("failed to release idempotency key",
				zap.String("key", key), zap.Error(ferr))
		}
		d.Alerter.ReconciliationFailed(ctx, event, err)
		return fmt.Errorf("fallback booking creation: %w", err)
	}
	d.Logger.Info("fallback booking reconciled",
		zap.String("bookingID", created.ID),
		zap.String("gateway", event.Gateway))
	return nil
}

// approveQuotes approves every pending translation quote linked to the paid
// documents and advances each document's workflow status. Quote approval is
// conditional on pending status, so redeliveries are no-ops.
func (d *Dispatcher) approveQuotes(ctx context.Context, event models.ConfirmationEvent) error {
	var firstErr error
	for _, docID := range event.Metadata.DocumentIDs {
		quotes, err := d.Quotes.GetPendingByDocumentID(ctx, docID)
		if err != nil {
			d.Logger.Error("failed to load quotes for document",
				zap.String("documentID", docID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, q := range quotes {
			if err := d.Quotes.ApproveQuote(ctx, q.ID); err != nil {
				d.Logger.Error("failed to approve quote",
					zap.String("quoteID", q.ID), zap.Error(err))
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		advanced, err := d.Quotes.AdvanceDocumentStatus(ctx, docID,
			models.DocumentStatusQuoted, models.DocumentStatusInProgress)
		if err != nil {
			d.Logger.Error("failed to advance document status",
				zap.String("documentID", docID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		} else if !advanced {
			// Already in progress; expected on redelivery.
			d.Logger.Debug("document already advanced", zap.String("documentID", docID))
		}
	}
	if firstErr != nil {
		d.Alerter.ReconciliationFailed(ctx, event, firstErr)
	}
	return firstErr
}
