package reconcile

import (
	"context"

	"visapoint/models"

	"go.uber.org/zap"
)

// Alerter is the out-of-band observability channel for reconciliation
// failures. A failed confirm means money was taken but no booking was
// confirmed; acknowledging the webhook with 200 keeps the gateway quiet, so
// this is the only place the failure surfaces.
type Alerter interface {
	ReconciliationFailed(ctx context.Context, event models.ConfirmationEvent, err error)
}

// LogAlerter is the default sink: an error-level log line that operations
// tooling pages on. Swappable for a real alerting client.
type LogAlerter struct {
	Logger *zap.Logger
}

func (a *LogAlerter) ReconciliationFailed(_ context.Context, event models.ConfirmationEvent, err error) {
	a.Logger.Error("payment reconciliation failed, manual follow-up required",
		zap.String("gateway", event.Gateway),
		zap.String("paymentID", event.PaymentID),
		zap.String("bookingID", event.Metadata.BookingID),
		zap.Error(err))
}
