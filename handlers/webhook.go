package handlers

import (
	"errors"
	"net/http"

	"visapoint/services/payment"
	"visapoint/services/reconcile"
	"visapoint/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler receives payment-gateway webhooks. Deliveries are at least
// once; processing failures are acknowledged with 200 anyway (logged and
// alerted internally) so the gateway's retry storm never amplifies an
// internal outage. The single exception is a bad signature, which is
// rejected synchronously.
type WebhookHandler struct {
	Gateways   map[string]payment.Gateway
	Dispatcher *reconcile.Dispatcher
	Logger     *zap.Logger
}

func NewWebhookHandler(gateways map[string]payment.Gateway, dispatcher *reconcile.Dispatcher, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		Gateways:   gateways,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
}

// HandleWebhook processes a delivery for the gateway named in the path.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	gateway, ok := h.Gateways[c.Param("gateway")]
	if !ok {
		utils.JSONError(c, http.StatusNotFound, "unknown payment gateway", c.Param("gateway"))
		return
	}

	// The raw body is handed to the adapter untouched: signature
	// verification is byte-exact, and any re-serialization would break it.
	raw, err := c.GetRawData()
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "unreadable body", err.Error())
		return
	}

	event, err := gateway.ParseWebhook(c.Request.Context(), raw, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrBadSignature) {
			// Security-relevant: never silently dropped.
			h.Logger.Warn("rejected webhook with invalid signature",
				zap.String("gateway", gateway.Name()),
				zap.String("remoteAddr", c.ClientIP()))
			utils.JSONError(c, http.StatusBadRequest, "invalid signature", "")
			return
		}
		h.Logger.Error("webhook parsing failed",
			zap.String("gateway", gateway.Name()),
			zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if event == nil {
		// Valid but irrelevant delivery.
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := h.Dispatcher.Reconcile(c.Request.Context(), *event); err != nil {
		// Already alerted by the dispatcher; acknowledge regardless.
		h.Logger.Error("reconciliation failed",
			zap.String("gateway", gateway.Name()),
			zap.String("paymentID", event.PaymentID),
			zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
