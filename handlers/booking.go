package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"visapoint/models"
	"visapoint/services/booking"
	"visapoint/services/payment"
	"visapoint/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking engine over HTTP.
type BookingHandler struct {
	Lifecycle    booking.LifecycleManager
	Availability booking.AvailabilityChecker
	Gateways     map[string]payment.Gateway
	Logger       *zap.Logger
}

func NewBookingHandler(lifecycle booking.LifecycleManager, availability booking.AvailabilityChecker, gateways map[string]payment.Gateway, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		Lifecycle:    lifecycle,
		Availability: availability,
		Gateways:     gateways,
		Logger:       logger,
	}
}

// CreateBooking creates a confirmed booking with no payment attached.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var input booking.BookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	created, err := h.Lifecycle.CreateDirect(c.Request.Context(), input)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// CreateCheckout creates a pending booking plus an external checkout session
// on the gateway named in the path.
func (h *BookingHandler) CreateCheckout(c *gin.Context) {
	gateway, ok := h.Gateways[c.Param("gateway")]
	if !ok {
		utils.JSONError(c, http.StatusNotFound, "unknown payment gateway", c.Param("gateway"))
		return
	}

	var input booking.BookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	ctx := c.Request.Context()
	pending, err := h.Lifecycle.CreatePending(ctx, input)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	session, err := gateway.CreateCheckout(ctx, pending)
	if err != nil {
		// The pending booking stays behind; the expiry sweeper reclaims the
		// slot if the client never retries the checkout.
		h.Logger.Error("checkout creation failed after pending booking insert",
			zap.String("bookingID", pending.ID),
			zap.String("gateway", gateway.Name()),
			zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "failed to create checkout session", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkoutUrl": session.CheckoutURL,
		"sessionId":   session.SessionID,
		"bookingId":   pending.ID,
	})
}

// GetAvailability answers whether a candidate slot is free.
func (h *BookingHandler) GetAvailability(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid start", "expected RFC3339 timestamp")
		return
	}
	duration, err := strconv.Atoi(c.Query("durationMinutes"))
	if err != nil || duration <= 0 {
		utils.JSONError(c, http.StatusBadRequest, "invalid durationMinutes", "expected a positive integer")
		return
	}

	result, err := h.Availability.CheckAvailability(c.Request.Context(), start, duration)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if result.Conflicts == nil {
		result.Conflicts = []models.Booking{}
	}
	c.JSON(http.StatusOK, result)
}

// ListByOwner returns a staff member's upcoming bookings.
func (h *BookingHandler) ListByOwner(c *gin.Context) {
	bookings, err := h.Lifecycle.ListByOwner(c.Request.Context(), c.Param("ownerId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	c.JSON(http.StatusOK, bookings)
}

// ListByDate returns the bookings on a single calendar day (UTC).
func (h *BookingHandler) ListByDate(c *gin.Context) {
	day, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", "expected YYYY-MM-DD")
		return
	}
	start := day.UTC()
	end := start.AddDate(0, 0, 1)

	bookings, err := h.Lifecycle.ListByDateRange(c.Request.Context(), start, end)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	c.JSON(http.StatusOK, bookings)
}

// writeServiceError maps service errors onto the HTTP taxonomy.
func (h *BookingHandler) writeServiceError(c *gin.Context, err error) {
	var vErr *booking.ValidationError
	var cErr *booking.ConflictError
	switch {
	case errors.As(err, &vErr):
		utils.JSONError(c, http.StatusBadRequest, "invalid input", vErr.Error())
	case errors.As(err, &cErr):
		c.JSON(http.StatusConflict, gin.H{
			"message":   "slot unavailable",
			"conflicts": cErr.Conflicts,
		})
	case errors.Is(err, booking.ErrLockBusy):
		utils.JSONError(c, http.StatusConflict, "calendar busy", "another booking is being processed, retry shortly")
	case errors.Is(err, booking.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "booking not found", "")
	default:
		h.Logger.Error("booking request failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal error", "")
	}
}
