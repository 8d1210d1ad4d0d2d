package routes

import (
	"net/http"
	"time"

	"visapoint/handlers"
	"visapoint/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers the booking engine endpoints.
func RegisterBookingRoutes(r *gin.Engine, bh *handlers.BookingHandler) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.RateLimitMiddleware())
		api.POST("", bh.CreateBooking)
		api.POST("/checkout/:gateway", bh.CreateCheckout)
		api.GET("/availability", bh.GetAvailability)
		api.GET("/by-owner/:ownerId", bh.ListByOwner)
		api.GET("/by-date/:date", bh.ListByDate)
	}
}

// RegisterWebhookRoutes registers the payment-gateway webhook endpoints.
// No rate limiter here: gateway retries must never be throttled.
func RegisterWebhookRoutes(r *gin.Engine, wh *handlers.WebhookHandler) {
	api := r.Group("/api/webhooks")
	{
		api.POST("/:gateway", wh.HandleWebhook)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, bh *handlers.BookingHandler, wh *handlers.WebhookHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, bh)
	RegisterWebhookRoutes(r, wh)
}
