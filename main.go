package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"visapoint/config"
	"visapoint/cron"
	"visapoint/database"
	bookingRepo "visapoint/database/repository/booking"
	quoteRepo "visapoint/database/repository/quote"
	"visapoint/handlers"
	"visapoint/routes"
	"visapoint/services/booking"
	"visapoint/services/payment"
	"visapoint/services/reconcile"
	"visapoint/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitLockClient()

	// Create the Gin router. ErrorHandler recovers panics itself, so the
	// stock Recovery middleware is not stacked on top of it.
	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// repositories.
	bkRepo := bookingRepo.NewMongoBookingRepo(database.DB())
	if err := bkRepo.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: failed to create booking indexes: %v", err)
	}
	qtRepo := quoteRepo.NewMongoQuoteRepo(database.DB())

	// services.
	slotLock := booking.NewRedisSlotLock(
		utils.GetLockClient(),
		time.Duration(config.AppConfig.SlotLockTTLSeconds)*time.Second,
	)
	lifecycle := &booking.DefaultLifecycleManager{
		Repo:       bkRepo,
		Lock:       slotLock,
		Logger:     logger,
		PendingTTL: time.Duration(config.AppConfig.PendingTTLMinutes) * time.Minute,
	}
	availability := &booking.DefaultAvailabilityChecker{
		Repo: bkRepo,
	}

	stripeGateway := payment.NewStripeGateway(
		config.AppConfig.StripeKey,
		config.AppConfig.StripeWebhookSecret,
		config.AppConfig.CheckoutSuccessURL,
		config.AppConfig.CheckoutCancelURL,
		logger,
	)
	mercadoPagoGateway := payment.NewMercadoPagoGateway(
		config.AppConfig.MercadoPagoToken,
		config.AppConfig.MercadoPagoAPIBase,
		config.AppConfig.CheckoutSuccessURL,
		config.AppConfig.CheckoutCancelURL,
		logger,
	)
	gateways := map[string]payment.Gateway{
		stripeGateway.Name():      stripeGateway,
		mercadoPagoGateway.Name(): mercadoPagoGateway,
	}

	dispatcher := &reconcile.Dispatcher{
		Lifecycle:   lifecycle,
		Quotes:      qtRepo,
		Idempotency: reconcile.NewRedisIdempotencyStore(utils.GetLockClient()),
		Alerter:     &reconcile.LogAlerter{Logger: logger},
		Logger:      logger,
	}

	bookingHandler := handlers.NewBookingHandler(lifecycle, availability, gateways, logger)
	webhookHandler := handlers.NewWebhookHandler(gateways, dispatcher, logger)

	routes.RegisterRoutes(router, bookingHandler, webhookHandler)

	// Background sweep of abandoned pending bookings.
	expiryWorker := cron.InitExpiryWorker(lifecycle, logger)
	defer expiryWorker.Stop()

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
