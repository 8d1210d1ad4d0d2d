package cron

import (
	"context"
	"time"

	"visapoint/services/booking"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// InitExpiryWorker runs the pending-booking sweeper in the background. A
// pending booking that never receives its confirming webhook would otherwise
// hold its slot forever.
func InitExpiryWorker(lifecycle booking.LifecycleManager, logger *zap.Logger) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc("@every 1m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := lifecycle.ExpirePending(ctx); err != nil {
			logger.Error("pending booking sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("failed to schedule pending booking sweep", zap.Error(err))
	}
	c.Start()
	logger.Info("pending booking expiry worker started")
	return c
}
