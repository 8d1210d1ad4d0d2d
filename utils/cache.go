package utils

import (
	"context"
	"log"
	"time"

	"visapoint/config"

	"github.com/go-redis/redis/v8"
)

// LockClient is the Redis client for slot locks and reconciliation
// idempotency keys. Kept on its own DB so a cache flush elsewhere never
// releases locks or forgets processed webhooks.
var LockClient *redis.Client

// InitLockClient initializes the Redis client for locks and idempotency keys.
func InitLockClient() {
	LockClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisLockDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := LockClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Locks): %v", err)
	}
}

// GetLockClient returns the Redis client for locks and idempotency keys.
func GetLockClient() *redis.Client {
	if LockClient == nil {
		InitLockClient()
	}
	return LockClient
}
