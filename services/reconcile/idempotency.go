package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// IdempotencyStore remembers which webhook deliveries have already been
// processed on the fallback path. The preferred confirm-by-id path is
// naturally idempotent and does not need it.
type IdempotencyStore interface {
	// FirstDelivery reports whether this key has not been seen before,
	// atomically recording it if so.
	FirstDelivery(ctx context.Context, key string) (bool, error)
	// Forget drops a recorded key so a later redelivery is treated as
	// first. Used when processing fails after the key was claimed.
	Forget(ctx context.Context, key string) error
}

// RedisIdempotencyStore keys on gateway + external payment id with a long
// TTL; gateways stop retrying well inside it.
type RedisIdempotencyStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{Client: client, TTL: 7 * 24 * time.Hour}
}

func (s *RedisIdempotencyStore) FirstDelivery(ctx context.Context, key string) (bool, error) {
	ok, err := s.Client.SetNX(ctx, key, "1", s.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency check failed: %w", err)
	}
	return ok, nil
}

func (s *RedisIdempotencyStore) Forget(ctx context.Context, key string) error {
	if err := s.Client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("idempotency release failed: %w", err)
	}
	return nil
}
