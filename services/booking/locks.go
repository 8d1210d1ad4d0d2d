package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// SlotLock serializes the availability-check-then-insert sequence. Two
// concurrent booking requests can otherwise both see an empty conflict set
// and both insert; holding the lock across check+insert closes that race.
type SlotLock interface {
	// Acquire takes the calendar lock, returning an opaque token used to
	// release it. ErrLockBusy when another request holds it.
	Acquire(ctx context.Context, key string) (string, error)
	Release(ctx context.Context, key, token string) error
}

// releaseScript deletes the lock only when the stored token matches, so an
// expired lock re-acquired by another request is never released by the
// original holder.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// RedisSlotLock implements SlotLock with a SETNX key carrying a TTL. The TTL
// bounds how long a crashed holder can block the calendar.
type RedisSlotLock struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisSlotLock(client *redis.Client, ttl time.Duration) *RedisSlotLock {
	return &RedisSlotLock{Client: client, TTL: ttl}
}

func (l *RedisSlotLock) Acquire(ctx context.Context, key string) (string, error) {
	token := uuid.New().String()
	ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire slot lock: %w", err)
	}
	if !ok {
		return "", ErrLockBusy
	}
	return token, nil
}

func (l *RedisSlotLock) Release(ctx context.Context, key, token string) error {
	if err := l.Client.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release slot lock: %w", err)
	}
	return nil
}

// LocalSlotLock is an in-process SlotLock for single-instance deployments
// and tests. It is non-blocking like the Redis variant: a held lock yields
// ErrLockBusy rather than queueing.
type LocalSlotLock struct {
	mu     sync.Mutex
	tokens map[string]string
}

func NewLocalSlotLock() *LocalSlotLock {
	return &LocalSlotLock{tokens: make(map[string]string)}
}

func (l *LocalSlotLock) Acquire(_ context.Context, key string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.tokens[key]; held {
		return "", ErrLockBusy
	}
	token := uuid.New().String()
	l.tokens[key] = token
	return token, nil
}

func (l *LocalSlotLock) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokens[key] == token {
		delete(l.tokens, key)
	}
	return nil
}
