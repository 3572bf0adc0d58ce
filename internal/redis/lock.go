package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrKeyClaimed = errors.New("idempotency key already claimed")
)

// Guard makes a keyed operation run at most once per TTL window.
type Guard interface {
	Once(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// LockClient is the subset of *redis.Client the guard needs.
type LockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

type redisIdempotencyGuard struct {
	client LockClient
	ttl    time.Duration
}

// NewIdempotencyGuard creates a guard backed by one Redis key per
// idempotency key. A claim outlives fn and expires after ttl; it is released
// early only when fn fails, so the caller can retry.
func NewIdempotencyGuard(client LockClient, ttl time.Duration) Guard {
	return &redisIdempotencyGuard{
		client: client,
		ttl:    ttl,
	}
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:intake:%s", key)
}

func (g *redisIdempotencyGuard) Once(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	rkey := idempotencyKey(key)
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, rkey, token, g.ttl).Result()
	if err != nil {
		return fmt.Errorf("claim idempotency key: %w", err)
	}
	if !ok {
		return ErrKeyClaimed
	}

	if err := fn(ctx); err != nil {
		// release with a fresh context, the request one may be cancelled
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = g.release(relCtx, rkey, token)
		return err
	}
	return nil
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (g *redisIdempotencyGuard) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, g.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
