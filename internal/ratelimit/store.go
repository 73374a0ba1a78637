package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RedisLimiter adapts a ulule limiter with a Redis store to the Limiter interface.
type RedisLimiter struct {
	inner *limiter.Limiter
}

// NewRedisLimiter builds a fixed-window limiter allowing max requests per window.
func NewRedisLimiter(client *redis.Client, prefix string, max int64, window time.Duration) (*RedisLimiter, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, err
	}
	rate := limiter.Rate{Period: window, Limit: max}
	return &RedisLimiter{inner: limiter.New(store, rate)}, nil
}

// Allow registers one hit for the key and reports the limiter decision.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	lctx, err := l.inner.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Allowed:   !lctx.Reached,
		Limit:     lctx.Limit,
		Remaining: lctx.Remaining,
		Reset:     time.Unix(lctx.Reset, 0),
	}, nil
}
