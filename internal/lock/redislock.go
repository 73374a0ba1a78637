package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ErrHeld reports that another instance currently holds the lease.
var ErrHeld = errors.New("lock: held by another instance")

// Locker provides Redis-backed leases for work that must not run concurrently
// across instances, such as the outbox sweep.
type Locker struct {
	R *redis.Client
}

// WithLease runs fn while holding a lease for key. When the lease is already
// held elsewhere ErrHeld is returned without running fn. The lease is released
// on return; the TTL bounds how long a crashed holder can block others.
func (l Locker) WithLease(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrHeld
	}
	defer l.release(context.WithoutCancel(ctx), key, token)
	return fn(ctx)
}

// release deletes the key only if this instance still owns it.
func (l Locker) release(ctx context.Context, key, token string) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
	_ = l.R.Eval(ctx, script, []string{key}, token).Err()
}
