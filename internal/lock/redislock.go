// Package lock serialises cart-mutating operations per cart token. The lock
// is Redis-backed so concurrent requests across processes contend on the same
// key; operations on distinct tokens never block each other.
package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/checkout-core/internal/obs"
)

// ErrLockTimeout is returned when the lock cannot be acquired before the
// configured acquisition timeout. Callers surface it as "cart is locked,
// retry later"; it is never retried silently here.
var ErrLockTimeout = errors.New("lock: cart is locked")

// CartLocker provides the per-token mutual exclusion guard.
type CartLocker struct {
	R              *redis.Client
	TTL            time.Duration
	RetryBackoff   time.Duration
	AcquireTimeout time.Duration
}

// WithLock executes fn while holding the exclusive lock for the cart token.
// The lock is released on every exit path of fn, including errors and panics.
// When the lock cannot be acquired before the acquisition timeout,
// ErrLockTimeout is returned and fn never runs.
func (l CartLocker) WithLock(ctx context.Context, token string, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	if l.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.AcquireTimeout)
		defer cancel()
	}

	key := "cart:lock:" + token
	holder := uuid.NewString()

	for {
		ok, err := l.R.SetNX(ctx, key, holder, ttl).Result()
		if err != nil {
			if isDeadline(ctx, err) {
				obs.CountLockTimeout()
				return ErrLockTimeout
			}
			return err
		}
		if ok {
			obs.CountLockAcquired()
			defer l.release(context.Background(), key, holder)
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			if isDeadline(ctx, ctx.Err()) {
				obs.CountLockTimeout()
				return ErrLockTimeout
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func isDeadline(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// release deletes the key only if this locker still holds it, so an expired
// lock taken over by another request is never stolen back.
func (l CartLocker) release(ctx context.Context, key, holder string) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
	if err := l.R.Eval(ctx, script, []string{key}, holder).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = l.R.Del(ctx, key).Err()
		}
	}
}
