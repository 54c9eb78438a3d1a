package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-core/internal/lock"
)

func newLocker(t *testing.T) lock.CartLocker {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return lock.CartLocker{R: client, TTL: time.Second, RetryBackoff: 5 * time.Millisecond}
}

func TestWithLockMutualExclusionSameToken(t *testing.T) {
	locker := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var inside, counter int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(ctx, "cart-1", func(context.Context) error {
				mu.Lock()
				inside++
				require.Equal(t, 1, inside)
				counter++
				inside--
				mu.Unlock()
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 8, counter)
}

func TestWithLockDifferentTokensDoNotBlock(t *testing.T) {
	locker := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	firstHolding := make(chan struct{})
	releaseFirst := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- locker.WithLock(ctx, "cart-a", func(context.Context) error {
			close(firstHolding)
			<-releaseFirst
			return nil
		})
	}()
	<-firstHolding

	// A different token must acquire immediately while cart-a is held.
	err := locker.WithLock(ctx, "cart-b", func(context.Context) error { return nil })
	require.NoError(t, err)

	close(releaseFirst)
	require.NoError(t, <-done)
}

func TestWithLockTimeout(t *testing.T) {
	locker := newLocker(t)
	locker.AcquireTimeout = 50 * time.Millisecond

	blocked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- locker.WithLock(context.Background(), "cart-busy", func(context.Context) error {
			close(blocked)
			<-release
			return nil
		})
	}()
	<-blocked

	err := locker.WithLock(context.Background(), "cart-busy", func(context.Context) error {
		t.Fatal("operation must not run after timeout")
		return nil
	})
	require.ErrorIs(t, err, lock.ErrLockTimeout)

	close(release)
	require.NoError(t, <-done)
}

func TestWithLockReleasedOnError(t *testing.T) {
	locker := newLocker(t)
	ctx := context.Background()

	wantErr := errors.New("operation failed")
	err := locker.WithLock(ctx, "cart-err", func(context.Context) error { return wantErr })
	require.ErrorIs(t, err, wantErr)

	// The lock must be free again immediately.
	ran := false
	require.NoError(t, locker.WithLock(ctx, "cart-err", func(context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}
