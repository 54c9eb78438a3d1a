package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/checkout"
	"github.com/noah-isme/checkout-core/internal/lock"
	"github.com/noah-isme/checkout-core/internal/obs"
	"github.com/noah-isme/checkout-core/internal/store"
)

var (
	// ErrHashMismatch indicates the cart changed since the client last saw it.
	ErrHashMismatch = errors.New("order: cart changed since last calculation")
	// ErrCartBlocked indicates the cart carries a blocking error.
	ErrCartBlocked = errors.New("order: cart has blocking errors")
	// ErrEmptyCart indicates there is nothing to place.
	ErrEmptyCart = errors.New("order: cart is empty")
)

// Service converts a priced cart into an immutable order. Placement is
// guarded twice by the context hash the client presents: once before taking
// the cart lock, so stale clients fail fast without contending, and once
// again inside the lock against the freshly loaded cart.
type Service struct {
	Carts     store.CartStore
	Orders    store.OrderStore
	Locker    lock.CartLocker
	Processor *checkout.Processor
}

func (s *Service) configured() error {
	if s == nil || s.Carts == nil || s.Orders == nil || s.Processor == nil {
		return errors.New("order service not configured")
	}
	return nil
}

// Place creates an order from the cart identified by token. presentedHash is
// the context hash the client received with its last view of the cart; a
// mismatch aborts placement with ErrHashMismatch.
func (s *Service) Place(ctx context.Context, token, presentedHash string, cctx cart.Context) (store.Order, error) {
	if err := s.configured(); err != nil {
		return store.Order{}, err
	}

	// Cheap pre-check outside the lock. Stale clients get rejected without
	// ever contending for the cart.
	current, err := s.Carts.Load(ctx, token)
	if err != nil {
		return store.Order{}, err
	}
	if current.Hash != presentedHash {
		obs.CountOrder("hash_mismatch")
		return store.Order{}, ErrHashMismatch
	}

	var placed store.Order
	err = s.Locker.WithLock(ctx, token, func(ctx context.Context) error {
		c, err := s.Carts.Load(ctx, token)
		if err != nil {
			return err
		}
		// Recompute and re-verify under the lock: a concurrent mutation may
		// have slipped in between the pre-check and lock acquisition.
		if err := s.Processor.Calculate(c, cctx); err != nil {
			return err
		}
		if c.Hash != presentedHash {
			obs.CountOrder("hash_mismatch")
			return ErrHashMismatch
		}
		if c.HasBlockingErrors() {
			return ErrCartBlocked
		}
		if len(c.LineItems) == 0 {
			return ErrEmptyCart
		}

		placed = store.Order{
			ID:        uuid.NewString(),
			CartToken: c.Token,
			Currency:  cctx.Currency,
			Price:     c.Price,
			LineItems: c.LineItems,
			PlacedAt:  time.Now().UTC(),
		}
		if err := s.Orders.Create(ctx, placed); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}
		return s.Carts.Delete(ctx, token)
	})
	if err != nil {
		if !errors.Is(err, ErrHashMismatch) {
			obs.CountOrder("failed")
		}
		return store.Order{}, err
	}
	obs.CountOrder("placed")
	return placed, nil
}
