// Package store persists carts and orders. The checkout core only depends on
// the CartStore and OrderStore ports; the Postgres adapter and the in-memory
// implementation used by tests both satisfy them.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/price"
)

// ErrCartNotFound indicates the requested cart could not be located.
var ErrCartNotFound = errors.New("store: cart not found")

// CartStore reads and writes carts keyed by token.
type CartStore interface {
	Load(ctx context.Context, token string) (*cart.Cart, error)
	Save(ctx context.Context, c *cart.Cart) error
	Delete(ctx context.Context, token string) error
}

// Order is the immutable snapshot persisted at placement time.
type Order struct {
	ID        string          `json:"id"`
	CartToken string          `json:"cartToken"`
	Currency  string          `json:"currency"`
	Price     price.CartPrice `json:"price"`
	LineItems cart.LineItems  `json:"lineItems"`
	PlacedAt  time.Time       `json:"placedAt"`
}

// OrderStore persists placed orders.
type OrderStore interface {
	Create(ctx context.Context, order Order) error
}
