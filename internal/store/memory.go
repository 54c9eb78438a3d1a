package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/noah-isme/checkout-core/internal/cart"
)

// Memory is a process-local store used in tests and single-node setups.
// Carts are copied through JSON on the way in and out so callers never share
// mutable state with the store.
type Memory struct {
	mu     sync.RWMutex
	carts  map[string][]byte
	orders map[string]Order
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{carts: map[string][]byte{}, orders: map[string]Order{}}
}

// Load returns the cart for the token.
func (m *Memory) Load(_ context.Context, token string) (*cart.Cart, error) {
	m.mu.RLock()
	payload, ok := m.carts[token]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrCartNotFound
	}
	var c cart.Cart
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save stores the cart keyed by its token.
func (m *Memory) Save(_ context.Context, c *cart.Cart) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.carts[c.Token] = payload
	m.mu.Unlock()
	return nil
}

// Delete removes the cart for the token, if present.
func (m *Memory) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.carts, token)
	m.mu.Unlock()
	return nil
}

// Create stores a placed order.
func (m *Memory) Create(_ context.Context, order Order) error {
	m.mu.Lock()
	m.orders[order.ID] = order
	m.mu.Unlock()
	return nil
}

// Order returns a placed order by id, for test assertions.
func (m *Memory) Order(id string) (Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	return order, ok
}
