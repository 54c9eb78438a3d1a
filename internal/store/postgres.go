package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/checkout-core/internal/cart"
)

// Postgres persists carts as JSONB payloads keyed by token and orders as
// immutable snapshots. Schema:
//
//	CREATE TABLE carts (
//	    token      text PRIMARY KEY,
//	    payload    jsonb NOT NULL,
//	    hash       text NOT NULL DEFAULT '',
//	    updated_at timestamptz NOT NULL DEFAULT now()
//	);
//	CREATE TABLE orders (
//	    id         text PRIMARY KEY,
//	    cart_token text NOT NULL,
//	    currency   text NOT NULL,
//	    payload    jsonb NOT NULL,
//	    total      numeric(12,2) NOT NULL,
//	    placed_at  timestamptz NOT NULL
//	);
type Postgres struct {
	Pool *pgxpool.Pool
}

// Load reads the cart payload for the token.
func (p *Postgres) Load(ctx context.Context, token string) (*cart.Cart, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("store: postgres pool not configured")
	}
	var payload []byte
	err := p.Pool.QueryRow(ctx, `SELECT payload FROM carts WHERE token = $1`, token).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("load cart %q: %w", token, err)
	}
	var c cart.Cart
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("decode cart %q: %w", token, err)
	}
	return &c, nil
}

// Save upserts the cart payload.
func (p *Postgres) Save(ctx context.Context, c *cart.Cart) error {
	if p == nil || p.Pool == nil {
		return errors.New("store: postgres pool not configured")
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart %q: %w", c.Token, err)
	}
	_, err = p.Pool.Exec(ctx, `
		INSERT INTO carts (token, payload, hash, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (token)
		DO UPDATE SET payload = EXCLUDED.payload, hash = EXCLUDED.hash, updated_at = now()`,
		c.Token, payload, c.Hash)
	if err != nil {
		return fmt.Errorf("save cart %q: %w", c.Token, err)
	}
	return nil
}

// Delete removes the cart row.
func (p *Postgres) Delete(ctx context.Context, token string) error {
	if p == nil || p.Pool == nil {
		return errors.New("store: postgres pool not configured")
	}
	if _, err := p.Pool.Exec(ctx, `DELETE FROM carts WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete cart %q: %w", token, err)
	}
	return nil
}

// Create inserts the placed order snapshot.
func (p *Postgres) Create(ctx context.Context, order Order) error {
	if p == nil || p.Pool == nil {
		return errors.New("store: postgres pool not configured")
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order %q: %w", order.ID, err)
	}
	_, err = p.Pool.Exec(ctx, `
		INSERT INTO orders (id, cart_token, currency, payload, total, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		order.ID, order.CartToken, order.Currency, payload, order.Price.TotalPrice, order.PlacedAt)
	if err != nil {
		return fmt.Errorf("create order %q: %w", order.ID, err)
	}
	return nil
}
