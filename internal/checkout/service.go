package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/lock"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/promotion"
	"github.com/noah-isme/checkout-core/internal/store"
)

// ErrItemNotFound indicates the referenced line item is not in the cart.
var ErrItemNotFound = errors.New("checkout: line item not found")

// Service runs all cart mutations under the per-token lock. Every mutation
// follows the same shape: acquire lock, load (or create) the cart, mutate,
// run a full calculation pass, save. No partial cart state is observable
// outside the lock.
type Service struct {
	Carts     store.CartStore
	Locker    lock.CartLocker
	Processor *Processor
}

func (s *Service) configured() error {
	if s == nil || s.Carts == nil || s.Processor == nil {
		return errors.New("checkout service not configured")
	}
	return nil
}

// Get loads the cart without mutating it.
func (s *Service) Get(ctx context.Context, token string) (*cart.Cart, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	return s.Carts.Load(ctx, token)
}

// AddItem inserts the line item, or increments quantity when an item of the
// same type and reference already exists.
func (s *Service) AddItem(ctx context.Context, token string, item *cart.LineItem, cctx cart.Context) (*cart.Cart, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if item == nil || item.Quantity < 1 {
		return nil, cart.ErrInvalidQuantity
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return s.mutate(ctx, token, cctx, true, func(c *cart.Cart) error {
		for _, existing := range c.LineItems {
			if existing.Type == item.Type && existing.ReferencedID != "" && existing.ReferencedID == item.ReferencedID {
				existing.Quantity += item.Quantity
				if def, ok := existing.PriceDefinition.(price.QuantityDefinition); ok {
					def.Quantity = existing.Quantity
					existing.PriceDefinition = def
				}
				return nil
			}
		}
		c.LineItems = append(c.LineItems, item)
		return nil
	})
}

// UpdateQuantity sets a line item's quantity.
func (s *Service) UpdateQuantity(ctx context.Context, token, itemID string, quantity int, cctx cart.Context) (*cart.Cart, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, cart.ErrInvalidQuantity
	}
	return s.mutate(ctx, token, cctx, false, func(c *cart.Cart) error {
		item, ok := c.LineItems.Get(itemID)
		if !ok {
			return fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
		}
		item.Quantity = quantity
		if def, ok := item.PriceDefinition.(price.QuantityDefinition); ok {
			def.Quantity = quantity
			item.PriceDefinition = def
		}
		return nil
	})
}

// RemoveItem deletes a line item.
func (s *Service) RemoveItem(ctx context.Context, token, itemID string, cctx cart.Context) (*cart.Cart, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, token, cctx, false, func(c *cart.Cart) error {
		if _, ok := c.LineItems.Get(itemID); !ok {
			return fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
		}
		c.LineItems = c.LineItems.Remove(itemID)
		return nil
	})
}

// ApplyPromotion attaches a promotion as a discount line item. Its price is
// computed by the promotion calculators during the calculation pass.
func (s *Service) ApplyPromotion(ctx context.Context, token string, meta cart.DiscountMetadata, cctx cart.Context) (*cart.Cart, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	item, err := promotion.NewDiscountItem(meta)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, token, cctx, false, func(c *cart.Cart) error {
		for _, existing := range c.Discounts() {
			if existing.Discount != nil && existing.Discount.PromotionID == meta.PromotionID {
				return nil // already applied
			}
		}
		c.LineItems = append(c.LineItems, item)
		return nil
	})
}

// RemovePromotion detaches a promotion's discount line item.
func (s *Service) RemovePromotion(ctx context.Context, token, promotionID string, cctx cart.Context) (*cart.Cart, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, token, cctx, false, func(c *cart.Cart) error {
		for _, item := range c.Discounts() {
			if item.Discount != nil && item.Discount.PromotionID == promotionID {
				c.LineItems = c.LineItems.Remove(item.ID)
			}
		}
		return nil
	})
}

// SetShippingCosts replaces the cart's deliveries with a single delivery
// priced from the definition.
func (s *Service) SetShippingCosts(ctx context.Context, token string, def price.QuantityDefinition, cctx cart.Context) (*cart.Cart, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, token, cctx, false, func(c *cart.Cart) error {
		shipping, err := s.Processor.Resolver.Resolve(def, cctx)
		if err != nil {
			return err
		}
		c.Deliveries = cart.Deliveries{{ID: "default", ShippingCosts: shipping}}
		return nil
	})
}

// Delete drops the cart entirely.
func (s *Service) Delete(ctx context.Context, token string) error {
	if err := s.configured(); err != nil {
		return err
	}
	return s.Locker.WithLock(ctx, token, func(ctx context.Context) error {
		return s.Carts.Delete(ctx, token)
	})
}

// mutate is the shared locked mutation path: load, apply, recalculate, save.
func (s *Service) mutate(ctx context.Context, token string, cctx cart.Context, createMissing bool, apply func(*cart.Cart) error) (*cart.Cart, error) {
	var out *cart.Cart
	err := s.Locker.WithLock(ctx, token, func(ctx context.Context) error {
		c, err := s.Carts.Load(ctx, token)
		if err != nil {
			if !createMissing || !errors.Is(err, store.ErrCartNotFound) {
				return err
			}
			c = cart.New(token)
		}
		if err := apply(c); err != nil {
			return err
		}
		if err := s.Processor.Calculate(c, cctx); err != nil {
			return err
		}
		if err := s.Carts.Save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
