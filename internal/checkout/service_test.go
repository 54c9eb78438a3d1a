package checkout

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/lock"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/store"
	"github.com/noah-isme/checkout-core/internal/tax"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mem := store.NewMemory()
	return &Service{
		Carts:     mem,
		Locker:    lock.CartLocker{R: client},
		Processor: NewProcessor(nil),
	}, mem
}

func pricingContext() cart.Context {
	return cart.Context{TaxState: tax.StateGross, TaxCalculation: price.ModeHorizontal, Currency: "EUR"}
}

func productRequest(id, ref string, qty int, unit float64) *cart.LineItem {
	return &cart.LineItem{
		ID:           id,
		Type:         cart.LineItemTypeProduct,
		ReferencedID: ref,
		Quantity:     qty,
		Good:         true,
		PriceDefinition: price.QuantityDefinition{
			Price:    unit,
			Quantity: qty,
			TaxRules: tax.NewRuleCollection(19),
		},
	}
}

func TestAddItemCreatesAndPricesCart(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.AddItem(ctx, "tok-1", productRequest("li-1", "sku-1", 2, 10), pricingContext())
	require.NoError(t, err)
	require.Len(t, c.LineItems, 1)
	require.NotNil(t, c.LineItems[0].Price)
	require.InDelta(t, 20.0, c.LineItems[0].Price.TotalPrice, 1e-9)
	require.InDelta(t, 20.0, c.Price.TotalPrice, 1e-9)
	require.NotEmpty(t, c.Hash)
}

func TestAddItemMergesSameReference(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "tok-1", productRequest("li-1", "sku-1", 2, 10), pricingContext())
	require.NoError(t, err)
	c, err := svc.AddItem(ctx, "tok-1", productRequest("li-2", "sku-1", 3, 10), pricingContext())
	require.NoError(t, err)

	require.Len(t, c.LineItems, 1)
	require.Equal(t, "li-1", c.LineItems[0].ID)
	require.Equal(t, 5, c.LineItems[0].Quantity)
	require.InDelta(t, 50.0, c.Price.TotalPrice, 1e-9)
}

func TestUpdateQuantityReprices(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "tok-1", productRequest("li-1", "sku-1", 2, 9.99), pricingContext())
	require.NoError(t, err)
	c, err := svc.UpdateQuantity(ctx, "tok-1", "li-1", 4, pricingContext())
	require.NoError(t, err)
	require.InDelta(t, 39.96, c.Price.TotalPrice, 1e-9)

	_, err = svc.UpdateQuantity(ctx, "tok-1", "missing", 1, pricingContext())
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItemRecalculates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "tok-1", productRequest("li-1", "sku-1", 1, 10), pricingContext())
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "tok-1", productRequest("li-2", "sku-2", 1, 5), pricingContext())
	require.NoError(t, err)

	c, err := svc.RemoveItem(ctx, "tok-1", "li-2", pricingContext())
	require.NoError(t, err)
	require.Len(t, c.LineItems, 1)
	require.InDelta(t, 10.0, c.Price.TotalPrice, 1e-9)
}

func TestApplyPromotionDiscountsCart(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "tok-1", productRequest("li-1", "sku-1", 1, 100), pricingContext())
	require.NoError(t, err)

	meta := cart.DiscountMetadata{
		PromotionID: "promo-10",
		Scope:       cart.ScopeCart,
		Type:        cart.DiscountPercentage,
		Value:       10,
	}
	c, err := svc.ApplyPromotion(ctx, "tok-1", meta, pricingContext())
	require.NoError(t, err)
	require.Len(t, c.Discounts(), 1)
	require.InDelta(t, 90.0, c.Price.TotalPrice, 1e-9)

	// Applying the same promotion again is a no-op.
	c, err = svc.ApplyPromotion(ctx, "tok-1", meta, pricingContext())
	require.NoError(t, err)
	require.Len(t, c.Discounts(), 1)
	require.InDelta(t, 90.0, c.Price.TotalPrice, 1e-9)
}

func TestDiscountFollowsCartMutations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "tok-1", productRequest("li-1", "sku-1", 1, 100), pricingContext())
	require.NoError(t, err)
	_, err = svc.ApplyPromotion(ctx, "tok-1", cart.DiscountMetadata{
		PromotionID: "promo-10",
		Scope:       cart.ScopeCart,
		Type:        cart.DiscountPercentage,
		Value:       10,
	}, pricingContext())
	require.NoError(t, err)

	// Doubling the quantity must double the discount on the next pass.
	c, err := svc.UpdateQuantity(ctx, "tok-1", "li-1", 2, pricingContext())
	require.NoError(t, err)
	require.InDelta(t, 180.0, c.Price.TotalPrice, 1e-9)

	c, err = svc.RemovePromotion(ctx, "tok-1", "promo-10", pricingContext())
	require.NoError(t, err)
	require.Empty(t, c.Discounts())
	require.InDelta(t, 200.0, c.Price.TotalPrice, 1e-9)
}

func TestSetShippingCostsEntersTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "tok-1", productRequest("li-1", "sku-1", 1, 10), pricingContext())
	require.NoError(t, err)
	c, err := svc.SetShippingCosts(ctx, "tok-1", price.QuantityDefinition{
		Price:    4.90,
		Quantity: 1,
		TaxRules: tax.NewRuleCollection(19),
	}, pricingContext())
	require.NoError(t, err)
	require.Len(t, c.Deliveries, 1)
	require.InDelta(t, 14.90, c.Price.TotalPrice, 1e-9)
}

func TestHashChangesWithCartState(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c1, err := svc.AddItem(ctx, "tok-1", productRequest("li-1", "sku-1", 1, 10), pricingContext())
	require.NoError(t, err)
	c2, err := svc.UpdateQuantity(ctx, "tok-1", "li-1", 2, pricingContext())
	require.NoError(t, err)
	require.NotEqual(t, c1.Hash, c2.Hash)

	// Reverting the mutation restores the original hash.
	c3, err := svc.UpdateQuantity(ctx, "tok-1", "li-1", 1, pricingContext())
	require.NoError(t, err)
	require.Equal(t, c1.Hash, c3.Hash)
}

func TestMutationsSurviveStoreRoundTrip(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	want, err := svc.AddItem(ctx, "tok-1", productRequest("li-1", "sku-1", 2, 19.99), pricingContext())
	require.NoError(t, err)

	got, err := mem.Load(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, want.Hash, got.Hash)
	require.InDelta(t, want.Price.TotalPrice, got.Price.TotalPrice, 1e-9)

	// The reloaded cart reprices identically.
	require.NoError(t, svc.Processor.Calculate(got, pricingContext()))
	require.Equal(t, want.Hash, got.Hash)
}

func TestServiceRejectsInvalidQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "tok-1", productRequest("li-1", "sku-1", 0, 10), pricingContext())
	require.ErrorIs(t, err, cart.ErrInvalidQuantity)
	_, err = svc.UpdateQuantity(ctx, "tok-1", "li-1", 0, pricingContext())
	require.ErrorIs(t, err, cart.ErrInvalidQuantity)
}
