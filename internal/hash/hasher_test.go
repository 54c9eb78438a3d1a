package hash_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/hash"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/tax"
)

func buildCart() *cart.Cart {
	c := cart.New("token-1")
	c.LineItems = cart.LineItems{
		{
			ID:       "li1",
			Type:     cart.LineItemTypeProduct,
			Quantity: 2,
			Good:     true,
			PriceDefinition: price.QuantityDefinition{
				Price:    9.99,
				Quantity: 2,
				TaxRules: tax.NewRuleCollection(19),
			},
		},
	}
	return c
}

func pricingContext() cart.Context {
	return cart.Context{TaxState: tax.StateGross, TaxCalculation: price.ModeHorizontal, Currency: "EUR"}
}

func TestHashStable(t *testing.T) {
	h := hash.Hasher{}
	a, err := h.Hash(buildCart(), pricingContext())
	require.NoError(t, err)
	b, err := h.Hash(buildCart(), pricingContext())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestHashChangesOnQuantity(t *testing.T) {
	h := hash.Hasher{}
	base, err := h.Hash(buildCart(), pricingContext())
	require.NoError(t, err)

	changed := buildCart()
	changed.LineItems[0].Quantity = 3
	after, err := h.Hash(changed, pricingContext())
	require.NoError(t, err)
	require.NotEqual(t, base, after)
}

func TestHashChangesOnContext(t *testing.T) {
	h := hash.Hasher{}
	base, err := h.Hash(buildCart(), pricingContext())
	require.NoError(t, err)

	ctx := pricingContext()
	ctx.TaxCalculation = price.ModeVertical
	after, err := h.Hash(buildCart(), ctx)
	require.NoError(t, err)
	require.NotEqual(t, base, after)

	ctx = pricingContext()
	ctx.Currency = "USD"
	after, err = h.Hash(buildCart(), ctx)
	require.NoError(t, err)
	require.NotEqual(t, base, after)
}

func TestHashIgnoresDerivedState(t *testing.T) {
	h := hash.Hasher{}
	base, err := h.Hash(buildCart(), pricingContext())
	require.NoError(t, err)

	priced := buildCart()
	priced.Price = price.CartPrice{TotalPrice: 19.98}
	priced.Errors = priced.Errors.Add(cart.Error{Code: "x", Message: "y"})
	after, err := h.Hash(priced, pricingContext())
	require.NoError(t, err)
	require.Equal(t, base, after)
}
