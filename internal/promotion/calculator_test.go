package promotion_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/promotion"
	"github.com/noah-isme/checkout-core/internal/tax"
)

// matchRefs is a stub rule engine: a rule is a set of referenced ids the item
// must belong to; context rules are plain booleans.
type matchRefs struct{}

func (matchRefs) MatchesItem(rule cart.Rule, item *cart.LineItem, _ cart.Context) (bool, error) {
	refs, ok := rule.(map[string]bool)
	if !ok {
		return true, nil
	}
	return refs[item.ReferencedID], nil
}

func (matchRefs) MatchesContext(rule cart.Rule, _ cart.Context) (bool, error) {
	allowed, ok := rule.(bool)
	if !ok {
		return true, nil
	}
	return allowed, nil
}

func grossContext() cart.Context {
	return cart.Context{TaxState: tax.StateGross, TaxCalculation: price.ModeHorizontal, Currency: "EUR"}
}

func newCalculator() *promotion.Calculator {
	return &promotion.Calculator{
		Packager:    promotion.DiscountPackager{Rules: matchRefs{}},
		GroupFilter: promotion.SetGroupScopeFilter{Rules: matchRefs{}},
	}
}

func productItem(t *testing.T, id, ref string, unit float64, qty int) *cart.LineItem {
	t.Helper()
	def := price.QuantityDefinition{Price: unit, Quantity: qty, TaxRules: tax.NewRuleCollection(19)}
	p, err := price.QuantityCalculator{}.Calculate(def, tax.StateGross)
	require.NoError(t, err)
	return &cart.LineItem{
		ID:              id,
		Type:            cart.LineItemTypeProduct,
		ReferencedID:    ref,
		Quantity:        qty,
		Good:            true,
		PriceDefinition: def,
		Price:           &p,
	}
}

func discountItem(t *testing.T, meta cart.DiscountMetadata) *cart.LineItem {
	t.Helper()
	item, err := promotion.NewDiscountItem(meta)
	require.NoError(t, err)
	return item
}

func TestAbsoluteDiscountClamped(t *testing.T) {
	c := cart.New("t1")
	c.LineItems = cart.LineItems{productItem(t, "li1", "p1", 10, 1)}
	discount := discountItem(t, cart.DiscountMetadata{
		PromotionID: "promo-big",
		Scope:       cart.ScopeCart,
		Type:        cart.DiscountAbsolute,
		Value:       50,
	})
	c.LineItems = append(c.LineItems, discount)

	calc := newCalculator()
	require.NoError(t, calc.ApplyCartPromotions(c.Discounts(), c, grossContext()))

	applied := c.Discounts()
	require.Len(t, applied, 1)
	// Clamped to the matched package total.
	require.Equal(t, -10.0, applied[0].Price.TotalPrice)
	require.Len(t, applied[0].Composition, 1)
	require.Equal(t, "li1", applied[0].Composition[0].LineItemID)
}

func TestPercentageDiscount(t *testing.T) {
	c := cart.New("t2")
	c.LineItems = cart.LineItems{
		productItem(t, "li1", "p1", 30, 2),
		productItem(t, "li2", "p2", 40, 1),
	}
	c.LineItems = append(c.LineItems, discountItem(t, cart.DiscountMetadata{
		PromotionID: "promo-10",
		Scope:       cart.ScopeCart,
		Type:        cart.DiscountPercentage,
		Value:       10,
	}))

	calc := newCalculator()
	require.NoError(t, calc.ApplyCartPromotions(c.Discounts(), c, grossContext()))

	applied := c.Discounts()
	require.Len(t, applied, 1)
	require.Equal(t, -10.0, applied[0].Price.TotalPrice)
}

func TestExclusionPrecedence(t *testing.T) {
	metaA := cart.DiscountMetadata{
		PromotionID: "promo-a",
		Scope:       cart.ScopeCart,
		Type:        cart.DiscountPercentage,
		Value:       10,
		Priority:    2,
		Exclusions:  []string{"promo-b"},
	}
	metaB := cart.DiscountMetadata{
		PromotionID: "promo-b",
		Scope:       cart.ScopeCart,
		Type:        cart.DiscountPercentage,
		Value:       20,
		Priority:    1,
		Exclusions:  []string{"promo-a"},
	}

	// The higher-priority promotion must win for every input permutation.
	for name, order := range map[string][]cart.DiscountMetadata{
		"a-first": {metaA, metaB},
		"b-first": {metaB, metaA},
	} {
		t.Run(name, func(t *testing.T) {
			c := cart.New("t3")
			c.LineItems = cart.LineItems{productItem(t, "li1", "p1", 100, 1)}
			for _, meta := range order {
				c.LineItems = append(c.LineItems, discountItem(t, meta))
			}

			calc := newCalculator()
			require.NoError(t, calc.ApplyCartPromotions(c.Discounts(), c, grossContext()))

			applied := c.Discounts()
			require.Len(t, applied, 1)
			require.Equal(t, "promo-a", applied[0].Discount.PromotionID)
			require.True(t, c.Errors.Has(cart.ErrCodePromotionExcluded, "promo-b"))
		})
	}
}

func TestEqualPriorityTieBreaksOnInputOrder(t *testing.T) {
	metaA := cart.DiscountMetadata{
		PromotionID: "promo-a",
		Scope:       cart.ScopeCart,
		Type:        cart.DiscountPercentage,
		Value:       10,
		Priority:    1,
		Exclusions:  []string{"promo-b"},
	}
	metaB := metaA
	metaB.PromotionID = "promo-b"
	metaB.Exclusions = []string{"promo-a"}

	c := cart.New("t4")
	c.LineItems = cart.LineItems{productItem(t, "li1", "p1", 100, 1)}
	c.LineItems = append(c.LineItems, discountItem(t, metaB), discountItem(t, metaA))

	calc := newCalculator()
	require.NoError(t, calc.ApplyCartPromotions(c.Discounts(), c, grossContext()))

	applied := c.Discounts()
	require.Len(t, applied, 1)
	require.Equal(t, "promo-b", applied[0].Discount.PromotionID)
}

func TestInvalidScopeIsFatal(t *testing.T) {
	c := cart.New("t5")
	c.LineItems = cart.LineItems{
		productItem(t, "li1", "p1", 10, 1),
		{
			ID:       "bad",
			Type:     cart.LineItemTypeDiscount,
			Quantity: 1,
			Discount: &cart.DiscountMetadata{PromotionID: "promo-x", Scope: "galaxy", Type: cart.DiscountAbsolute},
		},
	}

	calc := newCalculator()
	err := calc.ApplyCartPromotions(c.Discounts(), c, grossContext())
	require.ErrorIs(t, err, promotion.ErrInvalidScope)
}

func TestNoMatchAppendsErrorAndContinues(t *testing.T) {
	c := cart.New("t6")
	c.LineItems = cart.LineItems{productItem(t, "li1", "other", 10, 1)}
	c.LineItems = append(c.LineItems, discountItem(t, cart.DiscountMetadata{
		PromotionID: "promo-scoped",
		Scope:       cart.ScopeCart,
		Type:        cart.DiscountPercentage,
		Value:       10,
		Rule:        map[string]bool{"p1": true},
	}))

	calc := newCalculator()
	require.NoError(t, calc.ApplyCartPromotions(c.Discounts(), c, grossContext()))
	require.Empty(t, c.Discounts())
	require.True(t, c.Errors.Has(cart.ErrCodePromotionNoPackage, "promo-scoped"))
}

func TestApplyCartPromotionsIdempotent(t *testing.T) {
	build := func() *cart.Cart {
		c := cart.New("t7")
		c.LineItems = cart.LineItems{
			productItem(t, "li1", "p1", 19.99, 3),
			productItem(t, "li2", "p2", 5, 1),
		}
		c.LineItems = append(c.LineItems, discountItem(t, cart.DiscountMetadata{
			PromotionID: "promo-10",
			Scope:       cart.ScopeCart,
			Type:        cart.DiscountPercentage,
			Value:       10,
		}))
		return c
	}

	calc := newCalculator()
	c := build()
	ctx := grossContext()
	require.NoError(t, calc.ApplyCartPromotions(c.Discounts(), c, ctx))
	first, err := json.Marshal(c)
	require.NoError(t, err)

	require.NoError(t, calc.ApplyCartPromotions(c.Discounts(), c, ctx))
	second, err := json.Marshal(c)
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}
