// Package hash computes the optimistic-concurrency digest of a cart and its
// pricing context. The digest changes if and only if a price-affecting input
// changes; order placement compares it against the hash presented by the
// client to detect stale price snapshots.
package hash

import (
	"encoding/json"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/common"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/tax"
)

// Hasher produces stable digests over canonical JSON.
type Hasher struct{}

type itemDigest struct {
	ID           string            `json:"id"`
	Type         cart.LineItemType `json:"type"`
	ReferencedID string            `json:"referencedId,omitempty"`
	Quantity     int               `json:"quantity"`
	Definition   json.RawMessage   `json:"definition,omitempty"`
	PromotionID  string            `json:"promotionId,omitempty"`
	Children     []itemDigest      `json:"children,omitempty"`
}

type cartDigest struct {
	Token          string                `json:"token"`
	LineItems      []itemDigest          `json:"lineItems"`
	ShippingCosts  []float64             `json:"shippingCosts"`
	TaxState       tax.State             `json:"taxState"`
	TaxCalculation price.CalculationMode `json:"taxCalculation"`
	Currency       string                `json:"currency"`
}

// Hash returns the sha256 hex digest of the cart's price-affecting state.
func (Hasher) Hash(c *cart.Cart, ctx cart.Context) (string, error) {
	items, err := digestItems(c.LineItems)
	if err != nil {
		return "", err
	}
	shipping := make([]float64, 0, len(c.Deliveries))
	for _, d := range c.Deliveries {
		shipping = append(shipping, d.ShippingCosts.TotalPrice)
	}
	payload, err := json.Marshal(cartDigest{
		Token:          c.Token,
		LineItems:      items,
		ShippingCosts:  shipping,
		TaxState:       ctx.TaxState,
		TaxCalculation: ctx.TaxCalculation,
		Currency:       ctx.Currency,
	})
	if err != nil {
		return "", err
	}
	return common.Sha256Hex(string(payload)), nil
}

func digestItems(items cart.LineItems) ([]itemDigest, error) {
	out := make([]itemDigest, 0, len(items))
	for _, item := range items {
		def, err := price.MarshalDefinition(item.PriceDefinition)
		if err != nil {
			return nil, err
		}
		children, err := digestItems(item.Children)
		if err != nil {
			return nil, err
		}
		digest := itemDigest{
			ID:           item.ID,
			Type:         item.Type,
			ReferencedID: item.ReferencedID,
			Quantity:     item.Quantity,
			Definition:   def,
			Children:     children,
		}
		if item.Discount != nil {
			digest.PromotionID = item.Discount.PromotionID
		}
		out = append(out, digest)
	}
	return out, nil
}
