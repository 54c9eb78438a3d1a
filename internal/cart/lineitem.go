package cart

import (
	"encoding/json"
	"errors"

	"github.com/noah-isme/checkout-core/internal/price"
)

// LineItemType tags the kind of cart entry.
type LineItemType string

const (
	LineItemTypeProduct  LineItemType = "product"
	LineItemTypeCustom   LineItemType = "custom"
	LineItemTypeDiscount LineItemType = "discount"
)

// ErrInvalidQuantity is returned when a line item quantity is below one.
var ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")

// Rule is an opaque eligibility predicate. It is evaluated by an external
// rule engine through the RuleEvaluator port and never inspected here.
type Rule interface{}

// CompositionEntry records which original line item quantities contributed to
// a discount amount, for downstream display and reporting.
type CompositionEntry struct {
	LineItemID string  `json:"lineItemId"`
	Quantity   int     `json:"quantity"`
	Amount     float64 `json:"amount"`
}

// LineItem is one entry in a cart: a product, a custom position, or a
// discount created by the promotion calculators. Discount items are owned
// entirely by the calculators and rebuilt on every pass.
type LineItem struct {
	ID              string
	Type            LineItemType
	ReferencedID    string
	Label           string
	Quantity        int
	Good            bool
	PriceDefinition price.Definition
	Price           *price.CalculatedPrice
	Discount        *DiscountMetadata
	Requirement     Rule
	Composition     []CompositionEntry
	Children        LineItems
}

// Copy returns a shallow copy with its own children slice.
func (l *LineItem) Copy() *LineItem {
	out := *l
	out.Children = append(LineItems{}, l.Children...)
	return &out
}

type lineItemJSON struct {
	ID              string                 `json:"id"`
	Type            LineItemType           `json:"type"`
	ReferencedID    string                 `json:"referencedId,omitempty"`
	Label           string                 `json:"label,omitempty"`
	Quantity        int                    `json:"quantity"`
	Good            bool                   `json:"good"`
	PriceDefinition json.RawMessage        `json:"priceDefinition,omitempty"`
	Price           *price.CalculatedPrice `json:"price,omitempty"`
	Discount        *DiscountMetadata      `json:"discount,omitempty"`
	Composition     []CompositionEntry     `json:"composition,omitempty"`
	Children        LineItems              `json:"children,omitempty"`
}

// MarshalJSON encodes the line item with a kind-tagged price definition.
// The opaque requirement predicate is not serialisable and is dropped.
func (l *LineItem) MarshalJSON() ([]byte, error) {
	def, err := price.MarshalDefinition(l.PriceDefinition)
	if err != nil {
		return nil, err
	}
	return json.Marshal(lineItemJSON{
		ID:              l.ID,
		Type:            l.Type,
		ReferencedID:    l.ReferencedID,
		Label:           l.Label,
		Quantity:        l.Quantity,
		Good:            l.Good,
		PriceDefinition: def,
		Price:           l.Price,
		Discount:        l.Discount,
		Composition:     l.Composition,
		Children:        l.Children,
	})
}

// UnmarshalJSON decodes a line item previously written by MarshalJSON.
func (l *LineItem) UnmarshalJSON(data []byte) error {
	var raw lineItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	def, err := price.UnmarshalDefinition(raw.PriceDefinition)
	if err != nil {
		return err
	}
	*l = LineItem{
		ID:              raw.ID,
		Type:            raw.Type,
		ReferencedID:    raw.ReferencedID,
		Label:           raw.Label,
		Quantity:        raw.Quantity,
		Good:            raw.Good,
		PriceDefinition: def,
		Price:           raw.Price,
		Discount:        raw.Discount,
		Composition:     raw.Composition,
		Children:        raw.Children,
	}
	return nil
}

// LineItems is an ordered collection of line items.
type LineItems []*LineItem

// Get returns the line item with the given id.
func (c LineItems) Get(id string) (*LineItem, bool) {
	for _, item := range c {
		if item.ID == id {
			return item, true
		}
	}
	return nil, false
}

// FilterType returns items of the given type, preserving order.
func (c LineItems) FilterType(t LineItemType) LineItems {
	out := LineItems{}
	for _, item := range c {
		if item.Type == t {
			out = append(out, item)
		}
	}
	return out
}

// FilterGoods returns the priced, purchasable items discounts can match.
func (c LineItems) FilterGoods() LineItems {
	out := LineItems{}
	for _, item := range c {
		if item.Good && item.Quantity > 0 {
			out = append(out, item)
		}
	}
	return out
}

// Remove deletes the item with the given id, preserving order of the rest.
func (c LineItems) Remove(id string) LineItems {
	out := LineItems{}
	for _, item := range c {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

// Prices collects the calculated prices of all items that have one.
func (c LineItems) Prices() []price.CalculatedPrice {
	out := make([]price.CalculatedPrice, 0, len(c))
	for _, item := range c {
		if item.Price != nil {
			out = append(out, *item.Price)
		}
	}
	return out
}
