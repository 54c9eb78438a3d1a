package price

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noah-isme/checkout-core/internal/tax"
)

// DefinitionKind tags the supported price definition variants.
type DefinitionKind string

const (
	KindQuantity   DefinitionKind = "quantity"
	KindAbsolute   DefinitionKind = "absolute"
	KindPercentage DefinitionKind = "percentage"
)

// Definition describes how a line item price is computed. The set of
// implementations is closed; use Kind for exhaustive handling.
type Definition interface {
	Kind() DefinitionKind
}

// QuantityDefinition prices an item as unit price times quantity under a tax
// rule set.
type QuantityDefinition struct {
	Price    float64            `json:"price"`
	Quantity int                `json:"quantity"`
	TaxRules tax.RuleCollection `json:"taxRules"`
}

func (QuantityDefinition) Kind() DefinitionKind { return KindQuantity }

// AbsoluteDefinition prices an item as a fixed amount, with taxes derived
// from the prices it references (used by absolute discounts).
type AbsoluteDefinition struct {
	Price float64 `json:"price"`
}

func (AbsoluteDefinition) Kind() DefinitionKind { return KindAbsolute }

// PercentageDefinition prices an item as a percentage of referenced prices
// (used by percentage discounts).
type PercentageDefinition struct {
	Percentage float64 `json:"percentage"`
}

func (PercentageDefinition) Kind() DefinitionKind { return KindPercentage }

// ErrUnknownDefinition is returned when decoding an unrecognised definition
// kind.
var ErrUnknownDefinition = errors.New("price: unknown definition kind")

type definitionEnvelope struct {
	Kind       DefinitionKind     `json:"kind"`
	Price      float64            `json:"price,omitempty"`
	Quantity   int                `json:"quantity,omitempty"`
	Percentage float64            `json:"percentage,omitempty"`
	TaxRules   tax.RuleCollection `json:"taxRules,omitempty"`
}

// MarshalDefinition encodes a definition together with its kind tag.
func MarshalDefinition(d Definition) ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	env := definitionEnvelope{Kind: d.Kind()}
	switch v := d.(type) {
	case QuantityDefinition:
		env.Price = v.Price
		env.Quantity = v.Quantity
		env.TaxRules = v.TaxRules
	case AbsoluteDefinition:
		env.Price = v.Price
	case PercentageDefinition:
		env.Percentage = v.Percentage
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownDefinition, d)
	}
	return json.Marshal(env)
}

// UnmarshalDefinition decodes a definition previously encoded by
// MarshalDefinition.
func UnmarshalDefinition(data []byte) (Definition, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var env definitionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case KindQuantity:
		return QuantityDefinition{Price: env.Price, Quantity: env.Quantity, TaxRules: env.TaxRules}, nil
	case KindAbsolute:
		return AbsoluteDefinition{Price: env.Price}, nil
	case KindPercentage:
		return PercentageDefinition{Percentage: env.Percentage}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDefinition, env.Kind)
}
