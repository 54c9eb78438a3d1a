package price

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/checkout-core/internal/tax"
)

func grossPrices(t *testing.T, unit float64, rate float64, count int) []CalculatedPrice {
	t.Helper()
	calc := QuantityCalculator{}
	out := make([]CalculatedPrice, 0, count)
	for i := 0; i < count; i++ {
		p, err := calc.Calculate(QuantityDefinition{Price: unit, Quantity: 1, TaxRules: tax.NewRuleCollection(rate)}, tax.StateGross)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestHorizontalVerticalDivergence(t *testing.T) {
	calc := AmountCalculator{}
	prices := grossPrices(t, 1.43, 19, 3)

	horizontal, err := calc.Calculate(prices, nil, tax.StateGross, ModeHorizontal)
	require.NoError(t, err)
	require.Equal(t, 4.29, horizontal.TotalPrice)
	require.Equal(t, 0.69, horizontal.CalculatedTaxes.TotalTax())

	vertical, err := calc.Calculate(prices, nil, tax.StateGross, ModeVertical)
	require.NoError(t, err)
	require.Equal(t, 4.29, vertical.TotalPrice)
	require.Equal(t, 0.68, vertical.CalculatedTaxes.TotalTax())
}

func TestHorizontalVerticalNearAgreement(t *testing.T) {
	calc := AmountCalculator{}
	prices := grossPrices(t, 19.99, 19, 3)

	horizontal, err := calc.Calculate(prices, nil, tax.StateGross, ModeHorizontal)
	require.NoError(t, err)
	require.Equal(t, 9.57, horizontal.CalculatedTaxes.TotalTax())

	vertical, err := calc.Calculate(prices, nil, tax.StateGross, ModeVertical)
	require.NoError(t, err)
	require.Equal(t, 9.58, vertical.CalculatedTaxes.TotalTax())
}

func TestCalculateNetAddsTaxOnTop(t *testing.T) {
	calc := AmountCalculator{}
	p, err := QuantityCalculator{}.Calculate(QuantityDefinition{Price: 100, Quantity: 1, TaxRules: tax.NewRuleCollection(19)}, tax.StateNet)
	require.NoError(t, err)

	out, err := calc.Calculate([]CalculatedPrice{p}, nil, tax.StateNet, ModeHorizontal)
	require.NoError(t, err)
	require.Equal(t, 100.0, out.NetPrice)
	require.Equal(t, 119.0, out.TotalPrice)
	require.Equal(t, 19.0, out.CalculatedTaxes.TotalTax())
}

func TestCalculateFreeZeroesTaxes(t *testing.T) {
	calc := AmountCalculator{}
	prices := []CalculatedPrice{{UnitPrice: 10, TotalPrice: 10, Quantity: 1}}
	shipping := []CalculatedPrice{{UnitPrice: 4.9, TotalPrice: 4.9, Quantity: 1}}

	out, err := calc.Calculate(prices, shipping, tax.StateFree, ModeHorizontal)
	require.NoError(t, err)
	require.Equal(t, 14.9, out.TotalPrice)
	require.Equal(t, out.TotalPrice, out.NetPrice)
	require.Empty(t, out.CalculatedTaxes)
}

func TestCalculateIncludesShipping(t *testing.T) {
	calc := AmountCalculator{}
	items := grossPrices(t, 10, 19, 2)
	shipping := grossPrices(t, 4.9, 19, 1)

	out, err := calc.Calculate(items, shipping, tax.StateGross, ModeHorizontal)
	require.NoError(t, err)
	require.Equal(t, 20.0, out.PositionPrice)
	require.Equal(t, 24.9, out.TotalPrice)
}

func TestCalculateRejectsUnknownMode(t *testing.T) {
	_, err := AmountCalculator{}.Calculate(nil, nil, tax.StateGross, CalculationMode("diagonal"))
	require.Error(t, err)
}
