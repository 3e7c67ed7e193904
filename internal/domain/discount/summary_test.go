package discount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary_NoDiscounts(t *testing.T) {
	p := ComputeCartPricing([]Item{{ProductID: "a", UnitPrice: d("10"), Quantity: 1}}, nil, fixedNow)
	assert.Nil(t, p.Summary())
}

func TestSummary_DeduplicatesNames(t *testing.T) {
	bulk := pctRule("bulk", "10", 2)
	bulk.Name = "Bulk Saver"
	big := fixedRule("big", "50", 10)
	big.Name = "Big Order"

	p := ComputeCartPricing([]Item{
		{ProductID: "a", UnitPrice: d("10"), Quantity: 2},
		{ProductID: "b", UnitPrice: d("100"), Quantity: 10},
		{ProductID: "c", UnitPrice: d("20"), Quantity: 3},
		{ProductID: "d", UnitPrice: d("5"), Quantity: 1},
	}, []Rule{bulk, big}, fixedNow)

	s := p.Summary()
	require.NotNil(t, s)
	assert.Equal(t, []string{"Bulk Saver", "Big Order"}, s.AppliedDiscounts)
	assert.True(t, d("1085").Equal(s.TotalOriginal), "got %s", s.TotalOriginal)
	assert.True(t, d("508").Equal(s.TotalSavings), "got %s", s.TotalSavings)
	assert.True(t, d("577").Equal(s.TotalDiscounted))
}

func TestFormatDiscountText(t *testing.T) {
	assert.Equal(t, "10% off", FormatDiscountText(Percentage, d("10")))
	assert.Equal(t, "12.5% off", FormatDiscountText(Percentage, d("12.5")))
	assert.Equal(t, "K5 off per item", FormatDiscountText(Fixed, d("5")))
}

func TestFormatSavings(t *testing.T) {
	assert.Equal(t, "K12.50", FormatSavings(d("12.5")))
	assert.Equal(t, "K0.00", FormatSavings(d("0")))
	assert.Equal(t, "K3.34", FormatSavings(d("3.336")))
}
