package discount

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/product"
)

// Summary condenses a discounted cart for display.
type Summary struct {
	TotalOriginal     decimal.Decimal
	TotalSavings      decimal.Decimal
	TotalDiscounted   decimal.Decimal
	AppliedDiscounts  []string
	SavingsPercentage decimal.Decimal
}

// Summary returns nil when nothing was discounted. Applied discount names
// are listed once each, in the order they were first applied.
func (p CartPricing) Summary() *Summary {
	if !p.HasDiscounts {
		return nil
	}

	seen := make(map[string]struct{})
	var names []string
	for _, line := range p.Lines {
		if line.Discount == nil {
			continue
		}
		if _, ok := seen[line.Discount.Name]; ok {
			continue
		}
		seen[line.Discount.Name] = struct{}{}
		names = append(names, line.Discount.Name)
	}

	return &Summary{
		TotalOriginal:     p.TotalOriginal,
		TotalSavings:      p.TotalSavings,
		TotalDiscounted:   p.TotalDiscounted,
		AppliedDiscounts:  names,
		SavingsPercentage: p.SavingsPercentage(),
	}
}

// FormatDiscountText renders the headline of a rule, e.g. "10% off" or
// "K5 off per item".
func FormatDiscountText(t Type, value decimal.Decimal) string {
	if t == Percentage {
		return value.String() + "% off"
	}
	return product.CurrencySymbol + value.String() + " off per item"
}

// FormatSavings renders an amount with two decimals, e.g. "K12.50".
func FormatSavings(amount decimal.Decimal) string {
	return product.CurrencySymbol + amount.StringFixed(2)
}
