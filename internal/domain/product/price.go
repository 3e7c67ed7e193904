package product

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySymbol prefixes every formatted amount (Zambian kwacha).
const CurrencySymbol = "K"

var printer = message.NewPrinter(language.English)

// ParsePrice normalizes a catalog price that may be stored as a display
// string ("K1,000", "K 2,500.50") or a plain number ("1000"). Anything that
// does not contain a parseable number yields zero.
func ParsePrice(raw string) decimal.Decimal {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero
	}
	return v
}

// FormatPrice renders an amount as a whole-kwacha display string with
// grouped thousands, e.g. "K1,000".
func FormatPrice(amount decimal.Decimal) string {
	return CurrencySymbol + printer.Sprintf("%d", amount.Round(0).IntPart())
}
