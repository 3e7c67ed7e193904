package discount

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LinePricing is the priced view of a single cart line.
type LinePricing struct {
	Item          Item
	OriginalTotal decimal.Decimal
	// Discount is the rule that was applied, nil when none qualified.
	Discount        *Rule
	DiscountedTotal decimal.Decimal
	Savings         decimal.Decimal
}

// CartPricing is the full pricing breakdown of a cart.
type CartPricing struct {
	Lines           []LinePricing
	TotalOriginal   decimal.Decimal
	TotalSavings    decimal.Decimal
	TotalDiscounted decimal.Decimal
	HasDiscounts    bool
}

// ActiveRules returns the rules that are active at now, in input order. The
// result is a fresh slice, so it doubles as the snapshot a computation works
// against.
func ActiveRules(rules []Rule, now time.Time) []Rule {
	active := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Active(now) {
			active = append(active, r)
		}
	}
	return active
}

// IsEligible reports whether the rule's product scope covers the item,
// regardless of quantity.
func IsEligible(item Item, r Rule) bool {
	if !r.WellFormed() {
		return false
	}
	switch r.Scope {
	case ScopeAll:
		return true
	case ScopeCategory:
		return item.Category != "" && strings.EqualFold(item.Category, r.CategoryFilter)
	case ScopeSpecific:
		return slices.Contains(r.SpecificProducts, item.ProductID)
	default:
		return false
	}
}

// BestForLine picks the qualifying rule with the largest savings for the
// item. Ties keep the rule that comes first in rules. A rule that would save
// nothing is never picked; when no rule qualifies the result is nil and zero.
func BestForLine(item Item, rules []Rule) (*Rule, decimal.Decimal) {
	var (
		best    *Rule
		maxSave = decimal.Zero
	)
	for i := range rules {
		r := &rules[i]
		if !IsEligible(item, *r) || !r.inWindow(item.Quantity) {
			continue
		}
		if s := r.savings(item.UnitPrice, item.Quantity); s.GreaterThan(maxSave) {
			best, maxSave = r, s
		}
	}
	if best == nil {
		return nil, decimal.Zero
	}
	picked := best.Clone()
	return &picked, maxSave
}

// ComputeCartPricing prices every item against the rules active at now.
func ComputeCartPricing(items []Item, rules []Rule, now time.Time) CartPricing {
	active := ActiveRules(rules, now)

	out := CartPricing{
		Lines:         make([]LinePricing, 0, len(items)),
		TotalOriginal: decimal.Zero,
		TotalSavings:  decimal.Zero,
	}
	for _, item := range items {
		original := lineTotal(item.UnitPrice, item.Quantity)
		rule, savings := BestForLine(item, active)

		out.Lines = append(out.Lines, LinePricing{
			Item:            item,
			OriginalTotal:   original,
			Discount:        rule,
			DiscountedTotal: original.Sub(savings),
			Savings:         savings,
		})
		out.TotalOriginal = out.TotalOriginal.Add(original)
		out.TotalSavings = out.TotalSavings.Add(savings)
	}
	out.TotalDiscounted = out.TotalOriginal.Sub(out.TotalSavings)
	out.HasDiscounts = out.TotalSavings.IsPositive()
	return out
}

// SavingsPercentage is TotalSavings as a percentage of TotalOriginal, or zero
// for an empty or free cart.
func (p CartPricing) SavingsPercentage() decimal.Decimal {
	return percentOf(p.TotalSavings, p.TotalOriginal)
}

func lineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
