package discount

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/product"
)

// Tier describes a rule as it would apply to a single product when bought
// at exactly the rule's MinQuantity.
type Tier struct {
	RuleID            string
	Name              string
	Description       string
	Type              Type
	Value             decimal.Decimal
	MinQuantity       int
	MaxQuantity       int
	Savings           decimal.Decimal
	OriginalPrice     decimal.Decimal
	DiscountedPrice   decimal.Decimal
	SavingsPercentage decimal.Decimal
}

// NextTier is the closest tier a shopper has not reached yet.
type NextTier struct {
	Tier             Tier
	QuantityNeeded   int
	PotentialSavings decimal.Decimal
	Message          string
}

// Tiers returns every active rule that covers the product, annotated at its
// own MinQuantity and ordered by MinQuantity. Rules sharing a MinQuantity
// keep their input order.
func Tiers(p product.Product, rules []Rule, now time.Time) []Tier {
	eligible := eligibleRules(p, rules, now)

	tiers := make([]Tier, 0, len(eligible))
	for _, r := range eligible {
		tiers = append(tiers, tierAt(r, p.Price))
	}
	slices.SortStableFunc(tiers, func(a, b Tier) int {
		return a.MinQuantity - b.MinQuantity
	})
	return tiers
}

// NextTierFor returns the eligible tier with the smallest MinQuantity above
// currentQty, or nil when the shopper already reached the top tier.
func NextTierFor(p product.Product, currentQty int, rules []Rule, now time.Time) *NextTier {
	var next *Rule
	for _, r := range eligibleRules(p, rules, now) {
		if r.MinQuantity <= currentQty {
			continue
		}
		if next == nil || r.MinQuantity < next.MinQuantity {
			next = &r
		}
	}
	if next == nil {
		return nil
	}

	tier := tierAt(*next, p.Price)
	needed := next.MinQuantity - currentQty
	return &NextTier{
		Tier:             tier,
		QuantityNeeded:   needed,
		PotentialSavings: tier.Savings,
		Message: fmt.Sprintf("Buy %d more to save %s with %s",
			needed, FormatSavings(tier.Savings), next.Name),
	}
}

// Qualifies reports whether any eligible active rule's quantity window
// contains qty.
func Qualifies(p product.Product, qty int, rules []Rule, now time.Time) bool {
	for _, r := range eligibleRules(p, rules, now) {
		if r.inWindow(qty) {
			return true
		}
	}
	return false
}

func eligibleRules(p product.Product, rules []Rule, now time.Time) []Rule {
	item := itemFromProduct(p, 0)
	var out []Rule
	for _, r := range ActiveRules(rules, now) {
		if IsEligible(item, r) {
			out = append(out, r)
		}
	}
	return out
}

func tierAt(r Rule, unitPrice decimal.Decimal) Tier {
	original := lineTotal(unitPrice, r.MinQuantity)
	savings := r.savings(unitPrice, r.MinQuantity)
	return Tier{
		RuleID:            r.ID,
		Name:              r.Name,
		Description:       r.Description,
		Type:              r.Type,
		Value:             r.Value,
		MinQuantity:       r.MinQuantity,
		MaxQuantity:       r.MaxQuantity,
		Savings:           savings,
		OriginalPrice:     original,
		DiscountedPrice:   original.Sub(savings),
		SavingsPercentage: percentOf(savings, original),
	}
}

func itemFromProduct(p product.Product, qty int) Item {
	return Item{
		ProductID: p.ID,
		Name:      p.Name,
		Category:  p.Category,
		UnitPrice: p.Price,
		Quantity:  qty,
	}
}
