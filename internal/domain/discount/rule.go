// Package discount implements quantity-tiered bulk discounts.
//
// Every function in this package is pure: rules and items are read, never
// mutated, and no I/O or logging happens here. Callers that want to report
// misconfigured rules do so themselves (see Rule.WellFormed and Admin.Audit).
package discount

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates how a rule's Value is interpreted.
type Type string

const (
	// Percentage takes Value percent off the line subtotal.
	Percentage Type = "percentage"
	// Fixed takes Value off every unit on the line.
	Fixed Type = "fixed"
)

// Scope selects which products a rule applies to.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeCategory Scope = "category"
	ScopeSpecific Scope = "specific"
)

// ErrRuleNotFound is returned by rule stores for unknown rule IDs.
var ErrRuleNotFound = errors.New("discount rule not found")

// Rule is a configured bulk discount tier.
type Rule struct {
	ID          string
	Name        string
	Description string
	Type        Type
	Value       decimal.Decimal
	// MinQuantity and MaxQuantity bound the eligible line quantity, both
	// inclusive. MaxQuantity of zero means unbounded.
	MinQuantity      int
	MaxQuantity      int
	Scope            Scope
	CategoryFilter   string
	SpecificProducts []string
	IsActive         bool
	StartDate        *time.Time
	EndDate          *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Item is a cart line as seen by the engine.
type Item struct {
	ProductID string
	Name      string
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Repository provides the current rule set.
type Repository interface {
	List(ctx context.Context) ([]Rule, error)
}

// RuleStore is the admin-facing rule persistence.
type RuleStore interface {
	Repository
	Get(ctx context.Context, id string) (*Rule, error)
	Save(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id string) error
}

// Active reports whether the rule is enabled and now falls inside its
// validity window.
func (r Rule) Active(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.StartDate != nil && now.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && now.After(*r.EndDate) {
		return false
	}
	return true
}

// WellFormed reports whether the rule carries everything its Type and Scope
// require. Malformed rules are never applied.
func (r Rule) WellFormed() bool {
	return len(r.Problems()) == 0
}

// Problems lists what is wrong with the rule, if anything.
func (r Rule) Problems() []string {
	var problems []string
	switch r.Type {
	case Percentage:
		if r.Value.GreaterThan(hundred) {
			problems = append(problems, "percentage value exceeds 100")
		}
	case Fixed:
	default:
		problems = append(problems, fmt.Sprintf("unknown discount type %q", r.Type))
	}
	if r.Value.IsNegative() {
		problems = append(problems, "value is negative")
	}
	if r.MinQuantity < 1 {
		problems = append(problems, "min quantity must be at least 1")
	}
	if r.MaxQuantity != 0 && r.MaxQuantity < r.MinQuantity {
		problems = append(problems, "max quantity is below min quantity")
	}
	switch r.Scope {
	case ScopeAll:
	case ScopeCategory:
		if strings.TrimSpace(r.CategoryFilter) == "" {
			problems = append(problems, "category scope without category filter")
		}
	case ScopeSpecific:
		if len(r.SpecificProducts) == 0 {
			problems = append(problems, "specific scope without products")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown product scope %q", r.Scope))
	}
	return problems
}

// inWindow reports whether qty falls inside the rule's quantity bounds.
func (r Rule) inWindow(qty int) bool {
	if qty < r.MinQuantity {
		return false
	}
	return r.MaxQuantity == 0 || qty <= r.MaxQuantity
}

// savings returns what the rule takes off qty units at unitPrice.
func (r Rule) savings(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	q := decimal.NewFromInt(int64(qty))
	switch r.Type {
	case Percentage:
		return unitPrice.Mul(q).Mul(r.Value).Div(hundred)
	case Fixed:
		return r.Value.Mul(q)
	default:
		return decimal.Zero
	}
}

// Clone returns a deep copy so callers can hand rules out without sharing
// the product list or date pointers.
func (r Rule) Clone() Rule {
	c := r
	c.SpecificProducts = slices.Clone(r.SpecificProducts)
	if r.StartDate != nil {
		t := *r.StartDate
		c.StartDate = &t
	}
	if r.EndDate != nil {
		t := *r.EndDate
		c.EndDate = &t
	}
	return c
}
