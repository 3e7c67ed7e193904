package cart

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

// Ledger is the authoritative list of a cart's line items. Every mutation
// that changes the list rewrites the whole snapshot to the Store.
//
// A Ledger is not safe for concurrent use.
type Ledger struct {
	store Store
	key   string
	items []LineItem
}

// Load restores the ledger stored under key. A missing, unreadable or
// corrupt snapshot yields an empty ledger; the latter two are logged.
func Load(ctx context.Context, store Store, key string) *Ledger {
	l := &Ledger{store: store, key: key}

	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		zctx.From(ctx).Warn("Cart snapshot unreadable, starting empty",
			zap.String("key", key), zap.Error(err))
		return l
	}
	if !ok {
		return l
	}

	items, err := decodeSnapshot(raw)
	if err != nil {
		zctx.From(ctx).Warn("Cart snapshot corrupt, starting empty",
			zap.String("key", key), zap.Error(err))
		return l
	}
	l.items = items
	return l
}

// Add puts qty units of p into the cart, increasing the quantity when the
// product is already present. Quantities below one are treated as one.
func (l *Ledger) Add(ctx context.Context, p *product.Product, qty int) error {
	if p == nil || p.ID == "" {
		return ErrNilProduct
	}
	if qty < 1 {
		qty = 1
	}

	if i := l.index(p.ID); i >= 0 {
		l.items[i].Quantity += qty
	} else {
		l.items = append(l.items, LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Category:  p.Category,
			Quantity:  qty,
		})
	}
	return l.persist(ctx)
}

// Remove deletes the product's line. Removing an absent product is a no-op.
func (l *Ledger) Remove(ctx context.Context, productID string) error {
	i := l.index(productID)
	if i < 0 {
		return nil
	}
	l.items = slices.Delete(l.items, i, i+1)
	return l.persist(ctx)
}

// SetQuantity sets the product's quantity to exactly qty, removing the line
// when qty <= 0. Products that are not in the cart are left alone.
func (l *Ledger) SetQuantity(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return l.Remove(ctx, productID)
	}
	i := l.index(productID)
	if i < 0 || l.items[i].Quantity == qty {
		return nil
	}
	l.items[i].Quantity = qty
	return l.persist(ctx)
}

// Clear empties the cart.
func (l *Ledger) Clear(ctx context.Context) error {
	l.items = nil
	return l.persist(ctx)
}

// Pricing prices the cart against rules as of now.
func (l *Ledger) Pricing(rules []discount.Rule, now time.Time) discount.CartPricing {
	items := make([]discount.Item, len(l.items))
	for i, li := range l.items {
		items[i] = li.discountItem()
	}
	return discount.ComputeCartPricing(items, rules, now)
}

// Items returns a copy of the line items in insertion order.
func (l *Ledger) Items() []LineItem {
	return slices.Clone(l.items)
}

// ItemCount is the sum of all quantities.
func (l *Ledger) ItemCount() int {
	n := 0
	for _, li := range l.items {
		n += li.Quantity
	}
	return n
}

// Subtotal is the undiscounted value of the cart.
func (l *Ledger) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range l.items {
		sum = sum.Add(li.Total())
	}
	return sum
}

// Contains reports whether the product has a line in the cart.
func (l *Ledger) Contains(productID string) bool {
	return l.index(productID) >= 0
}

// QuantityOf returns the product's quantity, zero when absent.
func (l *Ledger) QuantityOf(productID string) int {
	if i := l.index(productID); i >= 0 {
		return l.items[i].Quantity
	}
	return 0
}

// Empty reports whether the cart has no lines.
func (l *Ledger) Empty() bool {
	return len(l.items) == 0
}

func (l *Ledger) index(productID string) int {
	return slices.IndexFunc(l.items, func(li LineItem) bool {
		return li.ProductID == productID
	})
}

func (l *Ledger) persist(ctx context.Context) error {
	if err := l.store.Set(ctx, l.key, encodeSnapshot(l.items)); err != nil {
		return errors.Wrapf(err, "save cart %s", l.key)
	}
	return nil
}
