// Package cart holds the shopper's line items and keeps them persisted.
package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/discount"
)

// ErrNilProduct is returned when Add is called without a usable product.
// It signals a caller bug rather than bad shopper input.
var ErrNilProduct = errors.New("cart: product is required")

const keyPrefix = "kart:cart:"

// Key returns the storage key that holds the snapshot of the given cart.
func Key(cartID string) string {
	return keyPrefix + cartID
}

// LineItem is one product in the cart and how many of it were selected.
type LineItem struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Category  string
	Quantity  int
}

// Total returns UnitPrice * Quantity.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

func (li LineItem) discountItem() discount.Item {
	return discount.Item{
		ProductID: li.ProductID,
		Name:      li.Name,
		Category:  li.Category,
		UnitPrice: li.UnitPrice,
		Quantity:  li.Quantity,
	}
}

// Store is a durable string key/value store holding cart snapshots.
// Get reports ok=false when the key does not exist.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}
