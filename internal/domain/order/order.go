package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a checked-out cart with the bulk discounts that applied to it.
type Order struct {
	ID        string
	CartID    string
	Items     []OrderItem
	Subtotal  decimal.Decimal
	Discounts decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Discount  string          `json:"discount,omitempty"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
}
