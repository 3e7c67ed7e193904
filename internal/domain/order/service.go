package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/internal/domain/pricing"
)

const tracerName = "github.com/xenking/kart-pricing/internal/domain/order"

// ErrEmptyCart is returned when checking out a cart without items.
var ErrEmptyCart = errors.New("cart is empty")

// Carts is the part of the pricing service checkout depends on.
type Carts interface {
	Quote(ctx context.Context, cartID string) (*pricing.Quote, error)
	ClearCart(ctx context.Context, cartID string) error
}

// Service encapsulates checkout business logic.
type Service struct {
	carts  Carts
	orders Repository
	tracer trace.Tracer
	now    func() time.Time
}

// NewService creates an order Service.
func NewService(carts Carts, orders Repository, tp trace.TracerProvider) *Service {
	return &Service{
		carts:  carts,
		orders: orders,
		tracer: tp.Tracer(tracerName),
		now:    time.Now,
	}
}

// Checkout prices the cart, persists the resulting order and empties the
// cart. Amounts are rounded to 2 decimal places. Line totals and Total never
// go below zero, and Discounts is always Subtotal - Total.
func (s *Service) Checkout(ctx context.Context, cartID string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Checkout",
		trace.WithAttributes(attribute.String("cart.id", cartID)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	q, err := s.carts.Quote(ctx, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "quote cart")
	}
	if len(q.Items) == 0 {
		return nil, ErrEmptyCart
	}

	var charged decimal.Decimal
	items := make([]OrderItem, len(q.Pricing.Lines))
	for i, line := range q.Pricing.Lines {
		lineTotal := floorAtZero(line.DiscountedTotal)
		charged = charged.Add(lineTotal)
		items[i] = OrderItem{
			ProductID: line.Item.ProductID,
			Name:      line.Item.Name,
			Quantity:  line.Item.Quantity,
			UnitPrice: line.Item.UnitPrice,
			LineTotal: lineTotal.Round(2),
		}
		if line.Discount != nil {
			items[i].Discount = line.Discount.Name
		}
	}

	subtotal := q.Pricing.TotalOriginal.Round(2)
	total := charged.Round(2)
	o := &Order{
		ID:        uuid.New().String(),
		CartID:    cartID,
		Items:     items,
		Subtotal:  subtotal,
		Discounts: subtotal.Sub(total),
		Total:     total,
		CreatedAt: s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	span.SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.String("order.total", o.Total.String()),
	)

	// The order is already persisted, so a failed clear is only logged.
	if err := s.carts.ClearCart(ctx, cartID); err != nil {
		zctx.From(ctx).Warn("Clear cart after checkout",
			zap.String("cart_id", cartID),
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}

	return o, nil
}

// floorAtZero clamps an amount owed to zero; a fixed per-unit rule may save
// more than the line is worth.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
