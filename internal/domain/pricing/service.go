// Package pricing ties the catalog, the discount rules and the cart ledger
// together into the quotes and offers shown to shoppers.
package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-pricing/internal/domain/cart"
	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

const meterName = "github.com/xenking/kart-pricing/internal/domain/pricing"

// maxCartIDLen bounds cart identifiers taken from URLs.
const maxCartIDLen = 128

// ErrInvalidCartID is returned for empty, oversized or namespaced cart IDs.
var ErrInvalidCartID = errors.New("invalid cart id")

// Quote is the priced view of a cart.
type Quote struct {
	CartID    string
	Items     []cart.LineItem
	ItemCount int
	Pricing   discount.CartPricing
	// Summary is nil when no discount applies.
	Summary *discount.Summary
	// NextTiers maps product IDs to the next reachable tier, when one exists.
	NextTiers map[string]*discount.NextTier
}

// Offer describes the bulk pricing available on one product at a quantity.
type Offer struct {
	Product   product.Product
	Quantity  int
	Tiers     []discount.Tier
	Next      *discount.NextTier
	Qualifies bool
}

// Service prices carts and products.
type Service struct {
	products product.Repository
	rules    discount.Repository
	carts    cart.Store
	now      func() time.Time

	quotes       metric.Int64Counter
	rulesSkipped metric.Int64Counter
}

// NewService creates a pricing Service. The meter provider backs the quote
// and skipped-rule counters.
func NewService(
	products product.Repository,
	rules discount.Repository,
	carts cart.Store,
	mp metric.MeterProvider,
) (*Service, error) {
	meter := mp.Meter(meterName)

	quotes, err := meter.Int64Counter("kart.pricing.quotes",
		metric.WithDescription("Number of cart quotes computed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create quotes counter")
	}
	skipped, err := meter.Int64Counter("kart.discount.rules_skipped",
		metric.WithDescription("Number of active but malformed discount rules skipped while pricing"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create rules skipped counter")
	}

	return &Service{
		products:     products,
		rules:        rules,
		carts:        carts,
		now:          time.Now,
		quotes:       quotes,
		rulesSkipped: skipped,
	}, nil
}

// Cart loads the ledger for cartID.
func (s *Service) Cart(ctx context.Context, cartID string) (*cart.Ledger, error) {
	if err := validateCartID(cartID); err != nil {
		return nil, err
	}
	return cart.Load(ctx, s.carts, cart.Key(cartID)), nil
}

// AddItem adds qty units of the product to the cart and returns the new quote.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, qty int) (*Quote, error) {
	l, err := s.Cart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %s", productID)
	}
	if err := l.Add(ctx, p, qty); err != nil {
		return nil, err
	}
	return s.price(ctx, cartID, l)
}

// RemoveItem drops the product from the cart.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) (*Quote, error) {
	l, err := s.Cart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := l.Remove(ctx, productID); err != nil {
		return nil, err
	}
	return s.price(ctx, cartID, l)
}

// SetQuantity sets the product's quantity; qty <= 0 removes it.
func (s *Service) SetQuantity(ctx context.Context, cartID, productID string, qty int) (*Quote, error) {
	l, err := s.Cart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := l.SetQuantity(ctx, productID, qty); err != nil {
		return nil, err
	}
	return s.price(ctx, cartID, l)
}

// ClearCart empties the cart.
func (s *Service) ClearCart(ctx context.Context, cartID string) error {
	l, err := s.Cart(ctx, cartID)
	if err != nil {
		return err
	}
	return l.Clear(ctx)
}

// Quote prices the cart. Rules and the ledger are loaded concurrently.
func (s *Service) Quote(ctx context.Context, cartID string) (*Quote, error) {
	if err := validateCartID(cartID); err != nil {
		return nil, err
	}

	var (
		rules []discount.Rule
		l     *cart.Ledger
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rules, err = s.rules.List(gCtx)
		if err != nil {
			return errors.Wrap(err, "list discount rules")
		}
		return nil
	})
	g.Go(func() error {
		l = cart.Load(gCtx, s.carts, cart.Key(cartID))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.build(ctx, cartID, l, rules), nil
}

// Offer describes the tiers available on a product and where qty stands.
func (s *Service) Offer(ctx context.Context, productID string, qty int) (*Offer, error) {
	if qty < 0 {
		qty = 0
	}

	var (
		p     *product.Product
		rules []discount.Rule
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = s.products.GetByID(gCtx, productID)
		if err != nil {
			return errors.Wrapf(err, "get product %s", productID)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rules, err = s.rules.List(gCtx)
		if err != nil {
			return errors.Wrap(err, "list discount rules")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	s.reportMalformed(ctx, rules, now)
	return &Offer{
		Product:   *p,
		Quantity:  qty,
		Tiers:     discount.Tiers(*p, rules, now),
		Next:      discount.NextTierFor(*p, qty, rules, now),
		Qualifies: discount.Qualifies(*p, qty, rules, now),
	}, nil
}

func (s *Service) price(ctx context.Context, cartID string, l *cart.Ledger) (*Quote, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list discount rules")
	}
	return s.build(ctx, cartID, l, rules), nil
}

func (s *Service) build(ctx context.Context, cartID string, l *cart.Ledger, rules []discount.Rule) *Quote {
	now := s.now()
	s.reportMalformed(ctx, rules, now)

	pricing := l.Pricing(rules, now)
	q := &Quote{
		CartID:    cartID,
		Items:     l.Items(),
		ItemCount: l.ItemCount(),
		Pricing:   pricing,
		Summary:   pricing.Summary(),
		NextTiers: make(map[string]*discount.NextTier),
	}
	for _, li := range q.Items {
		p := product.Product{
			ID:       li.ProductID,
			Name:     li.Name,
			Price:    li.UnitPrice,
			Category: li.Category,
		}
		if next := discount.NextTierFor(p, li.Quantity, rules, now); next != nil {
			q.NextTiers[li.ProductID] = next
		}
	}

	s.quotes.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("has_discounts", pricing.HasDiscounts),
	))
	return q
}

// reportMalformed logs every active rule the engine is going to skip.
func (s *Service) reportMalformed(ctx context.Context, rules []discount.Rule, now time.Time) {
	lg := zctx.From(ctx)
	for _, r := range discount.ActiveRules(rules, now) {
		problems := r.Problems()
		if len(problems) == 0 {
			continue
		}
		lg.Warn("Skipping malformed discount rule",
			zap.String("rule_id", r.ID),
			zap.String("rule_name", r.Name),
			zap.Strings("problems", problems),
		)
		s.rulesSkipped.Add(ctx, 1)
	}
}

func validateCartID(id string) error {
	if id == "" || len(id) > maxCartIDLen || strings.ContainsAny(id, ": \t\n") {
		return ErrInvalidCartID
	}
	return nil
}
