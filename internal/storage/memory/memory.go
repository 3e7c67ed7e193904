// Package memory provides map-backed implementations of the domain stores.
// They are safe for concurrent use and hand out copies, never shared state.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-pricing/internal/domain/auth"
	"github.com/xenking/kart-pricing/internal/domain/cart"
	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/order"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

// ErrOrderNotFound is returned by Orders.Get for unknown IDs.
var ErrOrderNotFound = errors.New("order not found")

var (
	_ cart.Store         = (*CartStore)(nil)
	_ discount.RuleStore = (*RuleStore)(nil)
	_ product.Repository = (*Catalog)(nil)
	_ order.Repository   = (*Orders)(nil)
	_ auth.Repository    = (*APIKeys)(nil)
)

// CartStore is an in-process cart.Store.
type CartStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewCartStore returns an empty CartStore.
func NewCartStore() *CartStore {
	return &CartStore{data: make(map[string]string)}
}

func (s *CartStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *CartStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// RuleStore keeps rules in insertion order.
type RuleStore struct {
	mu    sync.RWMutex
	rules []discount.Rule
}

// NewRuleStore returns a RuleStore seeded with rules.
func NewRuleStore(rules ...discount.Rule) *RuleStore {
	s := &RuleStore{}
	for _, r := range rules {
		s.rules = append(s.rules, r.Clone())
	}
	return s
}

func (s *RuleStore) List(_ context.Context) ([]discount.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]discount.Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Clone()
	}
	return out, nil
}

func (s *RuleStore) Get(_ context.Context, id string) (*discount.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(id)
	if i < 0 {
		return nil, discount.ErrRuleNotFound
	}
	r := s.rules[i].Clone()
	return &r, nil
}

// Save replaces the rule with the same ID in place, or appends it.
func (s *RuleStore) Save(_ context.Context, r *discount.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(r.ID); i >= 0 {
		s.rules[i] = r.Clone()
		return nil
	}
	s.rules = append(s.rules, r.Clone())
	return nil
}

func (s *RuleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return discount.ErrRuleNotFound
	}
	s.rules = slices.Delete(s.rules, i, i+1)
	return nil
}

func (s *RuleStore) index(id string) int {
	return slices.IndexFunc(s.rules, func(r discount.Rule) bool { return r.ID == id })
}

// Catalog is a fixed product catalog listed in ID order.
type Catalog struct {
	byID map[string]product.Product
	ids  []string
}

// NewCatalog returns a Catalog holding products. Later duplicates win.
func NewCatalog(products ...product.Product) *Catalog {
	c := &Catalog{byID: make(map[string]product.Product, len(products))}
	for _, p := range products {
		if _, ok := c.byID[p.ID]; !ok {
			c.ids = append(c.ids, p.ID)
		}
		c.byID[p.ID] = p
	}
	slices.Sort(c.ids)
	return c
}

func (c *Catalog) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, len(c.ids))
	for i, id := range c.ids {
		out[i] = c.byID[id]
	}
	return out, nil
}

func (c *Catalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (c *Catalog) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Orders records placed orders.
type Orders struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

// NewOrders returns an empty Orders.
func NewOrders() *Orders {
	return &Orders{orders: make(map[string]order.Order)}
}

func (o *Orders) Create(_ context.Context, ord *order.Order) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.orders[ord.ID]; ok {
		return errors.Errorf("order %q already exists", ord.ID)
	}
	cp := *ord
	cp.Items = slices.Clone(ord.Items)
	o.orders[ord.ID] = cp
	return nil
}

// Get returns a copy of the order.
func (o *Orders) Get(_ context.Context, id string) (*order.Order, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ord, ok := o.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	ord.Items = slices.Clone(ord.Items)
	return &ord, nil
}

// APIKeys is a static key set indexed by hash.
type APIKeys struct {
	byHash map[string]auth.APIKeyInfo
}

// NewAPIKeys returns an APIKeys holding keys.
func NewAPIKeys(keys ...auth.APIKeyInfo) *APIKeys {
	s := &APIKeys{byHash: make(map[string]auth.APIKeyInfo, len(keys))}
	for _, k := range keys {
		s.byHash[k.KeyHash] = k
	}
	return s
}

func (s *APIKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	k, ok := s.byHash[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	k.Scopes = slices.Clone(k.Scopes)
	return &k, nil
}
