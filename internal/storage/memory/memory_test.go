package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-pricing/internal/domain/auth"
	"github.com/xenking/kart-pricing/internal/domain/cart"
	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/order"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

func TestCartStore(t *testing.T) {
	ctx := context.Background()
	s := NewCartStore()

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	l := cart.Load(ctx, s, cart.Key("c1"))
	require.NoError(t, l.Add(ctx, &product.Product{ID: "A", Price: decimal.NewFromInt(5)}, 2))

	reloaded := cart.Load(ctx, s, cart.Key("c1"))
	assert.Equal(t, 2, reloaded.QuantityOf("A"))
}

func TestCartStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewCartStore()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Set(ctx, "k", string(rune('a'+i)))
			_, _, _ = s.Get(ctx, "k")
		}()
	}
	wg.Wait()

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRuleStore(t *testing.T) {
	ctx := context.Background()
	s := NewRuleStore(
		discount.Rule{ID: "a", Name: "A", SpecificProducts: []string{"p1"}},
		discount.Rule{ID: "b", Name: "B"},
	)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	got.SpecificProducts[0] = "mutated"

	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, again.SpecificProducts, "Get returns a copy")

	require.NoError(t, s.Save(ctx, &discount.Rule{ID: "a", Name: "A2"}))
	require.NoError(t, s.Save(ctx, &discount.Rule{ID: "c", Name: "C"}))

	rules, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{rules[0].ID, rules[1].ID, rules[2].ID})
	assert.Equal(t, "A2", rules[0].Name)

	require.NoError(t, s.Delete(ctx, "b"))
	require.ErrorIs(t, s.Delete(ctx, "b"), discount.ErrRuleNotFound)
	_, err = s.Get(ctx, "b")
	require.ErrorIs(t, err, discount.ErrRuleNotFound)
}

func TestRuleStore_WithAdmin(t *testing.T) {
	ctx := context.Background()
	admin := discount.NewAdmin(NewRuleStore())

	created, err := admin.Create(ctx, discount.Rule{
		Name:        "Five Pack",
		Type:        discount.Percentage,
		Value:       decimal.NewFromInt(10),
		MinQuantity: 5,
		Scope:       discount.ScopeAll,
		IsActive:    true,
	})
	require.NoError(t, err)

	toggled, err := admin.Toggle(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	rules, err := admin.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.False(t, rules[0].IsActive)
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(
		product.Product{ID: "b", Name: "B"},
		product.Product{ID: "a", Name: "A"},
		product.Product{ID: "b", Name: "B2"},
	)

	all, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "B2", all[1].Name)

	_, err = c.GetByID(ctx, "zzz")
	require.ErrorIs(t, err, product.ErrNotFound)

	some, err := c.GetByIDs(ctx, []string{"b", "zzz"})
	require.NoError(t, err)
	require.Len(t, some, 1)
}

func TestOrders(t *testing.T) {
	ctx := context.Background()
	o := NewOrders()
	ord := &order.Order{ID: "o1", Items: []order.OrderItem{{ProductID: "A", Quantity: 1}}}

	require.NoError(t, o.Create(ctx, ord))
	require.Error(t, o.Create(ctx, ord))

	got, err := o.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Items[0].ProductID)

	_, err = o.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAPIKeys(t *testing.T) {
	ctx := context.Background()
	s := NewAPIKeys(auth.APIKeyInfo{ID: "k", KeyHash: "h", Scopes: []string{auth.ScopeCreateOrder}})

	k, err := s.FindByHash(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, "k", k.ID)

	_, err = s.FindByHash(ctx, "other")
	require.ErrorIs(t, err, auth.ErrKeyNotFound)
}
