package app

import (
	"context"
	"io/fs"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/db"
	"github.com/xenking/kart-pricing/internal/domain/auth"
	"github.com/xenking/kart-pricing/internal/domain/cart"
	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/order"
	"github.com/xenking/kart-pricing/internal/domain/product"
	"github.com/xenking/kart-pricing/internal/handler"
	"github.com/xenking/kart-pricing/internal/storage/memory"
	"github.com/xenking/kart-pricing/internal/storage/postgres"
	redisstore "github.com/xenking/kart-pricing/internal/storage/redis"
	"github.com/xenking/kart-pricing/pkg/health"
)

// stores bundles every persistence dependency of the API.
type stores struct {
	products product.Repository
	rules    discount.RuleStore
	orders   order.Repository
	apikeys  auth.Repository
	carts    cart.Store

	checks  map[string]health.CheckFunc
	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, lg *zap.Logger, cfg *Config) (_ *stores, rerr error) {
	s := &stores{checks: make(map[string]health.CheckFunc)}
	defer func() {
		if rerr != nil {
			s.Close()
		}
	}()

	if cfg.InMemory() {
		lg.Warn("No database configured, using in-memory storage")
		if err := s.openMemory(cfg); err != nil {
			return nil, err
		}
	} else if err := s.openPostgres(ctx, cfg); err != nil {
		return nil, err
	}

	switch cfg.Cart.Store {
	case CartStoreRedis:
		client, err := redisstore.NewClient(ctx, cfg.Cart.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, "connect to redis")
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
		s.carts = redisstore.NewCartStore(client, cfg.Cart.TTL)
	case CartStoreMemory:
		s.carts = memory.NewCartStore()
	}
	// Postgres carts were attached by openPostgres.

	lg.Info("Storage ready",
		zap.Bool("in_memory", cfg.InMemory()),
		zap.String("cart_store", cfg.Cart.Store),
	)
	return s, nil
}

func (s *stores) openPostgres(ctx context.Context, cfg *Config) error {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	s.closers = append(s.closers, pool.Close)

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	s.checks["postgres"] = health.PingCheck(pool)
	s.products = postgres.NewProductRepository(pool)
	s.rules = postgres.NewRuleRepository(pool)
	s.orders = postgres.NewOrderRepository(pool)
	s.apikeys = postgres.NewAPIKeyRepository(pool)
	if cfg.Cart.Store == CartStorePostgres {
		s.carts = postgres.NewCartStore(pool)
	}
	return nil
}

func (s *stores) openMemory(cfg *Config) error {
	products, rules, err := loadSeed(db.Seed)
	if err != nil {
		return err
	}
	s.products = memory.NewCatalog(products...)
	s.rules = memory.NewRuleStore(rules...)
	s.orders = memory.NewOrders()

	var keys []auth.APIKeyInfo
	if cfg.Seed.APIKey != "" {
		keys = append(keys, auth.APIKeyInfo{
			ID:      "seed",
			KeyHash: handler.HashKey(cfg.Seed.APIKey, []byte(cfg.APIKeyPepper)),
			Name:    "seed",
			Scopes:  []string{auth.ScopeCreateOrder, auth.ScopeManageDiscounts},
		})
	}
	s.apikeys = memory.NewAPIKeys(keys...)
	return nil
}

// loadSeed reads the default catalog and rules from fsys.
func loadSeed(fsys fs.FS) ([]product.Product, []discount.Rule, error) {
	data, err := fs.ReadFile(fsys, db.SeedProducts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read seed products")
	}
	products, err := product.DecodeCatalog(data)
	if err != nil {
		return nil, nil, errors.Wrap(err, "decode seed products")
	}

	data, err = fs.ReadFile(fsys, db.SeedRules)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read seed rules")
	}
	rules, err := discount.DecodeRules(data)
	if err != nil {
		return nil, nil, errors.Wrap(err, "decode seed rules")
	}
	now := time.Now().UTC()
	for i := range rules {
		rules[i].CreatedAt = now
		rules[i].UpdatedAt = now
	}
	return products, rules, nil
}
