package main

import (
	"context"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/db"
	"github.com/xenking/kart-pricing/internal/domain/auth"
	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/product"
	"github.com/xenking/kart-pricing/internal/handler"
	"github.com/xenking/kart-pricing/internal/storage/postgres"
)

type options struct {
	databaseURL  string
	productsFile string
	rulesFile    string
	apiKey       string
	apiKeyPepper string
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "", "path to products JSON file (default: embedded catalog)")
	flag.StringVar(&opts.rulesFile, "rules-file", "", "path to discount rules JSON file (default: embedded rules)")
	flag.StringVar(&opts.apiKey, "api-key", "", "API key to seed (or KART_SEED_API_KEY env)")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or KART_API_KEY_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	opts.databaseURL = firstNonEmpty(opts.databaseURL, os.Getenv("KART_DATABASE_URL"), os.Getenv("DATABASE_URL"))
	if opts.databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	opts.apiKey = firstNonEmpty(opts.apiKey, os.Getenv("KART_SEED_API_KEY"))
	if opts.apiKey == "" {
		lg.Fatal("API key is required: set --api-key or KART_SEED_API_KEY")
	}
	opts.apiKeyPepper = firstNonEmpty(opts.apiKeyPepper, os.Getenv("KART_API_KEY_PEPPER"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, lg, postgres.NewProductRepository(pool), opts.productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedRules(ctx, lg, postgres.NewRuleRepository(pool), opts.rulesFile); err != nil {
		return errors.Wrap(err, "seed discount rules")
	}
	if err := seedAPIKey(ctx, lg, postgres.NewAPIKeyRepository(pool), opts.apiKey, opts.apiKeyPepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedProducts(ctx context.Context, lg *zap.Logger, repo *postgres.ProductRepository, path string) error {
	data, err := readSeed(path, db.SeedProducts)
	if err != nil {
		return err
	}
	products, err := product.DecodeCatalog(data)
	if err != nil {
		return errors.Wrap(err, "parse products")
	}
	for _, p := range products {
		if p.Price.IsZero() {
			lg.Warn("Product has no parseable price", zap.String("id", p.ID), zap.String("name", p.Name))
		}
	}

	lg.Info("Upserting products", zap.Int("count", len(products)))
	return repo.Upsert(ctx, products)
}

func seedRules(ctx context.Context, lg *zap.Logger, repo *postgres.RuleRepository, path string) error {
	data, err := readSeed(path, db.SeedRules)
	if err != nil {
		return err
	}
	rules, err := discount.DecodeRules(data)
	if err != nil {
		return errors.Wrap(err, "parse rules")
	}

	admin := discount.NewAdmin(repo)
	now := time.Now().UTC()
	for i := range rules {
		r := &rules[i]
		if err := admin.Validate(*r); err != nil {
			return errors.Wrapf(err, "rule %q", r.Name)
		}
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		r.CreatedAt, r.UpdatedAt = now, now
	}

	lg.Info("Upserting discount rules", zap.Int("count", len(rules)))
	return repo.SaveAll(ctx, rules)
}

func seedAPIKey(ctx context.Context, lg *zap.Logger, repo *postgres.APIKeyRepository, key, pepper string) error {
	lg.Info("Seeding default API key")
	return repo.Upsert(ctx, auth.APIKeyInfo{
		ID:      "default",
		KeyHash: handler.HashKey(key, []byte(pepper)),
		Name:    "Default seed key",
		Scopes:  []string{auth.ScopeCreateOrder, auth.ScopeManageDiscounts},
	})
}

// readSeed reads path, or the embedded seed file when path is empty.
func readSeed(path, embedded string) ([]byte, error) {
	if path == "" {
		data, err := fs.ReadFile(db.Seed, embedded)
		if err != nil {
			return nil, errors.Wrapf(err, "read embedded %s", embedded)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return data, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
