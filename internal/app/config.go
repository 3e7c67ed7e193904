package app

import (
	"io/fs"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// Cart snapshot backends.
const (
	CartStorePostgres = "postgres"
	CartStoreRedis    = "redis"
	CartStoreMemory   = "memory"
)

// Config holds the complete application configuration, loadable from
// environment variables (KART_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (KART_DATABASE_URL or DATABASE_URL); empty runs on in-memory storage" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (KART_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Cart         CartConfig
	Seed         SeedConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// CartConfig selects where cart snapshots live.
type CartConfig struct {
	Store    string        `default:"postgres" usage:"Cart snapshot store: postgres, redis or memory" flag:"cart-store"`
	RedisURL string        `usage:"Redis URL for the redis cart store (KART_CART_REDIS_URL or REDIS_URL)" flag:"cart-redis-url"`
	TTL      time.Duration `default:"168h" usage:"Expiry of idle carts in redis, 0 keeps them forever" flag:"cart-ttl"`
}

// SeedConfig applies only to in-memory storage.
type SeedConfig struct {
	APIKey string `usage:"API key granted every scope when running without a database (KART_SEED_API_KEY)" flag:"seed-api-key"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads a .env file if present, then configuration from
// environment variables, YAML config files and flags, and applies
// platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}
	return loadConfig(aconfig.Config{
		EnvPrefix: "KART",
		Files:     []string{"config.yaml", "/etc/kart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(acfg aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// InMemory reports whether catalog, rules and orders live in process.
func (c *Config) InMemory() bool {
	return c.DatabaseURL == ""
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL, REDIS_URL and PORT
// to the application's KART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Cart.RedisURL == "" {
		c.Cart.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch c.Cart.Store {
	case CartStorePostgres:
		if c.InMemory() {
			return errors.New("postgres cart store needs a database URL: set KART_DATABASE_URL or use KART_CART_STORE=memory")
		}
	case CartStoreRedis:
		if c.Cart.RedisURL == "" {
			return errors.New("redis cart store needs a URL: set KART_CART_REDIS_URL or REDIS_URL")
		}
	case CartStoreMemory:
	default:
		return errors.Errorf("unknown cart store %q", c.Cart.Store)
	}
	if c.RateLimit.Max < 1 {
		return errors.New("rate limit max must be positive")
	}
	return nil
}
