// Package redis stores cart snapshots in Redis.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/kart-pricing/internal/domain/cart"
)

var _ cart.Store = (*CartStore)(nil)

// CartStore keeps each cart snapshot in a plain string key. A positive TTL
// is refreshed on every write so idle carts expire.
type CartStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCartStore returns a CartStore using client. ttl <= 0 keeps keys forever.
func NewCartStore(client redis.UniversalClient, ttl time.Duration) *CartStore {
	if ttl < 0 {
		ttl = 0
	}
	return &CartStore{client: client, ttl: ttl}
}

// NewClient parses a redis:// URL and verifies the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

// Get returns the snapshot stored under key.
func (s *CartStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "get cart %q", key)
	}
	return value, true, nil
}

// Set writes the snapshot under key.
func (s *CartStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set cart %q", key)
	}
	return nil
}
