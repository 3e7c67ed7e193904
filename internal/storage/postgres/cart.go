package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-pricing/internal/domain/cart"
)

const (
	getCartSQL = `SELECT value FROM cart_snapshots WHERE key = $1`

	setCartSQL = `INSERT INTO cart_snapshots (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

var _ cart.Store = (*CartStore)(nil)

// CartStore keeps cart snapshots in the cart_snapshots table. Each Set
// replaces the row, so the last writer wins.
type CartStore struct {
	pool *pgxpool.Pool
}

// NewCartStore returns a CartStore that uses the given pool.
func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{pool: pool}
}

// Get returns the snapshot stored under key.
func (s *CartStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, getCartSQL, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "get cart %q", key)
	}
	return value, true, nil
}

// Set writes the snapshot under key.
func (s *CartStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.pool.Exec(ctx, setCartSQL, key, value); err != nil {
		return errors.Wrapf(err, "set cart %q", key)
	}
	return nil
}
