package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-pricing/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, cart_id, items, subtotal, discounts, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getOrderSQL = `SELECT id, cart_id, items, subtotal, discounts, total, created_at
		FROM orders WHERE id = $1`
)

// ErrOrderNotFound is returned by Get for unknown order IDs.
var ErrOrderNotFound = errors.New("order not found")

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The order items are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.CartID, itemsJSON, o.Subtotal, o.Discounts, o.Total, o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}

	return nil
}

// Get loads an order by ID.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	var (
		o     order.Order
		items []byte
	)
	err := r.pool.QueryRow(ctx, getOrderSQL, id).Scan(
		&o.ID, &o.CartID, &items, &o.Subtotal, &o.Discounts, &o.Total, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, errors.Wrapf(err, "unmarshal items of order %q", id)
	}
	return &o, nil
}
