package auth

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
)

// Scopes granted to API keys.
const (
	ScopeCreateOrder     = "create_order"
	ScopeManageDiscounts = "manage_discounts"
)

// ErrKeyNotFound is returned by repositories when no key matches the hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key was granted scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

type ctxKey struct{}

// WithKey stores the authenticated key in ctx.
func WithKey(ctx context.Context, k *APIKeyInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, k)
}

// KeyFrom returns the authenticated key stored by WithKey, if any.
func KeyFrom(ctx context.Context) (*APIKeyInfo, bool) {
	k, ok := ctx.Value(ctxKey{}).(*APIKeyInfo)
	return k, ok
}
