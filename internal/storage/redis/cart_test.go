//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/kart-pricing/internal/domain/cart"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestCartStore(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, startRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewCartStore(client, time.Hour)
	key := cart.Key("redis-test")

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	l := cart.Load(ctx, store, key)
	require.NoError(t, l.Add(ctx, &product.Product{
		ID: "p-1", Name: "Soil Sensor", Price: decimal.NewFromInt(100), Category: "Sensors",
	}, 4))

	reloaded := cart.Load(ctx, store, key)
	assert.Equal(t, 4, reloaded.QuantityOf("p-1"))

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestCartStore_NoTTL(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, startRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewCartStore(client, 0)
	require.NoError(t, store.Set(ctx, "k", "v"))

	ttl, err := client.TTL(ctx, "k").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}
