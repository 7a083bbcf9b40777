package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"location-route-preprocessor/internal/domain"
)

func openTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisNodeCacheRoundTrip(t *testing.T) {
	c := NewRedisNodeCache(openTestRedis(t), 0)
	ctx := context.Background()

	k1 := domain.GeoPoint{Lat: 52.52, Lon: 13.405}.Quantize(5)
	k2 := domain.GeoPoint{Lat: 52.53, Lon: 13.415}.Quantize(5)
	missing := domain.GeoPoint{Lat: 52.54, Lon: 13.425}.Quantize(5)

	err := c.PutMany(ctx, "graph-a", map[domain.CacheKey]domain.NodeID{k1: 100, k2: 200})
	require.NoError(t, err)

	got, err := c.GetMany(ctx, "graph-a", []domain.CacheKey{k1, k2, missing})
	require.NoError(t, err)
	assert.Equal(t, map[domain.CacheKey]domain.NodeID{k1: 100, k2: 200}, got)
}

func TestRedisNodeCacheScopesByGraph(t *testing.T) {
	c := NewRedisNodeCache(openTestRedis(t), 0)
	ctx := context.Background()

	k := domain.GeoPoint{Lat: 52.52, Lon: 13.405}.Quantize(5)

	require.NoError(t, c.PutMany(ctx, "graph-a", map[domain.CacheKey]domain.NodeID{k: 1}))

	got, err := c.GetMany(ctx, "graph-b", []domain.CacheKey{k})
	require.NoError(t, err)
	assert.Empty(t, got)
}
