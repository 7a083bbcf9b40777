package cache

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"location-route-preprocessor/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSchema(db))
	return db
}

func TestSqliteNodeCacheRoundTrip(t *testing.T) {
	db := openTestDB(t)
	c := NewSqliteNodeCache(db)
	ctx := context.Background()

	k1 := domain.GeoPoint{Lat: 52.52, Lon: 13.405}.Quantize(5)
	k2 := domain.GeoPoint{Lat: 52.53, Lon: 13.415}.Quantize(5)
	k3 := domain.GeoPoint{Lat: 52.54, Lon: 13.425}.Quantize(5)

	err := c.PutMany(ctx, "graph-a", map[domain.CacheKey]domain.NodeID{k1: 100, k2: 200})
	require.NoError(t, err)

	got, err := c.GetMany(ctx, "graph-a", []domain.CacheKey{k1, k2, k3})
	require.NoError(t, err)
	assert.Equal(t, map[domain.CacheKey]domain.NodeID{k1: 100, k2: 200}, got)

	// Replacing an entry updates in place.
	err = c.PutMany(ctx, "graph-a", map[domain.CacheKey]domain.NodeID{k1: 111})
	require.NoError(t, err)

	got, err = c.GetMany(ctx, "graph-a", []domain.CacheKey{k1})
	require.NoError(t, err)
	assert.Equal(t, domain.NodeID(111), got[k1])
}

func TestSqliteNodeCacheScopesByGraph(t *testing.T) {
	db := openTestDB(t)
	c := NewSqliteNodeCache(db)
	ctx := context.Background()

	k := domain.GeoPoint{Lat: 52.52, Lon: 13.405}.Quantize(5)

	require.NoError(t, c.PutMany(ctx, "graph-a", map[domain.CacheKey]domain.NodeID{k: 1}))
	require.NoError(t, c.PutMany(ctx, "graph-b", map[domain.CacheKey]domain.NodeID{k: 2}))

	got, err := c.GetMany(ctx, "graph-a", []domain.CacheKey{k})
	require.NoError(t, err)
	assert.Equal(t, domain.NodeID(1), got[k])

	got, err = c.GetMany(ctx, "graph-b", []domain.CacheKey{k})
	require.NoError(t, err)
	assert.Equal(t, domain.NodeID(2), got[k])
}

func TestSqliteNodeCacheValidation(t *testing.T) {
	db := openTestDB(t)
	c := NewSqliteNodeCache(db)
	ctx := context.Background()

	k := domain.GeoPoint{Lat: 52.52, Lon: 13.405}.Quantize(5)

	_, err := c.GetMany(ctx, "", []domain.CacheKey{k})
	assert.Error(t, err)

	err = c.PutMany(ctx, "", map[domain.CacheKey]domain.NodeID{k: 1})
	assert.Error(t, err)

	got, err := c.GetMany(ctx, "graph-a", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
