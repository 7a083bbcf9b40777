package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"location-route-preprocessor/internal/domain"
)

// RedisNodeCache is a Redis-backed persistent node cache. Useful when many
// short-lived preprocessing runs share one region graph and a warm snap cache
// matters more than durability.
type RedisNodeCache struct {
	Client *redis.Client
	TTL    time.Duration // zero means no expiry
}

func NewRedisNodeCache(client *redis.Client, ttl time.Duration) *RedisNodeCache {
	return &RedisNodeCache{Client: client, TTL: ttl}
}

func redisKey(graphFingerprint string, key domain.CacheKey) string {
	return fmt.Sprintf("nodecache:%s:%s", graphFingerprint, key.String())
}

// Fetch cached node ids for the given quantized points.
func (r *RedisNodeCache) GetMany(
	ctx context.Context,
	graphFingerprint string,
	keys []domain.CacheKey,
) (map[domain.CacheKey]domain.NodeID, error) {
	if r.Client == nil {
		return nil, errors.New("node cache: redis client is nil")
	}

	if graphFingerprint == "" {
		return nil, errors.New("get node cache: graph fingerprint must not be empty")
	}

	if len(keys) == 0 {
		return map[domain.CacheKey]domain.NodeID{}, nil
	}

	fields := make([]string, len(keys))
	for i, k := range keys {
		fields[i] = redisKey(graphFingerprint, k)
	}

	values, err := r.Client.MGet(ctx, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("get node cache: redis mget: %w", err)
	}

	out := make(map[domain.CacheKey]domain.NodeID, len(keys))
	for i, v := range values {
		if v == nil {
			continue
		}

		text, ok := v.(string)
		if !ok {
			continue
		}

		node, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("get node cache: corrupt value for %q: %w", fields[i], err)
		}
		out[keys[i]] = domain.NodeID(node)
	}

	return out, nil
}

// Store quantized point -> node id mappings for one graph.
func (r *RedisNodeCache) PutMany(
	ctx context.Context,
	graphFingerprint string,
	entries map[domain.CacheKey]domain.NodeID,
) error {
	if r.Client == nil {
		return errors.New("node cache: redis client is nil")
	}

	if graphFingerprint == "" {
		return errors.New("insert node cache: graph fingerprint must not be empty")
	}

	if len(entries) == 0 {
		return nil
	}

	pipe := r.Client.Pipeline()
	for key, node := range entries {
		pipe.Set(ctx, redisKey(graphFingerprint, key), strconv.FormatInt(int64(node), 10), r.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert node cache: redis pipeline: %w", err)
	}

	return nil
}
