package ports

import (
	"context"

	"location-route-preprocessor/internal/domain"
)

// Optional persistent tier below the in-memory node-resolution cache.
// Implementations key entries by (graph fingerprint, quantized point) so that
// node ids never leak between different loaded graphs. A nil tier is valid;
// the in-memory cache then stands alone.
type PersistentNodeCache interface {
	// GetMany fetches cached node ids for the given keys. Missing keys are
	// simply absent from the result, not errors.
	GetMany(ctx context.Context, graphFingerprint string, keys []domain.CacheKey) (map[domain.CacheKey]domain.NodeID, error)

	// PutMany stores key -> node id mappings for one graph.
	PutMany(ctx context.Context, graphFingerprint string, entries map[domain.CacheKey]domain.NodeID) error
}
