package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"location-route-preprocessor/internal/domain"
	"location-route-preprocessor/internal/platform/obs"
)

// PostgresNodeCache is a Postgres-backed persistent node cache, for setups
// where several machines preprocess against the same region graph and want a
// shared snap cache.
type PostgresNodeCache struct {
	DB *sql.DB
}

func NewPostgresNodeCache(db *sql.DB) *PostgresNodeCache {
	return &PostgresNodeCache{DB: db}
}

// InitPostgresSchema creates the node cache table if it does not exist.
func InitPostgresSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	q := `
	CREATE TABLE IF NOT EXISTS node_cache (
        graph TEXT NOT NULL,
        point_key TEXT NOT NULL,
        node_id BIGINT NOT NULL,
        PRIMARY KEY (graph, point_key)
    );
	`

	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("init schema: create node_cache table: %w", err)
	}

	return nil
}

// Fetch cached node ids for the given quantized points.
func (s *PostgresNodeCache) GetMany(
	ctx context.Context,
	graphFingerprint string,
	keys []domain.CacheKey,
) (_ map[domain.CacheKey]domain.NodeID, err error) {
	defer obs.Time("node.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("node cache: db is nil")
	}

	if graphFingerprint == "" {
		return nil, errors.New("get node cache: graph fingerprint must not be empty")
	}

	if len(keys) == 0 {
		return map[domain.CacheKey]domain.NodeID{}, nil
	}

	byText := make(map[string]domain.CacheKey, len(keys))
	texts := make([]string, 0, len(keys))
	for _, k := range keys {
		text := k.String()
		if _, ok := byText[text]; ok {
			continue
		}
		byText[text] = k
		texts = append(texts, text)
	}

	q := `
	SELECT point_key, node_id
    FROM node_cache
    WHERE graph = $1
        AND point_key = ANY($2::text[]);
	`

	rows, err := s.DB.QueryContext(ctx, q, graphFingerprint, texts)
	if err != nil {
		return nil, fmt.Errorf("get node cache: query node_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.CacheKey]domain.NodeID, len(texts))
	for rows.Next() {
		var text string
		var node int64
		if err := rows.Scan(&text, &node); err != nil {
			return nil, fmt.Errorf("get node cache: scan rows: %w", err)
		}
		if key, ok := byText[text]; ok {
			out[key] = domain.NodeID(node)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get node cache: row iteration: %w", err)
	}

	return out, nil
}

// Store quantized point -> node id mappings for one graph.
func (s *PostgresNodeCache) PutMany(
	ctx context.Context,
	graphFingerprint string,
	entries map[domain.CacheKey]domain.NodeID,
) error {
	if s.DB == nil {
		return errors.New("node cache: db is nil")
	}

	if graphFingerprint == "" {
		return errors.New("insert node cache: graph fingerprint must not be empty")
	}

	if len(entries) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert node cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO node_cache (graph, point_key, node_id)
    VALUES ($1, $2, $3)
	ON CONFLICT (graph, point_key) DO UPDATE
	SET node_id = EXCLUDED.node_id;
	`)
	if err != nil {
		return fmt.Errorf("insert node cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for key, node := range entries {
		if _, err := stmt.ExecContext(ctx, graphFingerprint, key.String(), int64(node)); err != nil {
			return fmt.Errorf("insert node cache key=%q: %w", key.String(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert node cache commit: %w", err)
	}

	return nil
}
