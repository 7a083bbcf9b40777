package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"location-route-preprocessor/internal/domain"
)

// SQLite backed persistent node cache. Entries are scoped by graph
// fingerprint so node ids from differently loaded graphs never mix.
type SqliteNodeCache struct {
	DB *sql.DB
}

func NewSqliteNodeCache(db *sql.DB) *SqliteNodeCache {
	return &SqliteNodeCache{DB: db}
}

// InitSchema creates the node cache table if it does not exist.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	q := `
	CREATE TABLE IF NOT EXISTS node_cache (
        graph TEXT NOT NULL,
        point_key TEXT NOT NULL,
        node_id INTEGER NOT NULL,
        PRIMARY KEY (graph, point_key)
    );
	`

	if _, err := db.Exec(q); err != nil {
		return fmt.Errorf("init schema: create node_cache table: %w", err)
	}

	return nil
}

// Fetch cached node ids for the given quantized points.
func (s *SqliteNodeCache) GetMany(
	ctx context.Context,
	graphFingerprint string,
	keys []domain.CacheKey,
) (map[domain.CacheKey]domain.NodeID, error) {
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
	ph := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+1)
	args = append(args, graphFingerprint)
	for _, k := range keys {
		text := k.String()
		if _, ok := byText[text]; ok {
			continue
		}
		byText[text] = k
		ph = append(ph, "?")
		args = append(args, text)
	}

	// SQLite does not support binding slices directly in an IN (...) clause.
	// Only the placeholder structure is interpolated; all values remain
	// parameterized.
	q := fmt.Sprintf(`
	SELECT point_key, node_id
    FROM node_cache
    WHERE graph = ?
        AND point_key IN (%s);
	`, strings.Join(ph, ","))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get node cache: query node_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.CacheKey]domain.NodeID, len(byText))
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
func (s *SqliteNodeCache) PutMany(
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
	INSERT OR REPLACE INTO node_cache (graph, point_key, node_id)
    VALUES (?, ?, ?);
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
