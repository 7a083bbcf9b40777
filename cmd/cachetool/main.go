package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"location-route-preprocessor/internal/adapters/cache"
	"location-route-preprocessor/internal/platform/db"
)

// cachetool manages the shared Postgres node-cache table:
//
//	cachetool init           create the node_cache table
//	cachetool stats          print row counts per graph fingerprint
//	cachetool clear <graph>  drop cached entries for one graph fingerprint
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	flag.Parse()
	cmd := flag.Arg(0)
	if cmd == "" {
		log.Fatal("usage: cachetool init | stats | clear <graph-fingerprint>")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pg, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pg.Close()

	ctx := context.Background()

	switch cmd {
	case "init":
		if err := cache.InitPostgresSchema(ctx, pg); err != nil {
			log.Fatalf("schema initialization failed: %v", err)
		}
		log.Println("Schema ready.")

	case "stats":
		if err := printStats(ctx, pg); err != nil {
			log.Fatal(err)
		}

	case "clear":
		graph := flag.Arg(1)
		if graph == "" {
			log.Fatal("clear requires a graph fingerprint")
		}
		res, err := pg.ExecContext(ctx, `DELETE FROM node_cache WHERE graph = $1`, graph)
		if err != nil {
			log.Fatalf("clear failed: %v", err)
		}
		n, _ := res.RowsAffected()
		log.Printf("Removed %d entries for %s", n, graph)

	default:
		log.Fatalf("unknown command %q", cmd)
	}
}

func printStats(ctx context.Context, pg *sql.DB) error {
	rows, err := pg.QueryContext(ctx, `
		SELECT graph, COUNT(*)
		FROM node_cache
		GROUP BY graph
		ORDER BY graph`)
	if err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()

	total := int64(0)
	for rows.Next() {
		var graph string
		var n int64
		if err := rows.Scan(&graph, &n); err != nil {
			return fmt.Errorf("cache stats: %w", err)
		}
		fmt.Printf("%-48s %d\n", graph, n)
		total += n
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}
	fmt.Printf("%-48s %d\n", "total", total)
	return nil
}
