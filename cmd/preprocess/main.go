package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "modernc.org/sqlite"

	"location-route-preprocessor/internal/adapters/cache"
	"location-route-preprocessor/internal/adapters/geoindex"
	"location-route-preprocessor/internal/adapters/graph"
	"location-route-preprocessor/internal/adapters/history"
	"location-route-preprocessor/internal/adapters/output"
	"location-route-preprocessor/internal/config"
	"location-route-preprocessor/internal/platform/db"
	"location-route-preprocessor/internal/platform/obs"
	"location-route-preprocessor/internal/ports"
	"location-route-preprocessor/internal/services"
)

// main is the batch composition root: it wires concrete adapters (Overpass,
// S2 index, node caches) behind ports, runs the scheduler over the extracted
// segments, and writes the preprocessed artifact.
func main() {
	logger := newLogger()
	defer logger.Sync()
	obs.SetLogger(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found (using environment variables)")
	}

	inputPath := flag.String("input", "", "path to the location-history export JSON")
	outputPath := flag.String("output", "preprocessed.json", "path for the preprocessed artifact")
	flag.Parse()

	if *inputPath == "" {
		logger.Fatal("-input is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	// The stop signal lets in-flight segments finish; completed results are
	// still written out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg, *inputPath, *outputPath); err != nil {
		logger.Fatal("preprocessing failed", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger, cfg *config.Config, inputPath, outputPath string) error {
	h, err := history.Load(inputPath, cfg.WindowStart, cfg.WindowEnd)
	if err != nil {
		return err
	}

	segments := services.ExtractSegments(h, cfg.DriveThresholdMeters)
	logger.Info("history loaded",
		zap.Int("segments", len(segments)),
		zap.Int("visits", len(h.Visits)),
		zap.Int("skipped_entries", h.Skipped))

	tier, cleanup, err := openCacheTier(ctx, cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	provider, err := graph.NewOverpassProvider(cfg.OverpassURL)
	if err != nil {
		return err
	}

	// Both networks load before any route computation starts.
	walk, err := buildNetwork(ctx, provider, cfg, tier, ports.NetworkWalk)
	if err != nil {
		return err
	}
	drive, err := buildNetwork(ctx, provider, cfg, tier, ports.NetworkDrive)
	if err != nil {
		return err
	}

	resolver := &services.RouteResolver{Walk: walk, Drive: drive}

	lastPct := -1
	sched, err := services.NewScheduler(services.SchedulerConfig{
		Workers:        cfg.Workers,
		SegmentTimeout: cfg.SegmentTimeout,
		Progress: func(done, total int) {
			pct := done * 100 / total
			if pct/5 > lastPct/5 {
				lastPct = pct
				logger.Info("processing routes",
					zap.Int("done", done),
					zap.Int("total", total),
					zap.Int("pct", pct))
			}
		},
	})
	if err != nil {
		return err
	}

	started := time.Now()
	outcomes := sched.Run(ctx, segments, resolver)

	doc := output.BuildDocument(segments, outcomes, h.Visits, h.Skipped)
	if err := output.Write(outputPath, doc); err != nil {
		return err
	}

	logSummary(logger, walk, drive, doc, len(segments), time.Since(started))
	return nil
}

func buildNetwork(
	ctx context.Context,
	provider ports.GraphProvider,
	cfg *config.Config,
	tier ports.PersistentNodeCache,
	kind ports.NetworkKind,
) (services.Network, error) {
	g, err := provider.LoadGraph(ctx, cfg.Center, cfg.RadiusMeters, kind)
	if err != nil {
		return services.Network{}, err
	}

	index := geoindex.NewS2Index(g.Nodes())

	nodeCache, err := cache.NewNodeCache(index, tier, cache.NodeCacheConfig{
		BudgetMB:          cfg.CacheBudgetMB,
		QuantizePrecision: cfg.QuantizePrecision,
		MaxRadiusMeters:   cfg.SnapRadiusMeters,
		GraphFingerprint:  g.Fingerprint(),
	})
	if err != nil {
		return services.Network{}, err
	}

	return services.Network{Graph: g, Cache: nodeCache}, nil
}

// openCacheTier wires the optional persistent node-cache backend. The
// returned cleanup closes the backend's connection, when there is one.
func openCacheTier(ctx context.Context, cfg *config.Config) (ports.PersistentNodeCache, func(), error) {
	switch cfg.CacheBackend {
	case "":
		return nil, nil, nil

	case "sqlite":
		sqlDB, err := sql.Open("sqlite", cfg.CacheSqlitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitSchema(sqlDB); err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return cache.NewSqliteNodeCache(sqlDB), func() { sqlDB.Close() }, nil

	case "postgres":
		pg, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitPostgresSchema(ctx, pg); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return cache.NewPostgresNodeCache(pg), func() { pg.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return cache.NewRedisNodeCache(client, 0), func() { client.Close() }, nil
	}

	return nil, nil, nil
}

func logSummary(logger *zap.Logger, walk, drive services.Network, doc output.Document, total int, elapsed time.Duration) {
	fields := []zap.Field{
		zap.Int("segments", total),
		zap.Int("resolved", doc.Summary.Resolved),
		zap.Int("failed", doc.Summary.Failed),
		zap.Duration("elapsed", elapsed),
	}
	for reason, n := range doc.Summary.FailureCounts {
		fields = append(fields, zap.Int("failed_"+reason, n))
	}

	walkHits, walkMisses := walk.Cache.Stats()
	driveHits, driveMisses := drive.Cache.Stats()
	fields = append(fields,
		zap.Uint64("walk_cache_hits", walkHits),
		zap.Uint64("walk_cache_misses", walkMisses),
		zap.Uint64("drive_cache_hits", driveHits),
		zap.Uint64("drive_cache_misses", driveMisses))

	logger.Info("preprocessing complete", fields...)
}

// newLogger builds the console process logger. VERBOSE=1 switches on debug
// output, including per-op timings.
func newLogger() *zap.Logger {
	level := zap.InfoLevel
	if os.Getenv("VERBOSE") == "1" {
		level = zap.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	return zap.New(core)
}
