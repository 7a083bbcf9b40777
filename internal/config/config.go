package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"location-route-preprocessor/internal/domain"
)

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Config is the validated configuration surface of the preprocessing run.
// Everything here is read before the graph load begins; invalid values are
// fatal up front, never mid-batch.
type Config struct {
	// Region selection.
	Center       domain.GeoPoint
	RadiusMeters float64

	// Snap behavior. Both are deliberately explicit configuration rather
	// than hard-coded constants.
	SnapRadiusMeters  float64
	QuantizePrecision int

	// History window.
	WindowStart time.Time
	WindowEnd   time.Time

	// Segment classification for raw timeline hops.
	DriveThresholdMeters float64

	// Compute.
	Workers        int
	CacheBudgetMB  int
	SegmentTimeout time.Duration

	// External services.
	OverpassURL string

	// Optional persistent node-cache tier: "", "sqlite", "postgres", or
	// "redis".
	CacheBackend    string
	CacheSqlitePath string
	DatabaseURL     string
	RedisAddr       string
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	lat, err := strconv.ParseFloat(Get("CENTER_LAT", ""), 64)
	if err != nil {
		return nil, fmt.Errorf("config: CENTER_LAT: %w", err)
	}
	lon, err := strconv.ParseFloat(Get("CENTER_LON", ""), 64)
	if err != nil {
		return nil, fmt.Errorf("config: CENTER_LON: %w", err)
	}

	center := domain.GeoPoint{Lat: lat, Lon: lon}
	if !center.Valid() {
		return nil, fmt.Errorf("config: center %.5f,%.5f out of range", lat, lon)
	}

	radius, err := parseFloat("GRAPH_RADIUS_METERS", "10000")
	if err != nil {
		return nil, err
	}
	if radius <= 0 {
		return nil, errors.New("config: GRAPH_RADIUS_METERS must be positive")
	}

	snapRadius, err := parseFloat("SNAP_RADIUS_METERS", "300")
	if err != nil {
		return nil, err
	}
	if snapRadius <= 0 {
		// A zero radius is a configuration error, not "no snapping".
		return nil, errors.New("config: SNAP_RADIUS_METERS must be positive")
	}

	precision, err := parseInt("QUANTIZE_PRECISION", "5")
	if err != nil {
		return nil, err
	}
	if precision < 0 || precision > 7 {
		return nil, errors.New("config: QUANTIZE_PRECISION must be between 0 and 7")
	}

	windowStart, err := parseTime("WINDOW_START", "1970-01-01T00:00:00Z")
	if err != nil {
		return nil, err
	}
	windowEnd, err := parseTime("WINDOW_END", "2100-01-01T00:00:00Z")
	if err != nil {
		return nil, err
	}
	if !windowStart.Before(windowEnd) {
		return nil, errors.New("config: WINDOW_START must precede WINDOW_END")
	}

	driveThreshold, err := parseFloat("DRIVE_THRESHOLD_METERS", "1000")
	if err != nil {
		return nil, err
	}
	if driveThreshold <= 0 {
		return nil, errors.New("config: DRIVE_THRESHOLD_METERS must be positive")
	}

	workers, err := parseInt("WORKERS", "4")
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		return nil, errors.New("config: WORKERS must be at least 1")
	}

	budget, err := parseInt("CACHE_BUDGET_MB", "64")
	if err != nil {
		return nil, err
	}
	if budget < 1 {
		return nil, errors.New("config: CACHE_BUDGET_MB must be at least 1")
	}

	timeout, err := time.ParseDuration(Get("SEGMENT_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("config: SEGMENT_TIMEOUT: %w", err)
	}
	if timeout < 0 {
		return nil, errors.New("config: SEGMENT_TIMEOUT must not be negative")
	}

	backend := Get("NODE_CACHE_BACKEND", "")
	switch backend {
	case "", "sqlite", "postgres", "redis":
	default:
		return nil, fmt.Errorf("config: unknown NODE_CACHE_BACKEND %q", backend)
	}

	return &Config{
		Center:               center,
		RadiusMeters:         radius,
		SnapRadiusMeters:     snapRadius,
		QuantizePrecision:    precision,
		WindowStart:          windowStart,
		WindowEnd:            windowEnd,
		DriveThresholdMeters: driveThreshold,
		Workers:              workers,
		CacheBudgetMB:        budget,
		SegmentTimeout:       timeout,
		OverpassURL:          Get("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		CacheBackend:         backend,
		CacheSqlitePath:      Get("NODE_CACHE_SQLITE_PATH", "data/node_cache.db"),
		DatabaseURL:          Get("DATABASE_URL", ""),
		RedisAddr:            Get("REDIS_ADDR", "localhost:6379"),
	}, nil
}

func parseFloat(key, fallback string) (float64, error) {
	v, err := strconv.ParseFloat(Get(key, fallback), 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func parseInt(key, fallback string) (int, error) {
	v, err := strconv.Atoi(Get(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func parseTime(key, fallback string) (time.Time, error) {
	v, err := time.Parse(time.RFC3339, Get(key, fallback))
	if err != nil {
		return time.Time{}, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}
