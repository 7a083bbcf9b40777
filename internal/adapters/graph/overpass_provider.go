package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"location-route-preprocessor/internal/domain"
	"location-route-preprocessor/internal/platform/obs"
	"location-route-preprocessor/internal/ports"
)

// Highway classes per network kind, mirroring the usual road/path split of
// OSM-based routers.
var highwayFilters = map[ports.NetworkKind]string{
	ports.NetworkWalk:  "footway|path|pedestrian|steps|living_street|residential|service|track|unclassified|tertiary|secondary|primary",
	ports.NetworkDrive: "motorway|motorway_link|trunk|trunk_link|primary|primary_link|secondary|secondary_link|tertiary|tertiary_link|residential|unclassified|living_street|service",
}

// OverpassProvider loads road-network graphs from an Overpass API instance.
// Loading is slow and network-dependent; it happens once per run, before any
// route computation starts.
type OverpassProvider struct {
	session *http.Client
	baseURL string
}

var _ ports.GraphProvider = (*OverpassProvider)(nil)

const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

func NewOverpassProvider(baseURL string) (*OverpassProvider, error) {
	if baseURL == "" {
		return nil, errors.New("overpass provider: base URL is empty")
	}

	return &OverpassProvider{
		// Region-sized Overpass queries regularly take tens of seconds.
		session: &http.Client{Timeout: 180 * time.Second},
		baseURL: baseURL,
	}, nil
}

type overpassResponse struct {
	Elements []struct {
		Type     string  `json:"type"`
		ID       int64   `json:"id"`
		Nodes    []int64 `json:"nodes"`
		Geometry []struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"geometry"`
	} `json:"elements"`
}

// LoadGraph fetches every routable way of the requested network kind within
// radiusMeters of center and assembles an in-memory graph.
func (o *OverpassProvider) LoadGraph(
	ctx context.Context,
	center domain.GeoPoint,
	radiusMeters float64,
	kind ports.NetworkKind,
) (_ ports.Graph, err error) {
	defer obs.Time("overpass.LoadGraph")(&err)

	if !center.Valid() {
		return nil, fmt.Errorf("load graph: invalid center point %+v", center)
	}
	if radiusMeters <= 0 {
		return nil, errors.New("load graph: radius must be positive")
	}

	filter, ok := highwayFilters[kind]
	if !ok {
		return nil, fmt.Errorf("load graph: unknown network kind %q", kind)
	}

	query := fmt.Sprintf(
		`[out:json][timeout:150];way[highway~"^(%s)$"](around:%.0f,%.6f,%.6f);out geom;`,
		filter, radiusMeters, center.Lat, center.Lon,
	)

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, url.QueryEscape(query))
	})
	if err != nil {
		return nil, fmt.Errorf("load graph: overpass request: %w", err)
	}
	defer resp.Body.Close()

	var decoded overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("load graph: decode overpass response: %w", err)
	}

	fingerprint := fmt.Sprintf("overpass:%s:%.5f,%.5f:r%.0f", kind, center.Lat, center.Lon, radiusMeters)
	g := NewMemGraph(fingerprint)

	ways := 0
	for _, el := range decoded.Elements {
		if el.Type != "way" || len(el.Nodes) < 2 {
			continue
		}
		if len(el.Geometry) != len(el.Nodes) {
			// Truncated way geometry, usually at the radius boundary.
			continue
		}
		ways++

		for i, id := range el.Nodes {
			g.AddNode(domain.NodeID(id), domain.GeoPoint{
				Lat: el.Geometry[i].Lat,
				Lon: el.Geometry[i].Lon,
			})
		}

		for i := 0; i < len(el.Nodes)-1; i++ {
			a := domain.GeoPoint{Lat: el.Geometry[i].Lat, Lon: el.Geometry[i].Lon}
			b := domain.GeoPoint{Lat: el.Geometry[i+1].Lat, Lon: el.Geometry[i+1].Lon}
			g.AddEdge(domain.NodeID(el.Nodes[i]), domain.NodeID(el.Nodes[i+1]), a.DistanceMeters(b), nil)
		}
	}

	if g.NodeCount() == 0 {
		return nil, fmt.Errorf("load graph: no routable %s ways within %.0f m of %.5f,%.5f",
			kind, radiusMeters, center.Lat, center.Lon)
	}

	obs.L().Info("road graph loaded",
		zap.String("kind", string(kind)),
		zap.Int("ways", ways),
		zap.Int("nodes", g.NodeCount()))

	return g, nil
}
