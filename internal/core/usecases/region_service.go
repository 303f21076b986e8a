package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/paulmach/orb"

	"github.com/solarmap/citygrid/internal/core/domain"
	"github.com/solarmap/citygrid/internal/core/ports"
	"github.com/solarmap/citygrid/internal/pkg/metrics"
	"github.com/solarmap/citygrid/internal/pkg/slippy"
)

// TileLookup describes one tile and the regions whose grid contains it.
type TileLookup struct {
	Zoom    int                   `json:"zoom"`
	Tile    domain.TileCoordinate `json:"tile"`
	Bound   orb.Bound             `json:"bound"`
	Regions []string              `json:"regions"`
}

// RegionService serves stored polygons and grids to read clients.
type RegionService struct {
	regions ports.RegionReader
	cache   ports.CacheService
	ttl     int
}

// NewRegionService creates a new RegionService. cache may be nil.
func NewRegionService(regions ports.RegionReader, cache ports.CacheService, ttlSeconds int) *RegionService {
	if ttlSeconds <= 0 {
		ttlSeconds = 300
	}
	return &RegionService{regions: regions, cache: cache, ttl: ttlSeconds}
}

// List returns every stored region at zoom.
func (s *RegionService) List(ctx context.Context, zoom int) ([]domain.RegionSummary, error) {
	if err := slippy.ValidateZoom(zoom); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("regions:list:%d", zoom)
	var list []domain.RegionSummary
	if s.cached(ctx, "regions_list", cacheKey, &list) {
		return list, nil
	}

	list, err := s.regions.ListRegions(ctx, zoom)
	if err != nil {
		return nil, err
	}
	s.store(ctx, cacheKey, list)
	return list, nil
}

// Get returns one region's tile-space polygon.
func (s *RegionService) Get(ctx context.Context, name string, zoom int) (*domain.RegionPolygon, error) {
	if err := slippy.ValidateZoom(zoom); err != nil {
		return nil, err
	}

	cacheKey := regionKey(name, zoom)
	var region domain.RegionPolygon
	if s.cached(ctx, "regions_get", cacheKey, &region) {
		return &region, nil
	}

	r, err := s.regions.GetRegion(ctx, name, zoom)
	if err != nil {
		return nil, err
	}
	s.store(ctx, cacheKey, r)
	return r, nil
}

// Tiles pages through a region's interior grid in row-major order.
func (s *RegionService) Tiles(ctx context.Context, name string, zoom, offset, limit int) ([]domain.TileCoordinate, error) {
	if err := slippy.ValidateZoom(zoom); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 10000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return s.regions.InteriorTiles(ctx, name, zoom, offset, limit)
}

// At finds the tile containing a lon/lat point and the regions covering it.
func (s *RegionService) At(ctx context.Context, p orb.Point, zoom int) (*TileLookup, error) {
	tile, err := slippy.ToTile(p, zoom)
	if err != nil {
		return nil, err
	}
	return s.Tile(ctx, tile, zoom)
}

// Tile returns the extent of a tile and the regions whose grid contains it.
func (s *RegionService) Tile(ctx context.Context, tile domain.TileCoordinate, zoom int) (*TileLookup, error) {
	if err := slippy.ValidateZoom(zoom); err != nil {
		return nil, err
	}
	if n := uint64(1) << uint(zoom); uint64(tile.Column) >= n || uint64(tile.Row) >= n {
		return nil, fmt.Errorf("tile %s at zoom %d: %w", tile, zoom, domain.ErrOutsideGrid)
	}

	names, err := s.regions.RegionsAtTile(ctx, tile, zoom)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return &TileLookup{Zoom: zoom, Tile: tile, Bound: slippy.TileBound(tile, zoom), Regions: names}, nil
}

// Invalidate drops cached reads touched by a newly computed grid.
func (s *RegionService) Invalidate(ctx context.Context, event *domain.GridComputed) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, fmt.Sprintf("regions:list:%d", event.Zoom)); err != nil {
		return err
	}
	return s.cache.Delete(ctx, regionKey(event.Name, event.Zoom))
}

// regionKey escapes the exact name. Slugs are lossy and would let two
// regions share an entry.
func regionKey(name string, zoom int) string {
	return fmt.Sprintf("regions:get:%d:%s", zoom, url.PathEscape(name))
}

func (s *RegionService) cached(ctx context.Context, op, key string, v any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			slog.WarnContext(ctx, "cache read", "key", key, "error", err)
		}
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return true
}

func (s *RegionService) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = s.cache.Set(ctx, key, data, s.ttl)
	}
}
