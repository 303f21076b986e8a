// Package memory keeps grid results in process memory. It backs dry runs
// and tests; nothing survives the process.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/solarmap/citygrid/internal/core/domain"
	"github.com/solarmap/citygrid/internal/pkg/geospatial"
)

type key struct {
	name string
	zoom int
}

type grid struct {
	tiles      []domain.TileCoordinate
	set        map[domain.TileCoordinate]struct{}
	computedAt time.Time
}

// GridRepo implements ports.GridRepository and ports.RegionReader.
type GridRepo struct {
	mu       sync.RWMutex
	polygons map[key]*domain.RegionPolygon
	grids    map[key]*grid
	now      func() time.Time
}

// NewGridRepo creates an empty GridRepo.
func NewGridRepo() *GridRepo {
	return &GridRepo{
		polygons: map[key]*domain.RegionPolygon{},
		grids:    map[key]*grid{},
		now:      time.Now,
	}
}

func (r *GridRepo) ComputedNames(ctx context.Context, zoom int) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := map[string]bool{}
	for k := range r.grids {
		if k.zoom == zoom {
			out[k.name] = true
		}
	}
	return out, nil
}

func (r *GridRepo) PersistPolygons(ctx context.Context, polygons map[string]orb.Geometry, zoom int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	for name, g := range polygons {
		r.polygons[key{name, zoom}] = &domain.RegionPolygon{
			RegionSummary: domain.RegionSummary{
				Name:      name,
				Zoom:      zoom,
				AreaTiles: planar.Area(g),
				UpdatedAt: now,
			},
			CentroidGeohash: geospatial.CentroidGeohash(g, zoom),
			Polygon:         orb.Clone(g),
		}
	}
	return nil
}

func (r *GridRepo) HasInteriorGrid(ctx context.Context, name string, zoom int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.grids[key{name, zoom}]
	return ok, nil
}

func (r *GridRepo) PersistInteriorCoordinates(ctx context.Context, name string, tiles []domain.TileCoordinate, zoom int) error {
	g := &grid{
		tiles:      append([]domain.TileCoordinate(nil), tiles...),
		set:        make(map[domain.TileCoordinate]struct{}, len(tiles)),
		computedAt: r.now().UTC(),
	}
	sort.Slice(g.tiles, func(i, j int) bool { return g.tiles[i].Less(g.tiles[j]) })
	for _, t := range tiles {
		g.set[t] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.grids[key{name, zoom}] = g
	return nil
}

func (r *GridRepo) ListRegions(ctx context.Context, zoom int) ([]domain.RegionSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.RegionSummary
	for k, p := range r.polygons {
		if k.zoom == zoom {
			out = append(out, r.summary(k, p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *GridRepo) GetRegion(ctx context.Context, name string, zoom int) (*domain.RegionPolygon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k := key{name, zoom}
	p, ok := r.polygons[k]
	if !ok {
		return nil, domain.ErrRegionNotFound
	}
	out := *p
	out.RegionSummary = r.summary(k, p)
	out.Polygon = orb.Clone(p.Polygon)
	return &out, nil
}

func (r *GridRepo) InteriorTiles(ctx context.Context, name string, zoom, offset, limit int) ([]domain.TileCoordinate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.grids[key{name, zoom}]
	if !ok {
		return nil, domain.ErrRegionNotFound
	}
	if offset >= len(g.tiles) {
		return []domain.TileCoordinate{}, nil
	}
	end := offset + limit
	if end > len(g.tiles) {
		end = len(g.tiles)
	}
	return append([]domain.TileCoordinate(nil), g.tiles[offset:end]...), nil
}

func (r *GridRepo) RegionsAtTile(ctx context.Context, tile domain.TileCoordinate, zoom int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for k, g := range r.grids {
		if k.zoom != zoom {
			continue
		}
		if _, ok := g.set[tile]; ok {
			names = append(names, k.name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// summary must be called with r.mu held.
func (r *GridRepo) summary(k key, p *domain.RegionPolygon) domain.RegionSummary {
	s := p.RegionSummary
	if g, ok := r.grids[k]; ok {
		n := len(g.tiles)
		at := g.computedAt
		s.TileCount = &n
		s.ComputedAt = &at
	}
	return s
}
