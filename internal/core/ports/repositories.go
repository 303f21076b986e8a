package ports

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/solarmap/citygrid/internal/core/domain"
)

// RegionSource loads named region boundaries.
type RegionSource interface {
	// Load returns one region per name not present in exclude, in input order.
	// A missing name is an error; the whole load fails.
	Load(ctx context.Context, names []string, exclude map[string]bool) ([]domain.Region, error)
}

// GridRepository persists simplified polygons and interior tile grids.
type GridRepository interface {
	// ComputedNames returns the regions whose interior grid is stored at zoom.
	// A region with only a stored polygon is not computed.
	ComputedNames(ctx context.Context, zoom int) (map[string]bool, error)
	// PersistPolygons stores tile-space polygons keyed by region name.
	PersistPolygons(ctx context.Context, polygons map[string]orb.Geometry, zoom int) error
	// HasInteriorGrid reports whether a region's interior grid is stored at zoom.
	HasInteriorGrid(ctx context.Context, name string, zoom int) (bool, error)
	// PersistInteriorCoordinates stores a region's interior grid points.
	PersistInteriorCoordinates(ctx context.Context, name string, tiles []domain.TileCoordinate, zoom int) error
}

// RegionReader serves persisted results to read clients.
type RegionReader interface {
	ListRegions(ctx context.Context, zoom int) ([]domain.RegionSummary, error)
	GetRegion(ctx context.Context, name string, zoom int) (*domain.RegionPolygon, error)
	InteriorTiles(ctx context.Context, name string, zoom, offset, limit int) ([]domain.TileCoordinate, error)
	RegionsAtTile(ctx context.Context, tile domain.TileCoordinate, zoom int) ([]string, error)
}
