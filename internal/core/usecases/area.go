package usecases

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/solarmap/citygrid/internal/pkg/geospatial"
	"github.com/solarmap/citygrid/internal/pkg/slippy"
)

// AreaReport is the projected size of a set of regions at one zoom.
type AreaReport struct {
	Zoom int `json:"zoom"`
	// Tiles is the summed tile-space area rounded up.
	Tiles int64 `json:"tiles"`
	// SquareKm approximates the ground area covered by those tiles.
	SquareKm float64 `json:"square_km"`
}

// Combine returns the simplified boundaries of names as one collection, in order.
func (s *GridService) Combine(ctx context.Context, names []string) (orb.Collection, error) {
	regions, err := s.Simplified(ctx, names)
	if err != nil {
		return nil, err
	}
	c := make(orb.Collection, 0, len(regions))
	for _, r := range regions {
		c = append(c, r.Geometry)
	}
	return c, nil
}

// TileArea projects every simplified region to zoom and sums the polygon
// areas in tile units, which bounds the size of a full rasterization.
func (s *GridService) TileArea(ctx context.Context, names []string, zoom int) (*AreaReport, error) {
	if err := slippy.ValidateZoom(zoom); err != nil {
		return nil, err
	}
	regions, err := s.source.Load(ctx, names, nil)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}

	var total, km2 float64
	for _, r := range regions {
		g, err := s.prepare(r, zoom)
		if err != nil {
			return nil, err
		}
		a := planar.Area(g)
		total += a

		// scale by the ground size of a tile at the polygon's centroid
		c, _ := planar.CentroidArea(g)
		tile, err := slippy.ToTile(slippy.FractionToGeo(c, zoom), zoom)
		if err != nil {
			return nil, fmt.Errorf("centroid of %s: %w", r.Name, err)
		}
		km2 += a * geospatial.BoundAreaKm2(slippy.TileBound(tile, zoom))
	}

	return &AreaReport{Zoom: zoom, Tiles: int64(math.Ceil(total)), SquareKm: km2}, nil
}
