package raster

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/solarmap/citygrid/internal/core/domain"
)

// BoundingBoxScan tests every lattice point of the polygon's bounding box.
// It is the reference behaviour; cost is O(bbox area × vertices).
type BoundingBoxScan struct{}

// InteriorPoints implements ports.Rasterizer.
func (BoundingBoxScan) InteriorPoints(g orb.Geometry) ([]domain.TileCoordinate, error) {
	polys, err := polygons(g)
	if err != nil {
		return nil, err
	}

	var tiles []domain.TileCoordinate
	for _, poly := range polys {
		l, ok, err := latticeOf(poly)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for y := l.minY; y <= l.maxY; y++ {
			for x := l.minX; x <= l.maxX; x++ {
				p := orb.Point{float64(x), float64(y)}
				if planar.PolygonContains(poly, p) && !onBoundary(poly, p) {
					tiles = append(tiles, domain.TileCoordinate{Column: uint32(x), Row: uint32(y)})
				}
			}
		}
	}
	return finish(tiles, len(polys) > 1), nil
}
