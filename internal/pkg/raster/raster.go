// Package raster enumerates the integer tile-grid points strictly inside a
// polygon that has already been projected to tile space.
//
// Points lying on any ring edge, including the edges of holes, are not
// interior. Both strategies return identical, row-major ordered results.
package raster

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/solarmap/citygrid/internal/core/domain"
	"github.com/solarmap/citygrid/internal/core/ports"
)

// Strategy names accepted by New.
const (
	StrategyScanline    = "scanline"
	StrategyBoundingBox = "bbox"
)

// New returns the rasterizer registered under name.
func New(name string) (ports.Rasterizer, error) {
	switch name {
	case "", StrategyScanline:
		return Scanline{}, nil
	case StrategyBoundingBox:
		return BoundingBoxScan{}, nil
	default:
		return nil, fmt.Errorf("unknown rasterizer %q (want %s or %s)", name, StrategyScanline, StrategyBoundingBox)
	}
}

// polygons normalises the supported geometry kinds.
func polygons(g orb.Geometry) ([]orb.Polygon, error) {
	switch g := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}, nil
	case orb.MultiPolygon:
		return []orb.Polygon(g), nil
	case orb.Ring:
		return []orb.Polygon{{g}}, nil
	case orb.Bound:
		return []orb.Polygon{g.ToPolygon()}, nil
	case nil:
		return nil, domain.ErrEmptyGeometry
	default:
		return nil, fmt.Errorf("%T: %w", g, domain.ErrUnsupportedGeometry)
	}
}

// lattice is the inclusive integer range floor(min)..floor(max) of a bound.
type lattice struct {
	minX, maxX, minY, maxY int64
}

func latticeOf(p orb.Polygon) (lattice, bool, error) {
	if len(p) == 0 || len(p[0]) == 0 {
		return lattice{}, false, nil
	}
	b := p.Bound()
	l := lattice{
		minX: int64(math.Floor(b.Min[0])),
		maxX: int64(math.Floor(b.Max[0])),
		minY: int64(math.Floor(b.Min[1])),
		maxY: int64(math.Floor(b.Max[1])),
	}
	if l.minX < 0 || l.minY < 0 {
		return lattice{}, false, fmt.Errorf("bound %v: %w", b, domain.ErrOutsideGrid)
	}
	if l.maxX > math.MaxUint32 || l.maxY > math.MaxUint32 {
		return lattice{}, false, fmt.Errorf("bound %v: %w", b, domain.ErrOutsideGrid)
	}
	return l, true, nil
}

// onSegment reports whether p lies on the closed segment a-b.
func onSegment(a, b, p orb.Point) bool {
	if p[0] < math.Min(a[0], b[0]) || p[0] > math.Max(a[0], b[0]) ||
		p[1] < math.Min(a[1], b[1]) || p[1] > math.Max(a[1], b[1]) {
		return false
	}
	return (b[0]-a[0])*(p[1]-a[1])-(b[1]-a[1])*(p[0]-a[0]) == 0
}

// onBoundary reports whether p lies on any edge of any ring of poly.
func onBoundary(poly orb.Polygon, p orb.Point) bool {
	for _, r := range poly {
		n := len(r)
		for i := 0; i < n; i++ {
			if onSegment(r[i], r[(i+1)%n], p) {
				return true
			}
		}
	}
	return false
}

// finish sorts row-major and removes duplicates from overlapping parts.
func finish(tiles []domain.TileCoordinate, multi bool) []domain.TileCoordinate {
	if !multi {
		return tiles
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Less(tiles[j]) })
	out := tiles[:0]
	for _, t := range tiles {
		if len(out) > 0 && out[len(out)-1] == t {
			continue
		}
		out = append(out, t)
	}
	return out
}
