package raster

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/solarmap/citygrid/internal/core/domain"
)

// Scanline sweeps integer rows, pairing even-odd edge crossings and emitting
// the lattice points strictly between each pair. Only edges spanning the
// current row are consulted, so the cost is O(rows × active edges + output).
type Scanline struct{}

type edge struct {
	a, b       orb.Point
	minY, maxY float64
}

// InteriorPoints implements ports.Rasterizer.
func (Scanline) InteriorPoints(g orb.Geometry) ([]domain.TileCoordinate, error) {
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
		tiles = scanPolygon(tiles, poly, l)
	}
	return finish(tiles, len(polys) > 1), nil
}

func scanPolygon(tiles []domain.TileCoordinate, poly orb.Polygon, l lattice) []domain.TileCoordinate {
	edges := edgesOf(poly)
	sort.Slice(edges, func(i, j int) bool { return edges[i].minY < edges[j].minY })

	var (
		active []edge
		xs     []float64
		next   int
	)
	for y := l.minY; y <= l.maxY; y++ {
		fy := float64(y)

		for next < len(edges) && edges[next].minY <= fy {
			active = append(active, edges[next])
			next++
		}
		kept := active[:0]
		for _, e := range active {
			if e.maxY >= fy {
				kept = append(kept, e)
			}
		}
		active = kept

		// half-open rule: an edge counts when exactly one endpoint is above the row
		xs = xs[:0]
		for _, e := range active {
			if (e.a[1] > fy) != (e.b[1] > fy) {
				xs = append(xs, e.a[0]+(fy-e.a[1])*(e.b[0]-e.a[0])/(e.b[1]-e.a[1]))
			}
		}
		sort.Float64s(xs)

		for i := 0; i+1 < len(xs); i += 2 {
			for x := math.Floor(xs[i]) + 1; x < xs[i+1]; x++ {
				p := orb.Point{x, fy}
				if touchesAny(active, p) {
					continue
				}
				tiles = append(tiles, domain.TileCoordinate{Column: uint32(x), Row: uint32(y)})
			}
		}
	}
	return tiles
}

func edgesOf(poly orb.Polygon) []edge {
	var edges []edge
	for _, r := range poly {
		n := len(r)
		for i := 0; i < n; i++ {
			a, b := r[i], r[(i+1)%n]
			if a == b {
				continue
			}
			edges = append(edges, edge{a: a, b: b, minY: math.Min(a[1], b[1]), maxY: math.Max(a[1], b[1])})
		}
	}
	return edges
}

// touchesAny catches vertices and horizontal edges lying inside a span.
func touchesAny(active []edge, p orb.Point) bool {
	for _, e := range active {
		if onSegment(e.a, e.b, p) {
			return true
		}
	}
	return false
}
