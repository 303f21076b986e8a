// Package shapes reduces region boundaries to cheap, simple polygons before
// they are rasterised.
//
// The hull, simplify and buffer steps run in GEOS. Simplification is lossy
// and cannot be inverted: concavities and holes are discarded by the convex
// hull, and the outward buffer adds area the original region never had.
// Consumers that need exact boundaries must skip this stage.
package shapes

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"

	"github.com/solarmap/citygrid/internal/core/domain"
)

// DefaultQuadrantSegments is the round-join resolution per quarter circle.
const DefaultQuadrantSegments = 16

// Options controls the hull, topology-preserving simplify and buffer chain.
// Distances are in the geometry's own units (degrees for WGS84 input).
type Options struct {
	Tolerance        float64
	BufferDistance   float64
	QuadrantSegments int
}

// DefaultOptions are tuned for city boundaries in degrees.
var DefaultOptions = Options{
	Tolerance:        0.001,
	BufferDistance:   0.004,
	QuadrantSegments: DefaultQuadrantSegments,
}

// Simplify returns the convex hull of g, simplified within Tolerance without
// changing its topology and grown outward by BufferDistance with round joins.
// g is not modified.
func Simplify(g orb.Geometry, opts Options) (orb.Polygon, error) {
	pts, err := Vertices(g)
	if err != nil {
		return nil, err
	}
	if len(pts) == 0 {
		return nil, domain.ErrEmptyGeometry
	}
	quadsegs := opts.QuadrantSegments
	if quadsegs <= 0 {
		quadsegs = DefaultQuadrantSegments
	}

	in, err := toGEOS(orb.MultiPoint(pts))
	if err != nil {
		return nil, err
	}
	defer in.Destroy()

	hull := in.ConvexHull()
	defer hull.Destroy()

	reduced := hull
	if opts.Tolerance > 0 {
		reduced = hull.TopologyPreserveSimplify(opts.Tolerance)
		defer reduced.Destroy()
	}

	buffered := reduced.Buffer(opts.BufferDistance, quadsegs)
	defer buffered.Destroy()
	if buffered.IsEmpty() {
		return nil, fmt.Errorf("boundary of %d vertices collapses under buffer %v: %w", len(pts), opts.BufferDistance, domain.ErrEmptyGeometry)
	}

	out, err := fromGEOS(buffered)
	if err != nil {
		return nil, err
	}
	poly, ok := out.(orb.Polygon)
	if !ok || len(poly) == 0 || len(poly[0]) < 4 {
		return nil, fmt.Errorf("buffered boundary is %T: %w", out, domain.ErrEmptyGeometry)
	}
	return poly, nil
}

func toGEOS(g orb.Geometry) (*geos.Geom, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}
	gg, err := geos.NewGeomFromWKB(data)
	if err != nil {
		return nil, fmt.Errorf("geos from wkb: %w", err)
	}
	return gg, nil
}

func fromGEOS(g *geos.Geom) (orb.Geometry, error) {
	out, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	return out, nil
}

// Vertices flattens every coordinate of g into a new slice.
func Vertices(g orb.Geometry) ([]orb.Point, error) {
	var pts []orb.Point
	var walk func(g orb.Geometry) error
	walk = func(g orb.Geometry) error {
		switch g := g.(type) {
		case nil:
		case orb.Point:
			pts = append(pts, g)
		case orb.MultiPoint:
			pts = append(pts, g...)
		case orb.LineString:
			pts = append(pts, g...)
		case orb.Ring:
			pts = append(pts, g...)
		case orb.MultiLineString:
			for _, ls := range g {
				pts = append(pts, ls...)
			}
		case orb.Polygon:
			for _, r := range g {
				pts = append(pts, r...)
			}
		case orb.MultiPolygon:
			for _, p := range g {
				for _, r := range p {
					pts = append(pts, r...)
				}
			}
		case orb.Collection:
			for _, c := range g {
				if err := walk(c); err != nil {
					return err
				}
			}
		case orb.Bound:
			pts = append(pts, g.Min, g.Max, orb.Point{g.Min[0], g.Max[1]}, orb.Point{g.Max[0], g.Min[1]})
		default:
			return fmt.Errorf("%T: %w", g, domain.ErrUnsupportedGeometry)
		}
		return nil
	}
	if err := walk(g); err != nil {
		return nil, err
	}
	return pts, nil
}
