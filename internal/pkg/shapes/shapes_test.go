package shapes_test

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/solarmap/citygrid/internal/core/domain"
	"github.com/solarmap/citygrid/internal/pkg/shapes"
)

// uShape is a concave "U" roughly the size of a small town, in degrees.
var uShape = orb.Polygon{{
	{-97.80, 30.20}, {-97.70, 30.20}, {-97.70, 30.30}, {-97.72, 30.30},
	{-97.72, 30.22}, {-97.78, 30.22}, {-97.78, 30.30}, {-97.80, 30.30},
	{-97.80, 30.20},
}}

func TestSimplify_HullOfScatteredPoints(t *testing.T) {
	pts := orb.MultiPoint{{0, 0}, {2, 0}, {1, 1}, {2, 2}, {0, 2}, {1, 0}, {0, 0}}

	out, err := shapes.Simplify(pts, shapes.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || len(out[0]) != 5 {
		t.Fatalf("expected a closed 4-vertex ring, got %v", out)
	}
	if !out[0].Closed() {
		t.Error("ring is not closed")
	}
	if a := planar.Area(out); a != 4 {
		t.Errorf("expected area 4, got %v", a)
	}
}

func TestSimplify_CollinearNeedsBuffer(t *testing.T) {
	line := orb.MultiPoint{{0, 0}, {1, 1}, {2, 2}, {3, 3}}

	if _, err := shapes.Simplify(line, shapes.Options{}); !errors.Is(err, domain.ErrEmptyGeometry) {
		t.Errorf("expected ErrEmptyGeometry without a buffer, got %v", err)
	}
	out, err := shapes.Simplify(line, shapes.DefaultOptions)
	if err != nil {
		t.Fatalf("unexpected error with a buffer: %v", err)
	}
	if planar.Area(out) <= 0 {
		t.Errorf("expected a buffered corridor with area, got %v", out)
	}
}

func TestSimplify_BufferGrowsByDistance(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	out, err := shapes.Simplify(square, shapes.Options{BufferDistance: 0.5, QuadrantSegments: 16})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := out.Bound()
	if math.Abs(b.Min[0]+0.5) > 1e-9 || math.Abs(b.Max[1]-1.5) > 1e-9 {
		t.Errorf("unexpected bound %v", b)
	}

	// exact Minkowski sum area is 1 + 4*0.5 + pi*0.25
	exact := 1 + 2 + math.Pi*0.25
	area := planar.Area(out)
	if area > exact || area < exact-0.01 {
		t.Errorf("expected area close to %v, got %v", exact, area)
	}
	for _, p := range square[0] {
		if !planar.PolygonContains(out, p) {
			t.Errorf("buffer does not contain %v", p)
		}
	}
}

func TestSimplify_ConcaveAreaNotReduced(t *testing.T) {
	orig := orb.Clone(uShape).(orb.Polygon)

	out, err := shapes.Simplify(uShape, shapes.DefaultOptions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := planar.Area(out), planar.Area(uShape); got < want {
		t.Errorf("expected simplified area >= %v, got %v", want, got)
	}
	for _, p := range uShape[0] {
		if !planar.PolygonContains(out, p) {
			t.Errorf("simplified polygon lost vertex %v", p)
		}
	}
	if !orb.Equal(uShape, orig) {
		t.Error("input polygon was modified")
	}
}

func TestSimplify_DropsNearCollinearVertices(t *testing.T) {
	// a square with a slight bulge on its top edge; the bulge is below tolerance
	poly := orb.Polygon{{
		{0, 0}, {1, 0}, {1, 1}, {0.5, 1.0002}, {0, 1}, {0, 0},
	}}
	opts := shapes.Options{Tolerance: 0.001, BufferDistance: 0}

	out, err := shapes.Simplify(poly, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(out[0]); n != 5 {
		t.Errorf("expected 4 vertices after simplification, got %d: %v", n-1, out[0])
	}
}

func TestSimplify_MultiPolygonBecomesOneHull(t *testing.T) {
	mp := orb.MultiPolygon{
		{{{0, 0}, {0.01, 0}, {0.01, 0.01}, {0, 0}}},
		{{{0.05, 0.05}, {0.06, 0.05}, {0.06, 0.06}, {0.05, 0.05}}},
	}
	out, err := shapes.Simplify(mp, shapes.DefaultOptions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected a single ring, got %d", len(out))
	}
	if !planar.PolygonContains(out, orb.Point{0.03, 0.03}) {
		t.Error("expected the hull to bridge both parts")
	}
}

func TestSimplify_Errors(t *testing.T) {
	if _, err := shapes.Simplify(orb.Polygon{}, shapes.DefaultOptions); !errors.Is(err, domain.ErrEmptyGeometry) {
		t.Errorf("expected ErrEmptyGeometry, got %v", err)
	}
	if _, err := shapes.Simplify(orb.Point{1, 1}, shapes.Options{}); !errors.Is(err, domain.ErrEmptyGeometry) {
		t.Errorf("expected ErrEmptyGeometry for an unbuffered point, got %v", err)
	}
	if _, err := shapes.Simplify(orb.Point{1, 1}, shapes.DefaultOptions); err != nil {
		t.Errorf("expected a buffered point to succeed, got %v", err)
	}
}
