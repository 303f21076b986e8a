package raster_test

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/paulmach/orb"

	"github.com/solarmap/citygrid/internal/core/domain"
	"github.com/solarmap/citygrid/internal/core/ports"
	"github.com/solarmap/citygrid/internal/pkg/raster"
	"github.com/solarmap/citygrid/internal/pkg/shapes"
	"github.com/solarmap/citygrid/internal/pkg/slippy"
)

var strategies = map[string]ports.Rasterizer{
	"bbox":     raster.BoundingBoxScan{},
	"scanline": raster.Scanline{},
}

func tc(x, y uint32) domain.TileCoordinate { return domain.TileCoordinate{Column: x, Row: y} }

func square(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func TestInteriorPoints_Literal(t *testing.T) {
	tests := []struct {
		name string
		geom orb.Geometry
		want []domain.TileCoordinate
	}{
		{
			name: "unit square 0-2 keeps only the centre",
			geom: square(0, 0, 2, 2),
			want: []domain.TileCoordinate{tc(1, 1)},
		},
		{
			name: "square 0-4",
			geom: square(0, 0, 4, 4),
			want: []domain.TileCoordinate{
				tc(1, 1), tc(2, 1), tc(3, 1),
				tc(1, 2), tc(2, 2), tc(3, 2),
				tc(1, 3), tc(2, 3), tc(3, 3),
			},
		},
		{
			name: "diamond excludes edge lattice points",
			geom: orb.Polygon{{{2, 0}, {4, 2}, {2, 4}, {0, 2}, {2, 0}}},
			want: []domain.TileCoordinate{tc(2, 1), tc(1, 2), tc(2, 2), tc(3, 2), tc(2, 3)},
		},
		{
			name: "fractional bounds",
			geom: square(0.5, 0.5, 2.5, 1.5),
			want: []domain.TileCoordinate{tc(1, 1), tc(2, 1)},
		},
		{
			name: "reflex vertex on a scan row is excluded",
			geom: orb.Polygon{{{0, 0}, {3, 2}, {6, 0}, {6, 4}, {0, 4}, {0, 0}}},
			want: []domain.TileCoordinate{
				tc(1, 1), tc(5, 1),
				tc(1, 2), tc(2, 2), tc(4, 2), tc(5, 2),
				tc(1, 3), tc(2, 3), tc(3, 3), tc(4, 3), tc(5, 3),
			},
		},
		{
			name: "degenerate polygon",
			geom: orb.Polygon{},
			want: nil,
		},
	}

	for name, r := range strategies {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				got, err := r.InteriorPoints(tt.geom)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			})
		}
	}
}

func TestInteriorPoints_Hole(t *testing.T) {
	poly := orb.Polygon{
		{{0, 0}, {6, 0}, {6, 6}, {0, 6}, {0, 0}},
		{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}},
	}
	for name, r := range strategies {
		got, err := r.InteriorPoints(poly)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		// 5x5 inner lattice minus the 3x3 closed hole
		if len(got) != 16 {
			t.Errorf("%s: expected 16 points, got %d: %v", name, len(got), got)
		}
		for _, p := range got {
			if p.Column >= 2 && p.Column <= 4 && p.Row >= 2 && p.Row <= 4 {
				t.Errorf("%s: %v lies in or on the hole", name, p)
			}
		}
	}
}

func TestInteriorPoints_MultiPolygonDeduplicates(t *testing.T) {
	mp := orb.MultiPolygon{square(0, 0, 3, 3), square(1, 1, 4, 4)}
	want := []domain.TileCoordinate{tc(1, 1), tc(2, 1), tc(1, 2), tc(2, 2), tc(3, 2), tc(2, 3), tc(3, 3)}

	for name, r := range strategies {
		got, err := r.InteriorPoints(mp)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}
}

func TestInteriorPoints_Errors(t *testing.T) {
	for name, r := range strategies {
		if _, err := r.InteriorPoints(square(-2, 0, 2, 2)); !errors.Is(err, domain.ErrOutsideGrid) {
			t.Errorf("%s: expected ErrOutsideGrid, got %v", name, err)
		}
		if _, err := r.InteriorPoints(orb.LineString{{0, 0}, {1, 1}}); !errors.Is(err, domain.ErrUnsupportedGeometry) {
			t.Errorf("%s: expected ErrUnsupportedGeometry, got %v", name, err)
		}
		if _, err := r.InteriorPoints(nil); !errors.Is(err, domain.ErrEmptyGeometry) {
			t.Errorf("%s: expected ErrEmptyGeometry, got %v", name, err)
		}
	}
}

func TestScanline_MatchesBoundingBoxScan(t *testing.T) {
	star := orb.Ring{}
	for i := 0; i < 14; i++ {
		r := 40.0
		if i%2 == 1 {
			r = 17
		}
		a := 2 * math.Pi * float64(i) / 14
		star = append(star, orb.Point{math.Round(50 + r*math.Cos(a)), math.Round(50 + r*math.Sin(a))})
	}
	star = append(star, star[0])

	city := orb.Polygon{{
		{-97.80, 30.20}, {-97.70, 30.20}, {-97.70, 30.30}, {-97.72, 30.30},
		{-97.72, 30.22}, {-97.78, 30.22}, {-97.78, 30.30}, {-97.80, 30.30},
		{-97.80, 30.20},
	}}
	simplified, err := shapes.Simplify(city, shapes.DefaultOptions)
	if err != nil {
		t.Fatal(err)
	}
	projectedSimplified, err := slippy.ProjectToTiles(simplified, 16)
	if err != nil {
		t.Fatal(err)
	}
	projectedRaw, err := slippy.ProjectToTiles(city, 17)
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]orb.Geometry{
		"star":                orb.Polygon{star},
		"simplified city z16": projectedSimplified,
		"raw concave city z17": projectedRaw,
	}
	for name, g := range cases {
		want, err := raster.BoundingBoxScan{}.InteriorPoints(g)
		if err != nil {
			t.Fatalf("%s: bbox: %v", name, err)
		}
		got, err := raster.Scanline{}.InteriorPoints(g)
		if err != nil {
			t.Fatalf("%s: scanline: %v", name, err)
		}
		if len(want) == 0 {
			t.Fatalf("%s: expected a non-empty interior", name)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: scanline returned %d points, bbox %d", name, len(got), len(want))
		}
	}
}

func TestNew(t *testing.T) {
	if r, err := raster.New(""); err != nil || r != (raster.Scanline{}) {
		t.Errorf("expected default scanline, got %v, %v", r, err)
	}
	if r, err := raster.New("bbox"); err != nil || r != (raster.BoundingBoxScan{}) {
		t.Errorf("expected bbox, got %v, %v", r, err)
	}
	if _, err := raster.New("quadtree"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
