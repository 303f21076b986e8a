package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"

	"github.com/solarmap/citygrid/internal/core/domain"
)

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Bilbao, BI":          "bilbao-bi",
		"San José, CA":        "san-jos-ca",
		"  Winston-Salem, NC": "winston-salem-nc",
		"St. Louis, MO.":      "st-louis-mo",
	}
	for in, want := range tests {
		if got := domain.Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCityState(t *testing.T) {
	city, state, err := domain.CityState(" Austin ,TX ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if city != "Austin" || state != "TX" {
		t.Errorf("got %q, %q", city, state)
	}
	if domain.RegionName(city, state) != "Austin, TX" {
		t.Errorf("unexpected region name %q", domain.RegionName(city, state))
	}

	for _, bad := range []string{"Austin", ", TX", "Austin,"} {
		if _, _, err := domain.CityState(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestTileCoordinate_Less(t *testing.T) {
	a := domain.TileCoordinate{Column: 5, Row: 1}
	b := domain.TileCoordinate{Column: 1, Row: 2}
	if !a.Less(b) || b.Less(a) {
		t.Error("expected row-major ordering")
	}
	if a.String() != "5/1" {
		t.Errorf("unexpected String %q", a.String())
	}
}

func TestRegionPolygon_JSON(t *testing.T) {
	in := domain.RegionPolygon{
		RegionSummary:   domain.RegionSummary{Name: "Bilbao, BI", Zoom: 16, AreaTiles: 12.5},
		CentroidGeohash: "ezs42",
		Polygon:         orb.Polygon{{{0, 0}, {4, 0}, {4, 4}, {0, 0}}},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out domain.RegionPolygon
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Name != in.Name || out.Zoom != 16 || out.CentroidGeohash != "ezs42" {
		t.Errorf("unexpected summary %+v", out)
	}
	if !orb.Equal(out.Polygon, in.Polygon) {
		t.Errorf("polygon changed: %v", out.Polygon)
	}
}
