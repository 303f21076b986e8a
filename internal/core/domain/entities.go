package domain

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Region is a named boundary loaded from a geometry source.
// Name is the unique "City, State" key.
type Region struct {
	Name     string       `json:"name"`
	Geometry orb.Geometry `json:"-"`
}

// RegionSummary is a persisted region as listed by the read API.
type RegionSummary struct {
	Name       string     `json:"name"`
	Zoom       int        `json:"zoom"`
	AreaTiles  float64    `json:"area_tiles"`
	TileCount  *int       `json:"tile_count,omitempty"` // nil until the interior grid is computed
	ComputedAt *time.Time `json:"computed_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// RegionPolygon is a region's simplified boundary in tile-grid space.
type RegionPolygon struct {
	RegionSummary
	CentroidGeohash string       `json:"centroid_geohash"`
	Polygon         orb.Geometry `json:"-"`
}

// GridComputed is published once a region's interior grid is stored.
type GridComputed struct {
	Name       string    `json:"name"`
	Zoom       int       `json:"zoom"`
	TileCount  int       `json:"tile_count"`
	ComputedAt time.Time `json:"computed_at"`
}

// Slug turns a region name into a subject-safe token. It is lossy,
// e.g. "San José, CA" -> "san-jos-ca".
func Slug(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}

type regionPolygonJSON struct {
	RegionSummary
	CentroidGeohash string            `json:"centroid_geohash"`
	Polygon         *geojson.Geometry `json:"polygon,omitempty"`
}

// MarshalJSON encodes the tile-space polygon as a GeoJSON geometry.
func (r RegionPolygon) MarshalJSON() ([]byte, error) {
	out := regionPolygonJSON{RegionSummary: r.RegionSummary, CentroidGeohash: r.CentroidGeohash}
	if r.Polygon != nil {
		out.Polygon = geojson.NewGeometry(r.Polygon)
	}
	return json.Marshal(out)
}

func (r *RegionPolygon) UnmarshalJSON(data []byte) error {
	var in regionPolygonJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.RegionSummary = in.RegionSummary
	r.CentroidGeohash = in.CentroidGeohash
	r.Polygon = nil
	if in.Polygon != nil {
		r.Polygon = in.Polygon.Geometry()
	}
	return nil
}
