// Package slippy converts between WGS84 longitude/latitude and slippy tile
// grid coordinates at an explicit zoom level.
//
// The forward projection truncates to whole tiles, so a round trip through
// ToTile and ToGeo only recovers the input to within one tile.
package slippy

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"

	"github.com/solarmap/citygrid/internal/core/domain"
)

// MaxZoom keeps 2^zoom columns representable as uint32.
const MaxZoom = 30

// ValidateZoom rejects zoom levels outside [0, MaxZoom].
func ValidateZoom(zoom int) error {
	if zoom < 0 || zoom > MaxZoom {
		return fmt.Errorf("zoom %d: %w", zoom, domain.ErrInvalidZoom)
	}
	return nil
}

// ToTile returns the tile containing p at the given zoom.
//
// Latitudes at or beyond ±90°, or past the Mercator limit (~±85.0511°), are
// reported as domain.ErrLatitudeOutOfRange rather than clamped. Longitude 180
// maps to the last column.
func ToTile(p orb.Point, zoom int) (domain.TileCoordinate, error) {
	if err := ValidateZoom(zoom); err != nil {
		return domain.TileCoordinate{}, err
	}

	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return domain.TileCoordinate{}, fmt.Errorf("point %v: %w", p, domain.ErrLongitudeOutOfRange)
	}
	if math.IsNaN(lat) || lat <= -90 || lat >= 90 {
		return domain.TileCoordinate{}, fmt.Errorf("point %v: %w", p, domain.ErrLatitudeOutOfRange)
	}

	n := math.Exp2(float64(zoom))
	latRad := lat * math.Pi / 180

	column := math.Floor((lon + 180) / 360 * n)
	row := math.Floor((1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n)

	if column == n {
		column = n - 1
	}
	if math.IsNaN(row) || row < 0 || row >= n {
		return domain.TileCoordinate{}, fmt.Errorf("point %v: %w", p, domain.ErrLatitudeOutOfRange)
	}

	return domain.TileCoordinate{Column: uint32(column), Row: uint32(row)}, nil
}

// ToGeo returns the longitude/latitude of a tile. With center set the result
// is the middle of the tile, otherwise its top-left (north-west) corner.
func ToGeo(t domain.TileCoordinate, zoom int, center bool) orb.Point {
	x, y := float64(t.Column), float64(t.Row)
	if center {
		x += 0.5
		y += 0.5
	}
	return FractionToGeo(orb.Point{x, y}, zoom)
}

// FractionToGeo inverts a fractional tile-space position.
func FractionToGeo(p orb.Point, zoom int) orb.Point {
	n := math.Exp2(float64(zoom))
	lon := p.X()/n*360 - 180
	lat := math.Atan(math.Sinh(math.Pi*(1-2*p.Y()/n))) * 180 / math.Pi
	return orb.Point{lon, lat}
}

// ProjectToTiles maps every vertex of g into tile-grid space, keeping the
// geometry's nesting. g is not modified.
func ProjectToTiles(g orb.Geometry, zoom int) (orb.Geometry, error) {
	if g == nil {
		return nil, domain.ErrEmptyGeometry
	}
	if err := ValidateZoom(zoom); err != nil {
		return nil, err
	}

	var perr error
	out := project.Geometry(orb.Clone(g), func(p orb.Point) orb.Point {
		if perr != nil {
			return p
		}
		t, err := ToTile(p, zoom)
		if err != nil {
			perr = err
			return p
		}
		return orb.Point{float64(t.Column), float64(t.Row)}
	})
	if perr != nil {
		return nil, perr
	}
	return out, nil
}

// ProjectToGeo maps a tile-space geometry back to longitude/latitude.
// Vertices are treated as tile corners, shifted by half a tile when center is set.
func ProjectToGeo(g orb.Geometry, zoom int, center bool) orb.Geometry {
	if g == nil {
		return nil
	}
	shift := 0.0
	if center {
		shift = 0.5
	}
	return project.Geometry(orb.Clone(g), func(p orb.Point) orb.Point {
		return FractionToGeo(orb.Point{p.X() + shift, p.Y() + shift}, zoom)
	})
}

// MapTile converts to orb's maptile representation.
func MapTile(t domain.TileCoordinate, zoom int) maptile.Tile {
	return maptile.New(t.Column, t.Row, maptile.Zoom(zoom))
}

// TileBound returns the geographic extent of a tile.
func TileBound(t domain.TileCoordinate, zoom int) orb.Bound {
	return MapTile(t, zoom).Bound()
}
