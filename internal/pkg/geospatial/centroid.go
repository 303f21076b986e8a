package geospatial

import (
	"github.com/mmcloughlin/geohash"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/solarmap/citygrid/internal/pkg/slippy"
)

// CentroidGeohash returns the geohash of the area centroid of a tile-space
// geometry, for indexing stored polygons by location.
func CentroidGeohash(g orb.Geometry, zoom int) string {
	c, _ := planar.CentroidArea(g)
	p := slippy.FractionToGeo(c, zoom)
	return geohash.Encode(p.Lat(), p.Lon())
}
