package http

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/solarmap/citygrid/internal/core/domain"
	"github.com/solarmap/citygrid/internal/pkg/slippy"
)

const mimeGeoJSON = "application/geo+json"

// zoomParam reads ?zoom=, falling back to the configured default.
func zoomParam(c *fiber.Ctx, deps *Dependencies) (int, error) {
	raw := c.Query("zoom")
	if raw == "" {
		return deps.DefaultZoom, nil
	}
	z, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidZoom
	}
	return z, slippy.ValidateZoom(z)
}

// regionName returns the unescaped :name route parameter.
func regionName(c *fiber.Ctx) (string, error) {
	return url.PathUnescape(c.Params("name"))
}

func wantsGeoJSON(c *fiber.Ctx) bool {
	return c.Query("format") == "geojson"
}

// pageParams clamps ?offset= and ?limit=.
func pageParams(c *fiber.Ctx, def, max int) (offset, limit int) {
	offset = c.QueryInt("offset", 0)
	limit = c.QueryInt("limit", def)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > max {
		limit = def
	}
	return offset, limit
}

// ListRegionsHandler returns stored regions at a zoom.
func ListRegionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		zoom, err := zoomParam(c, deps)
		if err != nil {
			return errFromService(c, err)
		}

		regions, err := deps.Regions.List(c.UserContext(), zoom)
		if err != nil {
			return errFromService(c, err)
		}

		offset, limit := pageParams(c, 100, 500)
		total := len(regions)
		if offset >= total {
			regions = []domain.RegionSummary{}
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			regions = regions[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: regions, Pagination: pg})
	}
}

// GetRegionHandler returns one region's simplified polygon. With
// ?format=geojson the polygon is returned as a lon/lat GeoJSON Feature.
func GetRegionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := regionName(c)
		if err != nil {
			return errBadRequest(c, "invalid region name")
		}
		zoom, err := zoomParam(c, deps)
		if err != nil {
			return errFromService(c, err)
		}

		region, err := deps.Regions.Get(c.UserContext(), name, zoom)
		if err != nil {
			return errFromService(c, err)
		}

		if !wantsGeoJSON(c) {
			return c.JSON(region)
		}

		f := geojson.NewFeature(slippy.ProjectToGeo(region.Polygon, zoom, false))
		f.Properties["name"] = region.Name
		f.Properties["zoom"] = region.Zoom
		f.Properties["area_tiles"] = region.AreaTiles
		f.Properties["centroid_geohash"] = region.CentroidGeohash
		if region.TileCount != nil {
			f.Properties["tile_count"] = *region.TileCount
		}
		return c.JSON(f, mimeGeoJSON)
	}
}

// RegionTilesHandler pages through a region's interior grid. With
// ?format=geojson each tile is returned as a polygon Feature.
func RegionTilesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := regionName(c)
		if err != nil {
			return errBadRequest(c, "invalid region name")
		}
		zoom, err := zoomParam(c, deps)
		if err != nil {
			return errFromService(c, err)
		}

		region, err := deps.Regions.Get(c.UserContext(), name, zoom)
		if err != nil {
			return errFromService(c, err)
		}
		if region.TileCount == nil {
			return errNotFound(c, "interior grid not computed yet")
		}

		offset, limit := pageParams(c, 1000, 10000)
		tiles, err := deps.Regions.Tiles(c.UserContext(), name, zoom, offset, limit)
		if err != nil {
			return errFromService(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: *region.TileCount}
		SetLinkHeaders(c, pg)

		if !wantsGeoJSON(c) {
			return c.JSON(PaginatedResponse{Data: tiles, Pagination: pg})
		}

		fc := geojson.NewFeatureCollection()
		for _, t := range tiles {
			f := geojson.NewFeature(slippy.TileBound(t, zoom).ToPolygon())
			f.Properties["x"] = t.Column
			f.Properties["y"] = t.Row
			fc.Append(f)
		}
		return c.JSON(fc, mimeGeoJSON)
	}
}

// TileAtHandler resolves ?lat=&lon= to a tile and the regions covering it.
func TileAtHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		zoom, err := zoomParam(c, deps)
		if err != nil {
			return errFromService(c, err)
		}

		lookup, err := deps.Regions.At(c.UserContext(), orb.Point{lon, lat}, zoom)
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(lookup)
	}
}

// TileHandler describes /v1/tiles/:z/:x/:y.
func TileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		z, errZ := strconv.Atoi(c.Params("z"))
		x, errX := strconv.ParseUint(c.Params("x"), 10, 32)
		y, errY := strconv.ParseUint(c.Params("y"), 10, 32)
		if errZ != nil || errX != nil || errY != nil {
			return errBadRequest(c, "z, x and y must be non-negative integers")
		}

		tile := domain.TileCoordinate{Column: uint32(x), Row: uint32(y)}
		lookup, err := deps.Regions.Tile(c.UserContext(), tile, z)
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(lookup)
	}
}
