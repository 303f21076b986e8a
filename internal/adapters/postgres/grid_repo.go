package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/solarmap/citygrid/internal/core/domain"
	"github.com/solarmap/citygrid/internal/pkg/geospatial"
)

// GridRepo implements ports.GridRepository and ports.RegionReader with pgx.
type GridRepo struct {
	db *DB
}

// NewGridRepo creates a new GridRepo.
func NewGridRepo(db *DB) *GridRepo {
	return &GridRepo{db: db}
}

// ComputedNames returns regions whose grid completion marker exists at zoom.
func (r *GridRepo) ComputedNames(ctx context.Context, zoom int) (map[string]bool, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT name FROM region_grids WHERE zoom = $1`, zoom)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

// PersistPolygons upserts every polygon in one pgx.Batch.
func (r *GridRepo) PersistPolygons(ctx context.Context, polygons map[string]orb.Geometry, zoom int) error {
	if len(polygons) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for name, g := range polygons {
		data, err := geojson.NewGeometry(g).MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		batch.Queue(`
			INSERT INTO region_polygons (name, zoom, geojson, centroid_geohash, area_tiles, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (name, zoom) DO UPDATE
			SET geojson = EXCLUDED.geojson,
			    centroid_geohash = EXCLUDED.centroid_geohash,
			    area_tiles = EXCLUDED.area_tiles,
			    updated_at = EXCLUDED.updated_at
		`, name, zoom, data, geospatial.CentroidGeohash(g, zoom), planar.Area(g))
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range polygons {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// HasInteriorGrid reports whether a completed grid is recorded for the region.
func (r *GridRepo) HasInteriorGrid(ctx context.Context, name string, zoom int) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM region_grids WHERE name = $1 AND zoom = $2)
	`, name, zoom).Scan(&ok)
	return ok, err
}

// PersistInteriorCoordinates replaces a region's tiles with COPY and marks the
// grid complete, all in one transaction.
func (r *GridRepo) PersistInteriorCoordinates(ctx context.Context, name string, tiles []domain.TileCoordinate, zoom int) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM region_tiles WHERE name = $1 AND zoom = $2`, name, zoom); err != nil {
		return fmt.Errorf("clear tiles: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"region_tiles"},
		[]string{"name", "zoom", "tile_x", "tile_y"},
		pgx.CopyFromSlice(len(tiles), func(i int) ([]any, error) {
			return []any{name, zoom, int64(tiles[i].Column), int64(tiles[i].Row)}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy tiles: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO region_grids (name, zoom, tile_count, computed_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name, zoom) DO UPDATE
		SET tile_count = EXCLUDED.tile_count, computed_at = EXCLUDED.computed_at
	`, name, zoom, len(tiles))
	if err != nil {
		return fmt.Errorf("mark grid: %w", err)
	}

	return tx.Commit(ctx)
}

// ListRegions returns region summaries at zoom, ordered by name.
func (r *GridRepo) ListRegions(ctx context.Context, zoom int) ([]domain.RegionSummary, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT p.name, p.zoom, p.area_tiles, g.tile_count, g.computed_at, p.updated_at
		FROM region_polygons p
		LEFT JOIN region_grids g ON g.name = p.name AND g.zoom = p.zoom
		WHERE p.zoom = $1
		ORDER BY p.name
	`, zoom)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RegionSummary
	for rows.Next() {
		var s domain.RegionSummary
		if err := rows.Scan(&s.Name, &s.Zoom, &s.AreaTiles, &s.TileCount, &s.ComputedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetRegion returns one stored polygon.
func (r *GridRepo) GetRegion(ctx context.Context, name string, zoom int) (*domain.RegionPolygon, error) {
	var (
		p    domain.RegionPolygon
		data []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT p.name, p.zoom, p.area_tiles, g.tile_count, g.computed_at, p.updated_at,
		       p.centroid_geohash, p.geojson
		FROM region_polygons p
		LEFT JOIN region_grids g ON g.name = p.name AND g.zoom = p.zoom
		WHERE p.name = $1 AND p.zoom = $2
	`, name, zoom).Scan(
		&p.Name, &p.Zoom, &p.AreaTiles, &p.TileCount, &p.ComputedAt, &p.UpdatedAt,
		&p.CentroidGeohash, &data,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRegionNotFound
	}
	if err != nil {
		return nil, err
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("decode polygon %s: %w", name, err)
	}
	p.Polygon = g.Geometry()
	return &p, nil
}

// InteriorTiles pages through a completed grid in row-major order.
func (r *GridRepo) InteriorTiles(ctx context.Context, name string, zoom, offset, limit int) ([]domain.TileCoordinate, error) {
	ok, err := r.HasInteriorGrid(ctx, name, zoom)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrRegionNotFound
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT tile_x, tile_y FROM region_tiles
		WHERE name = $1 AND zoom = $2
		ORDER BY tile_y, tile_x
		OFFSET $3 LIMIT $4
	`, name, zoom, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tiles := []domain.TileCoordinate{}
	for rows.Next() {
		var x, y int64
		if err := rows.Scan(&x, &y); err != nil {
			return nil, err
		}
		tiles = append(tiles, domain.TileCoordinate{Column: uint32(x), Row: uint32(y)})
	}
	return tiles, rows.Err()
}

// RegionsAtTile lists regions whose completed grid contains tile.
func (r *GridRepo) RegionsAtTile(ctx context.Context, tile domain.TileCoordinate, zoom int) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT t.name FROM region_tiles t
		JOIN region_grids g ON g.name = t.name AND g.zoom = t.zoom
		WHERE t.zoom = $1 AND t.tile_x = $2 AND t.tile_y = $3
		ORDER BY t.name
	`, zoom, int64(tile.Column), int64(tile.Row))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

