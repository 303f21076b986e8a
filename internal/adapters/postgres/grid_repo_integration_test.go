//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/solarmap/citygrid/internal/adapters/postgres"
	"github.com/solarmap/citygrid/internal/core/domain"
	"github.com/solarmap/citygrid/internal/pkg/config"
)

// setupTestDB connects to the database from CITYGRID_DATABASE_* and clears
// rows written by earlier runs of these tests.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("citygrid-test", nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	for _, table := range []string{"region_tiles", "region_grids", "region_polygons"} {
		if _, err := db.Pool.Exec(ctx, `DELETE FROM `+table+` WHERE name LIKE 'Test %'`); err != nil {
			t.Fatalf("clear %s: %v", table, err)
		}
	}
	return db
}

func TestGridRepo_Integration(t *testing.T) {
	db := setupTestDB(t)
	repo := postgres.NewGridRepo(db)
	ctx := context.Background()
	const zoom = 18
	name := "Test City, TC"

	square := orb.Polygon{{{100, 100}, {104, 100}, {104, 104}, {100, 104}, {100, 100}}}
	if err := repo.PersistPolygons(ctx, map[string]orb.Geometry{name: square}, zoom); err != nil {
		t.Fatalf("persist polygons: %v", err)
	}
	// idempotent
	if err := repo.PersistPolygons(ctx, map[string]orb.Geometry{name: square}, zoom); err != nil {
		t.Fatalf("persist polygons again: %v", err)
	}

	names, err := repo.ComputedNames(ctx, zoom)
	if err != nil || names[name] {
		t.Fatalf("expected %s not computed before its grid, got %v, %v", name, names, err)
	}

	if ok, _ := repo.HasInteriorGrid(ctx, name, zoom); ok {
		t.Fatal("grid should not exist yet")
	}
	tiles := []domain.TileCoordinate{{Column: 101, Row: 101}, {Column: 102, Row: 101}, {Column: 101, Row: 102}}
	if err := repo.PersistInteriorCoordinates(ctx, name, tiles, zoom); err != nil {
		t.Fatalf("persist grid: %v", err)
	}
	if ok, _ := repo.HasInteriorGrid(ctx, name, zoom); !ok {
		t.Fatal("grid should exist")
	}
	if names, _ := repo.ComputedNames(ctx, zoom); !names[name] {
		t.Errorf("expected %s computed, got %v", name, names)
	}

	r, err := repo.GetRegion(ctx, name, zoom)
	if err != nil {
		t.Fatalf("get region: %v", err)
	}
	if r.AreaTiles != 16 || r.TileCount == nil || *r.TileCount != 3 {
		t.Errorf("unexpected region %+v", r.RegionSummary)
	}
	if !orb.Equal(r.Polygon, square) {
		t.Errorf("polygon changed: %v", r.Polygon)
	}

	page, err := repo.InteriorTiles(ctx, name, zoom, 0, 10)
	if err != nil || len(page) != 3 || page[2] != tiles[2] {
		t.Errorf("unexpected tiles %v, %v", page, err)
	}

	at, err := repo.RegionsAtTile(ctx, domain.TileCoordinate{Column: 102, Row: 101}, zoom)
	if err != nil || len(at) != 1 || at[0] != name {
		t.Errorf("unexpected regions at tile %v, %v", at, err)
	}

	if _, err := repo.GetRegion(ctx, "Test Missing, TC", zoom); !errors.Is(err, domain.ErrRegionNotFound) {
		t.Errorf("expected ErrRegionNotFound, got %v", err)
	}
}
