package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"github.com/solarmap/citygrid/internal/core/domain"
	"github.com/solarmap/citygrid/internal/core/usecases"
)

// --- Mock RegionReader ---

type mockReader struct {
	listFn   func(ctx context.Context, zoom int) ([]domain.RegionSummary, error)
	getFn    func(ctx context.Context, name string, zoom int) (*domain.RegionPolygon, error)
	tilesFn  func(ctx context.Context, name string, zoom, offset, limit int) ([]domain.TileCoordinate, error)
	atTileFn func(ctx context.Context, tile domain.TileCoordinate, zoom int) ([]string, error)
	getCalls int
}

func (m *mockReader) ListRegions(ctx context.Context, zoom int) ([]domain.RegionSummary, error) {
	if m.listFn != nil {
		return m.listFn(ctx, zoom)
	}
	return nil, nil
}

func (m *mockReader) GetRegion(ctx context.Context, name string, zoom int) (*domain.RegionPolygon, error) {
	m.getCalls++
	if m.getFn != nil {
		return m.getFn(ctx, name, zoom)
	}
	return nil, domain.ErrRegionNotFound
}

func (m *mockReader) InteriorTiles(ctx context.Context, name string, zoom, offset, limit int) ([]domain.TileCoordinate, error) {
	if m.tilesFn != nil {
		return m.tilesFn(ctx, name, zoom, offset, limit)
	}
	return nil, nil
}

func (m *mockReader) RegionsAtTile(ctx context.Context, tile domain.TileCoordinate, zoom int) ([]string, error) {
	if m.atTileFn != nil {
		return m.atTileFn(ctx, tile, zoom)
	}
	return nil, nil
}

// --- Mock CacheService ---

type mockCache struct {
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- Tests ---

func TestRegionService_Get_Cached(t *testing.T) {
	reader := &mockReader{
		getFn: func(ctx context.Context, name string, zoom int) (*domain.RegionPolygon, error) {
			return &domain.RegionPolygon{
				RegionSummary: domain.RegionSummary{Name: name, Zoom: zoom},
				Polygon:       orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 0}}},
			}, nil
		},
	}
	cache := newMockCache()
	svc := usecases.NewRegionService(reader, cache, 60)

	for i := 0; i < 2; i++ {
		r, err := svc.Get(context.Background(), "Bilbao, BI", 16)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Name != "Bilbao, BI" || r.Polygon == nil {
			t.Errorf("unexpected region %+v", r)
		}
	}
	if reader.getCalls != 1 {
		t.Errorf("expected the second read to hit the cache, got %d repo calls", reader.getCalls)
	}

	if err := svc.Invalidate(context.Background(), &domain.GridComputed{Name: "Bilbao, BI", Zoom: 16}); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := svc.Get(context.Background(), "Bilbao, BI", 16); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reader.getCalls != 2 {
		t.Errorf("expected a repo read after invalidation, got %d calls", reader.getCalls)
	}
}

func TestRegionService_Get_CacheKeepsSlugTwinsApart(t *testing.T) {
	reader := &mockReader{
		getFn: func(ctx context.Context, name string, zoom int) (*domain.RegionPolygon, error) {
			return &domain.RegionPolygon{RegionSummary: domain.RegionSummary{Name: name, Zoom: zoom}}, nil
		},
	}
	cache := newMockCache()
	svc := usecases.NewRegionService(reader, cache, 60)
	ctx := context.Background()

	names := []string{"Lee's Summit, MO", "Lee S Summit, MO"}
	if domain.Slug(names[0]) != domain.Slug(names[1]) {
		t.Fatalf("fixture names should share a slug, got %q and %q", domain.Slug(names[0]), domain.Slug(names[1]))
	}
	for _, name := range names {
		r, err := svc.Get(ctx, name, 16)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Name != name {
			t.Errorf("asked for %q, got %q", name, r.Name)
		}
	}
	if reader.getCalls != 2 {
		t.Errorf("expected one repo read per name, got %d", reader.getCalls)
	}

	if err := svc.Invalidate(ctx, &domain.GridComputed{Name: names[0], Zoom: 16}); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if r, err := svc.Get(ctx, names[1], 16); err != nil || r.Name != names[1] {
		t.Fatalf("unexpected region %+v, %v", r, err)
	}
	if reader.getCalls != 2 {
		t.Errorf("invalidating %q dropped the entry for %q", names[0], names[1])
	}
}

func TestRegionService_Get_NotFound(t *testing.T) {
	svc := usecases.NewRegionService(&mockReader{}, nil, 0)
	if _, err := svc.Get(context.Background(), "Atlantis, XX", 16); !errors.Is(err, domain.ErrRegionNotFound) {
		t.Errorf("expected ErrRegionNotFound, got %v", err)
	}
}

func TestRegionService_Tiles_ClampsPaging(t *testing.T) {
	called := false
	reader := &mockReader{
		tilesFn: func(ctx context.Context, name string, zoom, offset, limit int) ([]domain.TileCoordinate, error) {
			called = true
			if limit != 1000 || offset != 0 {
				t.Errorf("expected offset 0 limit 1000, got %d %d", offset, limit)
			}
			return nil, nil
		},
	}
	svc := usecases.NewRegionService(reader, nil, 0)
	_, _ = svc.Tiles(context.Background(), "Bilbao, BI", 16, -5, 50000)
	if !called {
		t.Error("repo was not called")
	}
}

func TestRegionService_At(t *testing.T) {
	reader := &mockReader{
		atTileFn: func(ctx context.Context, tile domain.TileCoordinate, zoom int) ([]string, error) {
			if tile != (domain.TileCoordinate{Column: 163, Row: 395}) || zoom != 10 {
				t.Errorf("unexpected lookup %v z%d", tile, zoom)
			}
			return []string{"San Francisco, CA"}, nil
		},
	}
	svc := usecases.NewRegionService(reader, nil, 0)

	got, err := svc.At(context.Background(), orb.Point{-122.4194, 37.7749}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Regions) != 1 || !got.Bound.Contains(orb.Point{-122.4194, 37.7749}) {
		t.Errorf("unexpected lookup %+v", got)
	}
}

func TestRegionService_Tile_OutsideGrid(t *testing.T) {
	svc := usecases.NewRegionService(&mockReader{}, nil, 0)
	_, err := svc.Tile(context.Background(), domain.TileCoordinate{Column: 4, Row: 0}, 2)
	if !errors.Is(err, domain.ErrOutsideGrid) {
		t.Errorf("expected ErrOutsideGrid, got %v", err)
	}
	got, err := svc.Tile(context.Background(), domain.TileCoordinate{Column: 3, Row: 3}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Regions == nil {
		t.Error("expected an empty, non-nil region list")
	}
}
