package valkey

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/valkey-io/valkey-go"

	"github.com/solarmap/citygrid/internal/core/domain"
	"github.com/solarmap/citygrid/internal/core/ports"
	"github.com/solarmap/citygrid/internal/pkg/metrics"
)

// GridCache fronts a ports.GridRepository with Valkey sets of computed region
// names, so resumed batch runs skip the database for completion checks.
// Cache failures are logged and fall through to the repository.
type GridCache struct {
	next   ports.GridRepository
	client valkey.Client
	ttl    time.Duration
}

// NewGridCache wraps next. Entries expire after ttl.
func (c *Cache) NewGridCache(next ports.GridRepository, ttl time.Duration) *GridCache {
	return &GridCache{next: next, client: c.client, ttl: ttl}
}

// computedKey holds the complete ComputedNames result; gridsKey fills in one
// name at a time and is only trusted for positive membership.
func computedKey(zoom int) string { return fmt.Sprintf("citygrid:computed:%d", zoom) }
func gridsKey(zoom int) string    { return fmt.Sprintf("citygrid:grids:%d", zoom) }

func (g *GridCache) ComputedNames(ctx context.Context, zoom int) (map[string]bool, error) {
	key := computedKey(zoom)
	members, err := g.client.Do(ctx, g.client.B().Smembers().Key(key).Build()).AsStrSlice()
	if err == nil && len(members) > 0 {
		metrics.CacheHits.WithLabelValues("computed_names").Inc()
		out := make(map[string]bool, len(members))
		for _, m := range members {
			out[m] = true
		}
		return out, nil
	}
	if err != nil {
		slog.Warn("valkey smembers", "key", key, "error", err)
	}
	metrics.CacheMisses.WithLabelValues("computed_names").Inc()

	names, err := g.next.ComputedNames(ctx, zoom)
	if err != nil {
		return nil, err
	}
	if len(names) > 0 {
		list := make([]string, 0, len(names))
		for n := range names {
			list = append(list, n)
		}
		g.add(ctx, key, list)
	}
	return names, nil
}

func (g *GridCache) PersistPolygons(ctx context.Context, polygons map[string]orb.Geometry, zoom int) error {
	return g.next.PersistPolygons(ctx, polygons, zoom)
}

func (g *GridCache) HasInteriorGrid(ctx context.Context, name string, zoom int) (bool, error) {
	key := gridsKey(zoom)
	ok, err := g.client.Do(ctx, g.client.B().Sismember().Key(key).Member(name).Build()).AsBool()
	if err == nil && ok {
		metrics.CacheHits.WithLabelValues("has_grid").Inc()
		return true, nil
	}
	if err != nil {
		slog.Warn("valkey sismember", "key", key, "error", err)
	}
	metrics.CacheMisses.WithLabelValues("has_grid").Inc()

	ok, err = g.next.HasInteriorGrid(ctx, name, zoom)
	if err != nil {
		return false, err
	}
	if ok {
		g.add(ctx, key, []string{name})
	}
	return ok, nil
}

func (g *GridCache) PersistInteriorCoordinates(ctx context.Context, name string, tiles []domain.TileCoordinate, zoom int) error {
	if err := g.next.PersistInteriorCoordinates(ctx, name, tiles, zoom); err != nil {
		return err
	}
	g.add(ctx, gridsKey(zoom), []string{name})

	// the complete set is stale now; it is rebuilt on the next read
	key := computedKey(zoom)
	if err := g.client.Do(ctx, g.client.B().Del().Key(key).Build()).Error(); err != nil {
		slog.Warn("valkey del", "key", key, "error", err)
	}
	return nil
}

// Forget drops both cached name sets for zoom.
func (g *GridCache) Forget(ctx context.Context, zoom int) error {
	return g.client.Do(ctx, g.client.B().Del().Key(computedKey(zoom), gridsKey(zoom)).Build()).Error()
}

func (g *GridCache) add(ctx context.Context, key string, members []string) {
	cmds := make(valkey.Commands, 0, 2)
	cmds = append(cmds, g.client.B().Sadd().Key(key).Member(members...).Build())
	cmds = append(cmds, g.client.B().Expire().Key(key).Seconds(int64(g.ttl/time.Second)).Build())
	for _, resp := range g.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			slog.Warn("valkey sadd", "key", key, "error", err)
			return
		}
	}
}
