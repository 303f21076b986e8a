package ports

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/solarmap/citygrid/internal/core/domain"
)

// Rasterizer enumerates the integer grid points strictly inside a tile-space polygon.
type Rasterizer interface {
	InteriorPoints(g orb.Geometry) ([]domain.TileCoordinate, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishGridComputed(ctx context.Context, event *domain.GridComputed) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeGridComputed(ctx context.Context, handler func(ctx context.Context, event *domain.GridComputed) error) error
}

// CacheService provides read-through caching. Get returns domain.ErrCacheMiss
// for absent keys.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
