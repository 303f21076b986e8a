package http

import (
	"github.com/nats-io/nats.go"

	"github.com/solarmap/citygrid/internal/adapters/postgres"
	"github.com/solarmap/citygrid/internal/adapters/valkey"
	"github.com/solarmap/citygrid/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Regions *usecases.RegionService
	// DefaultZoom applies when a request has no zoom parameter.
	DefaultZoom int
	NATS        *nats.Conn
	DB          *postgres.DB
	Cache       *valkey.Cache
}
