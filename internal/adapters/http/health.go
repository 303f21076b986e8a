package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// probe result strings shared by every dependency
const (
	probeOK            = "ok"
	probeNotConfigured = "not configured"
)

// HealthHandler reports process liveness only. It never touches a backend.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":       "healthy",
			"uptime":       time.Since(startedAt).Round(time.Second).String(),
			"version":      apiVersion,
			"default_zoom": deps.DefaultZoom,
		})
	}
}

// ReadyHandler reports whether region reads can be served. The database is
// required; NATS and Valkey only degrade freshness and are reported as-is.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := fiber.Map{}
		ready := true

		switch {
		case deps.DB == nil:
			checks["database"] = probeNotConfigured
			ready = false
		default:
			checks["database"] = probe(deps.DB.Ping(ctx))
			ready = checks["database"] == probeOK
		}

		switch {
		case deps.NATS == nil:
			checks["grid_events"] = probeNotConfigured
		case deps.NATS.IsConnected():
			checks["grid_events"] = probeOK
		default:
			checks["grid_events"] = "disconnected"
		}

		if deps.Cache == nil {
			checks["cache"] = probeNotConfigured
		} else {
			checks["cache"] = probe(deps.Cache.Ping(ctx))
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}

func probe(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return probeOK
}
