package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/solarmap/citygrid/internal/pkg/metrics"
)

// apiVersion matches info.version in openapi.yaml.
const apiVersion = "1.0.0"

// SetupRoutes registers the read API.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: tile viewers page quickly, so allow 600 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", apiVersion)
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health and readiness run without a timeout
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Read API, 15s per request
	v1 := app.Group("/v1")
	v1.Get("/regions", timeout.NewWithContext(ListRegionsHandler(deps), 15*time.Second))
	v1.Get("/regions/:name", timeout.NewWithContext(GetRegionHandler(deps), 15*time.Second))
	v1.Get("/regions/:name/tiles", timeout.NewWithContext(RegionTilesHandler(deps), 15*time.Second))
	v1.Get("/tiles/at", timeout.NewWithContext(TileAtHandler(deps), 15*time.Second))
	v1.Get("/tiles/:z/:x/:y", timeout.NewWithContext(TileHandler(deps), 15*time.Second))

	// API documentation (Swagger UI)
	SetupDocs(app)
}
