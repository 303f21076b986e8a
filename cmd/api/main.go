package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/solarmap/citygrid/internal/adapters/http"
	natsadapter "github.com/solarmap/citygrid/internal/adapters/nats"
	"github.com/solarmap/citygrid/internal/adapters/postgres"
	"github.com/solarmap/citygrid/internal/adapters/valkey"
	"github.com/solarmap/citygrid/internal/core/domain"
	"github.com/solarmap/citygrid/internal/core/ports"
	"github.com/solarmap/citygrid/internal/core/usecases"
	"github.com/solarmap/citygrid/internal/pkg/config"
	"github.com/solarmap/citygrid/internal/pkg/logging"
	"github.com/solarmap/citygrid/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("citygrid-api", nil)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache
	var cacheSvc ports.CacheService
	var cache *valkey.Cache
	if cfg.Valkey.Enabled {
		cache, err = valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
			cache = nil
		} else {
			defer cache.Close()
			cacheSvc = cache
		}
	}

	regions := usecases.NewRegionService(postgres.NewGridRepo(db), cacheSvc, cfg.Valkey.TTL)

	// NATS: drop cached reads when the batch job finishes a grid
	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer sub.Close()
			err = sub.SubscribeGridComputed(ctx, func(ctx context.Context, event *domain.GridComputed) error {
				slog.Info("grid computed", "region", event.Name, "zoom", event.Zoom, "tiles", event.TileCount)
				return regions.Invalidate(ctx, event)
			})
			if err != nil {
				slog.Warn("grid event subscription failed", "error", err)
			}
			natsConn = sub.Conn()
		}
	}

	deps := &http.Dependencies{
		Regions:     regions,
		DefaultZoom: cfg.Grid.Zoom,
		NATS:        natsConn,
		DB:          db,
		Cache:       cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024, // read-only API
		AppName:      "citygrid API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, If-None-Match",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "default_zoom", cfg.Grid.Zoom)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
