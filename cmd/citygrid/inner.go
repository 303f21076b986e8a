package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/solarmap/citygrid/internal/adapters/geojsonfs"
	"github.com/solarmap/citygrid/internal/adapters/memory"
	natsadapter "github.com/solarmap/citygrid/internal/adapters/nats"
	"github.com/solarmap/citygrid/internal/adapters/postgres"
	"github.com/solarmap/citygrid/internal/adapters/valkey"
	"github.com/solarmap/citygrid/internal/core/ports"
	"github.com/solarmap/citygrid/internal/core/usecases"
	"github.com/solarmap/citygrid/internal/pkg/config"
	"github.com/solarmap/citygrid/internal/pkg/metrics"
	"github.com/solarmap/citygrid/internal/pkg/raster"
)

func newInnerCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "inner [\"City, State\" ...]",
		Short: "Compute and store the interior tile grid of each region",
		Long: `Loads each region that has no stored interior grid at the zoom, simplifies
and projects it, stores (or replaces) its polygon and then rasterizes it.
Regions whose grid is already stored are skipped, so re-running resumes an
interrupted batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInner(cmd, args, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Keep results in memory instead of PostgreSQL")
	return cmd
}

func runInner(cmd *cobra.Command, args []string, dryRun bool) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd)
	defer stop()
	defer startTracing(ctx, cfg)()

	names, err := regionNames(cfg, args)
	if err != nil {
		return err
	}
	rast, err := raster.New(cfg.Grid.Rasterizer)
	if err != nil {
		return err
	}

	repo, publisher, closeAll, err := gridBackends(ctx, cfg, dryRun)
	if err != nil {
		return err
	}
	defer closeAll()

	svc := usecases.NewGridService(
		geojsonfs.NewSource(cfg.Data.GeoJSONDir),
		repo,
		rast,
		publisher,
		usecases.GridOptions{Simplify: simplifyOptions(cfg), SkipSimplify: cfg.Grid.SkipSimplify},
	)

	slog.Info("starting grid run",
		"regions", len(names),
		"zoom", cfg.Grid.Zoom,
		"rasterizer", cfg.Grid.Rasterizer,
		"dry_run", dryRun,
	)
	report, runErr := svc.Run(ctx, usecases.RunRequest{Names: names, Zoom: cfg.Grid.Zoom})

	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, "citygrid_inner"); err != nil {
		slog.Warn("metrics push failed", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	printReport(cmd, report)
	return nil
}

// gridBackends picks the repository and publisher for a run. The Valkey
// decorator and NATS publisher are optional; an unreachable one is logged
// and skipped.
func gridBackends(ctx context.Context, cfg *config.Config, dryRun bool) (ports.GridRepository, ports.EventPublisher, func(), error) {
	if dryRun {
		return memory.NewGridRepo(), nil, func() {}, nil
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database: %w", err)
	}
	closers = append(closers, db.Close)

	var repo ports.GridRepository = postgres.NewGridRepo(db)

	if cfg.Valkey.Enabled {
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable, using database only", "error", err)
		} else {
			closers = append(closers, cache.Close)
			repo = cache.NewGridCache(repo, time.Duration(cfg.Valkey.TTL)*time.Second)
		}
	}

	var publisher ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, grid events disabled", "error", err)
		} else {
			closers = append(closers, pub.Close)
			publisher = pub
		}
	}

	return repo, publisher, closeAll, nil
}

func printReport(cmd *cobra.Command, r *usecases.RunReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "zoom %d: %d excluded, %d polygons stored, %d grids already present, %d grids computed in %s\n",
		r.Zoom, len(r.Excluded), len(r.Persisted), len(r.Skipped), len(r.Computed), r.Elapsed.Round(time.Millisecond))
	for _, c := range r.Computed {
		fmt.Fprintf(out, "  %-32s %10d tiles  %s\n", c.Name, c.Tiles, c.Elapsed.Round(time.Millisecond))
	}
}
