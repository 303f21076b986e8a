// Command citygrid simplifies region boundaries, projects them onto the
// slippy-map tile grid and stores the tiles strictly inside each region.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solarmap/citygrid/internal/adapters/geojsonfs"
	"github.com/solarmap/citygrid/internal/pkg/config"
	"github.com/solarmap/citygrid/internal/pkg/logging"
	"github.com/solarmap/citygrid/internal/pkg/raster"
	"github.com/solarmap/citygrid/internal/pkg/shapes"
	"github.com/solarmap/citygrid/internal/pkg/telemetry"
)

const serviceName = "citygrid"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "citygrid",
		Short:        "Compute interior slippy-map tile grids for city boundaries",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.Int("zoom", 21, "Tile zoom level (0-30)")
	flags.Float64("tolerance", shapes.DefaultOptions.Tolerance, "Topology-preserving simplify tolerance in degrees")
	flags.Float64("buffer", shapes.DefaultOptions.BufferDistance, "Outward buffer distance in degrees")
	flags.String("rasterizer", raster.StrategyScanline, "Interior rasterizer: scanline or bbox")
	flags.Bool("skip-simplify", false, "Project the raw boundaries without simplifying them")
	flags.String("cities", "cities.csv", "CSV of city,state rows used when no names are given")
	flags.String("geojson-dir", "geojson", "Directory holding <City>.<State>.json boundaries")
	flags.String("output-dir", "out", "Directory for generated files")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", "json", "Log format: json or text")

	root.AddCommand(newInnerCmd(), newCombineCmd(), newAreaCmd(), newProjectCmd())
	return root
}

// setup loads configuration with cmd's flags bound on top and installs the logger.
func setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(serviceName, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM so a batch stops between regions.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// startTracing installs the OTLP tracer when telemetry is enabled. The
// returned function is always safe to call.
func startTracing(ctx context.Context, cfg *config.Config) func() {
	if !cfg.Telemetry.Enabled {
		return func() {}
	}
	shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
	if err != nil {
		slog.Warn("telemetry init failed", "error", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}
}

// regionNames returns the positional names, or every city in the CSV.
func regionNames(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	names, err := geojsonfs.LoadCityList(cfg.Data.CitiesCSV)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no cities listed in %s", cfg.Data.CitiesCSV)
	}
	return names, nil
}

func simplifyOptions(cfg *config.Config) shapes.Options {
	return shapes.Options{
		Tolerance:        cfg.Grid.Tolerance,
		BufferDistance:   cfg.Grid.BufferDistance,
		QuadrantSegments: cfg.Grid.QuadrantSegments,
	}
}
