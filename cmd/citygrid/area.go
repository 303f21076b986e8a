package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solarmap/citygrid/internal/adapters/geojsonfs"
	"github.com/solarmap/citygrid/internal/core/usecases"
)

func newAreaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "area [\"City, State\" ...]",
		Short: "Report the total tile area of the simplified regions at the zoom",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd)
			defer stop()

			names, err := regionNames(cfg, args)
			if err != nil {
				return err
			}

			svc := usecases.NewGridService(
				geojsonfs.NewSource(cfg.Data.GeoJSONDir), nil, nil, nil,
				usecases.GridOptions{Simplify: simplifyOptions(cfg), SkipSimplify: cfg.Grid.SkipSimplify},
			)
			report, err := svc.TileArea(ctx, names, cfg.Grid.Zoom)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "zoom %d: %d tiles over %d regions (about %.1f km²)\n",
				report.Zoom, report.Tiles, len(names), report.SquareKm)
			return nil
		},
	}
}
