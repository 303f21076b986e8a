package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/solarmap/citygrid/internal/adapters/geojsonfs"
	"github.com/solarmap/citygrid/internal/core/usecases"
)

// CombinedFile is written to the output directory by the combine command.
const CombinedFile = "geom_collection.geojson"

func newCombineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "combine [\"City, State\" ...]",
		Short: "Write every simplified region into one GeoJSON geometry collection",
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
			collection, err := svc.Combine(ctx, names)
			if err != nil {
				return err
			}

			path := filepath.Join(cfg.Data.OutputDir, CombinedFile)
			if err := geojsonfs.WriteFeature(path, collection); err != nil {
				return err
			}
			slog.Info("combined regions", "regions", len(collection), "path", path)
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
