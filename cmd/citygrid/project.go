package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/solarmap/citygrid/internal/core/domain"
	"github.com/solarmap/citygrid/internal/pkg/slippy"
)

func newProjectCmd() *cobra.Command {
	var (
		lon, lat float64
		tile     string
	)

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Convert a lon/lat point to its tile, or a tile to its corner and centre",
		Example: `  citygrid project --zoom 16 --lon=-97.7431 --lat=30.2672
  citygrid project --zoom 16 --tile 14974/26982`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			zoom := cfg.Grid.Zoom
			out := cmd.OutOrStdout()

			if tile != "" {
				t, err := parseTile(tile)
				if err != nil {
					return err
				}
				if err := slippy.ValidateZoom(zoom); err != nil {
					return err
				}
				corner := slippy.ToGeo(t, zoom, false)
				center := slippy.ToGeo(t, zoom, true)
				fmt.Fprintf(out, "%d/%s corner %.7f,%.7f centre %.7f,%.7f\n",
					zoom, t, corner.Lon(), corner.Lat(), center.Lon(), center.Lat())
				return nil
			}

			if !cmd.Flags().Changed("lon") || !cmd.Flags().Changed("lat") {
				return errors.New("either --tile or both --lon and --lat are required")
			}
			t, err := slippy.ToTile(orb.Point{lon, lat}, zoom)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d/%s\n", zoom, t)
			return nil
		},
	}
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude in degrees")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in degrees")
	cmd.Flags().StringVar(&tile, "tile", "", "Tile as x/y")
	return cmd
}

// parseTile reads "x/y".
func parseTile(s string) (domain.TileCoordinate, error) {
	xs, ys, ok := strings.Cut(s, "/")
	if !ok {
		return domain.TileCoordinate{}, fmt.Errorf("tile %q: want x/y", s)
	}
	x, errX := strconv.ParseUint(xs, 10, 32)
	y, errY := strconv.ParseUint(ys, 10, 32)
	if errX != nil || errY != nil {
		return domain.TileCoordinate{}, fmt.Errorf("tile %q: x and y must be non-negative integers", s)
	}
	return domain.TileCoordinate{Column: uint32(x), Row: uint32(y)}, nil
}
