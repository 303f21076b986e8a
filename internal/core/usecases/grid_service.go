package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/solarmap/citygrid/internal/core/domain"
	"github.com/solarmap/citygrid/internal/core/ports"
	"github.com/solarmap/citygrid/internal/pkg/metrics"
	"github.com/solarmap/citygrid/internal/pkg/shapes"
	"github.com/solarmap/citygrid/internal/pkg/slippy"
)

var tracer = otel.Tracer("github.com/solarmap/citygrid/internal/core/usecases")

// GridOptions configures the simplification stage of a run.
type GridOptions struct {
	Simplify     shapes.Options
	SkipSimplify bool
}

// RunRequest names the regions to process and the zoom to process them at.
type RunRequest struct {
	Names []string
	Zoom  int
}

// RunReport summarises one batch run.
type RunReport struct {
	Zoom int `json:"zoom"`
	// Excluded regions already had a stored interior grid and were not loaded.
	Excluded []string `json:"excluded"`
	// Persisted regions had their tile-space polygon stored in this run.
	Persisted []string `json:"persisted"`
	// Skipped regions already had an interior grid.
	Skipped  []string       `json:"skipped"`
	Computed []RegionResult `json:"computed"`
	Elapsed  time.Duration  `json:"elapsed"`
}

// RegionResult is one rasterized region.
type RegionResult struct {
	Name    string        `json:"name"`
	Tiles   int           `json:"tiles"`
	Elapsed time.Duration `json:"elapsed"`
}

// GridService turns named region boundaries into persisted interior tile grids.
// Regions are processed one after another; the first error aborts the run.
type GridService struct {
	source    ports.RegionSource
	repo      ports.GridRepository
	raster    ports.Rasterizer
	publisher ports.EventPublisher
	opts      GridOptions
	now       func() time.Time
}

// NewGridService creates a new GridService. publisher may be nil.
func NewGridService(
	source ports.RegionSource,
	repo ports.GridRepository,
	raster ports.Rasterizer,
	publisher ports.EventPublisher,
	opts GridOptions,
) *GridService {
	return &GridService{
		source:    source,
		repo:      repo,
		raster:    raster,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

// Run loads every requested region whose interior grid is not stored at
// req.Zoom, simplifies and projects it, stores the polygons and then
// rasterizes each region. Re-running the same request resumes where a failed
// run stopped: polygons are upserted again and finished grids are skipped.
func (s *GridService) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	if err := slippy.ValidateZoom(req.Zoom); err != nil {
		return nil, err
	}
	start := s.now()

	computed, err := s.repo.ComputedNames(ctx, req.Zoom)
	if err != nil {
		return nil, fmt.Errorf("computed regions: %w", err)
	}

	report := &RunReport{Zoom: req.Zoom}
	var pending []string
	for _, name := range req.Names {
		if computed[name] {
			report.Excluded = append(report.Excluded, name)
			continue
		}
		pending = append(pending, name)
	}
	if len(report.Excluded) > 0 {
		metrics.RegionsSkipped.WithLabelValues(strconv.Itoa(req.Zoom), "excluded").Add(float64(len(report.Excluded)))
		slog.Info("regions already computed", "zoom", req.Zoom, "count", len(report.Excluded))
	}

	regions, err := s.source.Load(ctx, req.Names, computed)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}

	projected := make([]orb.Geometry, 0, len(regions))
	for _, region := range regions {
		g, err := s.prepare(region, req.Zoom)
		if err != nil {
			return nil, err
		}
		projected = append(projected, g)
	}

	if err := s.runProjected(ctx, pending, projected, req.Zoom, report); err != nil {
		return nil, err
	}
	report.Elapsed = s.now().Sub(start)
	return report, nil
}

// RunProjected stores and rasterizes polygons that are already in tile space.
// names and polygons pair up by index.
func (s *GridService) RunProjected(ctx context.Context, names []string, polygons []orb.Geometry, zoom int) (*RunReport, error) {
	if err := slippy.ValidateZoom(zoom); err != nil {
		return nil, err
	}
	start := s.now()
	report := &RunReport{Zoom: zoom}
	if err := s.runProjected(ctx, names, polygons, zoom, report); err != nil {
		return nil, err
	}
	report.Elapsed = s.now().Sub(start)
	return report, nil
}

// Simplified returns the simplified boundary of every region, in order.
func (s *GridService) Simplified(ctx context.Context, names []string) ([]domain.Region, error) {
	regions, err := s.source.Load(ctx, names, nil)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	out := make([]domain.Region, 0, len(regions))
	for _, r := range regions {
		g, err := s.simplify(r)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Region{Name: r.Name, Geometry: g})
	}
	return out, nil
}

func (s *GridService) simplify(region domain.Region) (orb.Geometry, error) {
	if s.opts.SkipSimplify {
		return region.Geometry, nil
	}
	g, err := shapes.Simplify(region.Geometry, s.opts.Simplify)
	if err != nil {
		return nil, fmt.Errorf("simplify %s: %w", region.Name, err)
	}
	return g, nil
}

func (s *GridService) prepare(region domain.Region, zoom int) (orb.Geometry, error) {
	g, err := s.simplify(region)
	if err != nil {
		return nil, err
	}
	p, err := slippy.ProjectToTiles(g, zoom)
	if err != nil {
		metrics.ProjectionErrors.Inc()
		return nil, fmt.Errorf("project %s: %w", region.Name, err)
	}
	return p, nil
}

func (s *GridService) runProjected(ctx context.Context, names []string, polygons []orb.Geometry, zoom int, report *RunReport) error {
	if len(names) != len(polygons) {
		return fmt.Errorf("%d names, %d polygons: %w", len(names), len(polygons), domain.ErrPreconditionMismatch)
	}

	if len(names) > 0 {
		byName := make(map[string]orb.Geometry, len(names))
		for i, name := range names {
			byName[name] = polygons[i]
		}
		if err := s.repo.PersistPolygons(ctx, byName, zoom); err != nil {
			return fmt.Errorf("persist polygons: %w", err)
		}
		report.Persisted = append(report.Persisted, names...)
	}

	zl := strconv.Itoa(zoom)
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := s.repo.HasInteriorGrid(ctx, name, zoom)
		if err != nil {
			return fmt.Errorf("check grid %s: %w", name, err)
		}
		if done {
			report.Skipped = append(report.Skipped, name)
			metrics.RegionsSkipped.WithLabelValues(zl, "grid_exists").Inc()
			slog.Debug("interior grid exists", "region", name, "zoom", zoom)
			continue
		}

		res, err := s.rasterize(ctx, name, polygons[i], zoom)
		if err != nil {
			return err
		}
		report.Computed = append(report.Computed, res)
	}
	return nil
}

func (s *GridService) rasterize(ctx context.Context, name string, g orb.Geometry, zoom int) (RegionResult, error) {
	ctx, span := tracer.Start(ctx, "GridService.rasterize")
	defer span.End()
	span.SetAttributes(attribute.String("region", name), attribute.Int("zoom", zoom))

	start := s.now()
	tiles, err := s.raster.InteriorPoints(g)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return RegionResult{}, fmt.Errorf("rasterize %s: %w", name, err)
	}
	elapsed := s.now().Sub(start)
	zl := strconv.Itoa(zoom)
	metrics.RasterizeDuration.WithLabelValues(zl).Observe(elapsed.Seconds())

	if err := s.repo.PersistInteriorCoordinates(ctx, name, tiles, zoom); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return RegionResult{}, fmt.Errorf("persist grid %s: %w", name, err)
	}
	metrics.RegionsProcessed.WithLabelValues(zl).Inc()
	metrics.TilesEmitted.WithLabelValues(zl).Add(float64(len(tiles)))
	span.SetAttributes(attribute.Int("tiles", len(tiles)))

	slog.Info("interior grid stored", "region", name, "zoom", zoom, "tiles", len(tiles), "elapsed", elapsed)

	if s.publisher != nil {
		event := &domain.GridComputed{Name: name, Zoom: zoom, TileCount: len(tiles), ComputedAt: s.now().UTC()}
		if err := s.publisher.PublishGridComputed(ctx, event); err != nil {
			slog.Warn("publish grid computed", "region", name, "error", err)
		}
	}

	return RegionResult{Name: name, Tiles: len(tiles), Elapsed: elapsed}, nil
}
