// Package geojsonfs reads region boundaries from GeoJSON files on disk and
// writes combined results back as GeoJSON.
package geojsonfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/solarmap/citygrid/internal/core/domain"
)

// Source loads "City, State" regions from <Dir>/<City>.<State>.json.
type Source struct {
	Dir string
}

// NewSource creates a Source rooted at dir.
func NewSource(dir string) *Source {
	return &Source{Dir: dir}
}

// Path returns the file a region is read from.
func (s *Source) Path(name string) (string, error) {
	city, state, err := domain.CityState(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, city+"."+state+".json"), nil
}

// Load implements ports.RegionSource.
func (s *Source) Load(ctx context.Context, names []string, exclude map[string]bool) ([]domain.Region, error) {
	regions := make([]domain.Region, 0, len(names))
	for _, name := range names {
		if exclude[name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, err := s.Path(name)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s (%s): %w", name, path, domain.ErrRegionNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		g, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		regions = append(regions, domain.Region{Name: name, Geometry: g})
	}
	return regions, nil
}

// Decode accepts a Feature, a FeatureCollection or a bare geometry.
// Collections of polygons are merged into one MultiPolygon.
func Decode(data []byte) (orb.Geometry, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		if f.Geometry == nil {
			return nil, domain.ErrEmptyGeometry
		}
		return f.Geometry, nil
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, err
		}
		var c orb.Collection
		for _, f := range fc.Features {
			if f.Geometry != nil {
				c = append(c, f.Geometry)
			}
		}
		return merge(c)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, err
		}
		if g.Geometry() == nil {
			return nil, domain.ErrEmptyGeometry
		}
		return g.Geometry(), nil
	}
}

func merge(c orb.Collection) (orb.Geometry, error) {
	switch len(c) {
	case 0:
		return nil, domain.ErrEmptyGeometry
	case 1:
		return c[0], nil
	}

	var mp orb.MultiPolygon
	for _, g := range c {
		switch g := g.(type) {
		case orb.Polygon:
			mp = append(mp, g)
		case orb.MultiPolygon:
			mp = append(mp, g...)
		default:
			return c, nil
		}
	}
	return mp, nil
}

// WriteFeature writes g as a single Feature with empty properties.
func WriteFeature(path string, g orb.Geometry) error {
	data, err := geojson.NewFeature(g).MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode feature: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
