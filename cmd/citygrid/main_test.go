package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/solarmap/citygrid/internal/core/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseTile(t *testing.T) {
	tile, err := parseTile("14974/26982")
	if err != nil {
		t.Fatal(err)
	}
	if tile != (domain.TileCoordinate{Column: 14974, Row: 26982}) {
		t.Errorf("unexpected tile %v", tile)
	}
	for _, bad := range []string{"", "12", "a/1", "1/-1", "1/2/3"} {
		if _, err := parseTile(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestProject_PointToTile(t *testing.T) {
	out, err := run(t, "project", "--zoom", "16", "--lon=-97.7431", "--lat=30.2672")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "16/14974/26982" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestProject_TileToPoint(t *testing.T) {
	out, err := run(t, "project", "--zoom", "16", "--tile", "14974/26982")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "corner -97.7453613,30.2685562") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestProject_RequiresInput(t *testing.T) {
	if _, err := run(t, "project", "--zoom", "16", "--lon=1"); err == nil {
		t.Error("expected an error without --lat")
	}
	if _, err := run(t, "project", "--zoom", "16", "--lon=0", "--lat=89.5"); err == nil {
		t.Error("expected an error past the Mercator limit")
	}
}

// writeRegion stores a 0.05 degree square boundary as dir/file.
func writeRegion(t *testing.T, dir, file string, lon, lat float64) {
	t.Helper()
	ring := [][2]float64{{lon, lat}, {lon + 0.05, lat}, {lon + 0.05, lat + 0.05}, {lon, lat + 0.05}, {lon, lat}}
	var coords []string
	for _, c := range ring {
		coords = append(coords, fmt.Sprintf("[%.4f,%.4f]", c[0], c[1]))
	}
	data := `{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[` +
		strings.Join(coords, ",") + `]]}}`
	if err := os.WriteFile(filepath.Join(dir, file), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCombine_WritesCollection(t *testing.T) {
	dir := t.TempDir()
	writeRegion(t, dir, "Austin.TX.json", -97.80, 30.20)
	writeRegion(t, dir, "Waco.TX.json", -97.20, 31.50)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "combine", "--geojson-dir", dir, "--output-dir", outDir, "Austin, TX", "Waco, TX")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(outDir, CombinedFile)
	if strings.TrimSpace(out) != path {
		t.Errorf("expected the written path, got %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := f.Geometry.(orb.Collection); !ok || len(c) != 2 {
		t.Errorf("expected a 2-member collection, got %T %v", f.Geometry, f.Geometry)
	}
}

func TestArea_ReportsTiles(t *testing.T) {
	dir := t.TempDir()
	writeRegion(t, dir, "Austin.TX.json", -97.80, 30.20)

	out, err := run(t, "area", "--geojson-dir", dir, "--zoom", "12", "--skip-simplify", "Austin, TX")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "zoom 12: ") || !strings.Contains(out, "over 1 regions") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestInner_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeRegion(t, dir, "Austin.TX.json", -97.80, 30.20)
	if err := os.WriteFile(filepath.Join(dir, "cities.csv"), []byte("city,state\nAustin,TX\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "inner", "--dry-run", "--zoom", "14",
		"--geojson-dir", dir, "--cities", filepath.Join(dir, "cities.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1 grids computed") || !strings.Contains(out, "Austin, TX") {
		t.Errorf("unexpected report %q", out)
	}
}

func TestInner_MissingRegionFails(t *testing.T) {
	if _, err := run(t, "inner", "--dry-run", "--geojson-dir", t.TempDir(), "Nowhere, ZZ"); err == nil {
		t.Error("expected an error for a missing boundary file")
	}
}

func TestInner_HelpDescribesResume(t *testing.T) {
	out, err := run(t, "inner", "--help")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "no stored interior grid") {
		t.Errorf("help should say regions are skipped by stored grid, got %q", out)
	}
	if strings.Contains(out, "no stored polygon") {
		t.Errorf("help still keys on stored polygons: %q", out)
	}
}
