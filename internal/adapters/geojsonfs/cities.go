package geojsonfs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/solarmap/citygrid/internal/core/domain"
)

// ReadCityList parses "city,state" rows into region names, keeping file order
// and dropping duplicates. A leading "city,state" header row is skipped.
func ReadCityList(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var names []string
	seen := map[string]bool{}
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("city list line %d: %w", line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("city list line %d: want city,state, got %d fields", line, len(record))
		}
		city, state := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if line == 1 && strings.EqualFold(city, "city") && strings.EqualFold(state, "state") {
			continue
		}
		if city == "" || state == "" {
			return nil, fmt.Errorf("city list line %d: empty city or state", line)
		}
		name := domain.RegionName(city, state)
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

// LoadCityList reads a city list file.
func LoadCityList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open city list: %w", err)
	}
	defer f.Close()
	return ReadCityList(f)
}
