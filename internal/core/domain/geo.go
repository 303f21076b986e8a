package domain

import (
	"fmt"
	"strings"
)

// TileCoordinate is a slippy tile column/row. The zoom travels alongside it.
type TileCoordinate struct {
	Column uint32 `json:"x"`
	Row    uint32 `json:"y"`
}

func (t TileCoordinate) String() string {
	return fmt.Sprintf("%d/%d", t.Column, t.Row)
}

// Less orders tiles row-major.
func (t TileCoordinate) Less(o TileCoordinate) bool {
	if t.Row != o.Row {
		return t.Row < o.Row
	}
	return t.Column < o.Column
}

// CityState splits a "City, State" region name.
func CityState(name string) (city, state string, err error) {
	city, state, ok := strings.Cut(name, ",")
	city, state = strings.TrimSpace(city), strings.TrimSpace(state)
	if !ok || city == "" || state == "" {
		return "", "", fmt.Errorf("region name %q: want \"City, State\"", name)
	}
	return city, state, nil
}

// RegionName joins a city and state into the canonical region key.
func RegionName(city, state string) string {
	return strings.TrimSpace(city) + ", " + strings.TrimSpace(state)
}
