package domain

import "errors"

var (
	// ErrPreconditionMismatch aborts a batch when region names and projected
	// polygons do not pair up one to one. Nothing is persisted.
	ErrPreconditionMismatch = errors.New("region names and projected polygons differ in count")

	// ErrLatitudeOutOfRange is returned for latitudes the slippy projection
	// cannot represent (at or beyond ±90°, or past the Mercator limit).
	ErrLatitudeOutOfRange = errors.New("latitude outside projectable range")

	// ErrLongitudeOutOfRange is returned for longitudes outside [-180, 180].
	ErrLongitudeOutOfRange = errors.New("longitude outside [-180, 180]")

	ErrInvalidZoom         = errors.New("zoom must be between 0 and 30")
	ErrEmptyGeometry       = errors.New("geometry has no coordinates")
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
	ErrOutsideGrid         = errors.New("polygon extends to negative grid coordinates")

	ErrRegionNotFound = errors.New("region not found")
	ErrCacheMiss      = errors.New("cache miss")
)
