package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"
)

// Tile grid constants of the spherical mercator TMS scheme
const (
	TileSize          = 256
	InitialResolution = 156543.0339
	OriginShift       = 20037508.342789244
	// MaxZoom keeps tile indexes inside uint32
	MaxZoom = 31
)

// Resolution returns the meters per pixel at zoom
func Resolution(zoom int) float64 {
	return InitialResolution / math.Pow(2, float64(zoom))
}

// TileEnvelope returns the WGS84 square of TMS tile (x, y, zoom). The y axis
// counts from the bottom of the grid.
func TileEnvelope(x, y, zoom int) (orb.MultiPolygon, error) {
	mercator, err := MercatorTileEnvelope(x, y, zoom)
	if err != nil {
		return nil, err
	}
	return project.MultiPolygon(mercator, project.Mercator.ToWGS84), nil
}

// MercatorTileEnvelope returns the square of TMS tile (x, y, zoom) in SRIDWebMercator
func MercatorTileEnvelope(x, y, zoom int) (orb.MultiPolygon, error) {
	if x < 0 || y < 0 || zoom < 0 || zoom > MaxZoom {
		return nil, fmt.Errorf("%w: tile %d/%d/%d out of range", ErrInvalidGeoJSON, zoom, x, y)
	}
	if !maptile.New(uint32(x), uint32(y), maptile.Zoom(zoom)).Valid() {
		return nil, fmt.Errorf("%w: tile %d/%d/%d out of range", ErrInvalidGeoJSON, zoom, x, y)
	}

	res := Resolution(zoom)
	minX := float64(x*TileSize)*res - OriginShift
	minY := float64(y*TileSize)*res - OriginShift
	maxX := float64((x+1)*TileSize)*res - OriginShift
	maxY := float64((y+1)*TileSize)*res - OriginShift

	return orb.MultiPolygon{{orb.Ring{
		{minX, minY},
		{maxX, minY},
		{maxX, maxY},
		{minX, maxY},
		{minX, minY},
	}}}, nil
}
