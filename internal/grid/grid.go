// Package grid derives the four child geometries of a task split.
package grid

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/openmapping/tasking/internal/geometry"
)

// Child feature property names
const (
	PropX        = "x"
	PropY        = "y"
	PropZoom     = "zoom"
	PropIsSquare = "isSquare"
)

// ErrNotQuarterable is returned when polygon quartering leaves a quadrant empty
var ErrNotQuarterable = errors.New("geometry cannot be divided into four quadrants")

// Tile identifies a TMS tile
type Tile struct {
	X    int
	Y    int
	Zoom int
}

// Splitter derives child features for a task geometry
type Splitter struct {
	ops geometry.Ops
}

// NewSplitter creates a Splitter using ops for all spatial work
func NewSplitter(ops geometry.Ops) *Splitter {
	if ops == nil {
		ops = geometry.New()
	}
	return &Splitter{ops: ops}
}

// TileChildren returns the four tiles one zoom level below t, ordered i then j
func TileChildren(t Tile) []Tile {
	children := make([]Tile, 0, 4)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			children = append(children, Tile{X: 2*t.X + i, Y: 2*t.Y + j, Zoom: t.Zoom + 1})
		}
	}
	return children
}

// SplitTile subdivides a tile aligned task into its four child tiles.
func (s *Splitter) SplitTile(t Tile) ([]*geojson.Feature, error) {
	var features []*geojson.Feature
	for _, child := range TileChildren(t) {
		mercator, err := geometry.MercatorTileEnvelope(child.X, child.Y, child.Zoom)
		if err != nil {
			return nil, err
		}
		envelope, err := s.ops.Reproject(mercator, geometry.SRIDWebMercator, geometry.SRIDWGS84)
		if err != nil {
			return nil, err
		}
		f := geojson.NewFeature(envelope)
		f.Properties = geojson.Properties{
			PropX:        child.X,
			PropY:        child.Y,
			PropZoom:     child.Zoom,
			PropIsSquare: true,
		}
		features = append(features, f)
	}
	return features, nil
}

// SplitPolygon quarters an arbitrary geometry through its centroid. Pieces are
// grouped by their own centroid and unioned; ties go to the lower or left quadrant.
// Quadrants are returned in the order (left,bottom) (left,top) (right,bottom) (right,top).
func (s *Splitter) SplitPolygon(mp orb.MultiPolygon) ([]*geojson.Feature, error) {
	centroid := s.ops.Centroid(mp)
	bounds := s.ops.Bounds(mp)

	if bounds.Min[1] == bounds.Max[1] || bounds.Min[0] == bounds.Max[0] {
		return nil, fmt.Errorf("%w: degenerate bounds", ErrNotQuarterable)
	}
	vertical := orb.LineString{{centroid[0], bounds.Min[1]}, {centroid[0], bounds.Max[1]}}
	horizontal := orb.LineString{{bounds.Min[0], centroid[1]}, {bounds.Max[0], centroid[1]}}

	halves, err := s.ops.Bisect(mp, vertical)
	if err != nil {
		return nil, err
	}
	var pieces []orb.Polygon
	for _, half := range halves {
		quarter, err := s.ops.Bisect(half, horizontal)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, quarter...)
	}

	var quadrants [2][2][]orb.Polygon
	for _, piece := range pieces {
		c := s.ops.Centroid(piece)
		i, j := 0, 0
		if c[0] > centroid[0] {
			i = 1
		}
		if c[1] > centroid[1] {
			j = 1
		}
		quadrants[i][j] = append(quadrants[i][j], piece)
	}

	features := make([]*geojson.Feature, 0, 4)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if len(quadrants[i][j]) == 0 {
				return nil, fmt.Errorf("%w: quadrant (%d,%d) is empty", ErrNotQuarterable, i, j)
			}
			merged, err := s.ops.Union(quadrants[i][j])
			if err != nil {
				return nil, err
			}
			f := geojson.NewFeature(merged)
			f.Properties = geojson.Properties{
				PropX:        nil,
				PropY:        nil,
				PropZoom:     nil,
				PropIsSquare: false,
			}
			features = append(features, f)
		}
	}
	return features, nil
}

// CheckChildren verifies every child geometry intersects the parent
func (s *Splitter) CheckChildren(parent orb.MultiPolygon, children []*geojson.Feature) error {
	for i, child := range children {
		mp, ok := child.Geometry.(orb.MultiPolygon)
		if !ok {
			return fmt.Errorf("%w: child %d is %T", geometry.ErrInvalidGeoJSON, i, child.Geometry)
		}
		if !s.ops.Intersects(parent, mp) {
			return fmt.Errorf("%w: child %d does not intersect the parent geometry", geometry.ErrInvalidGeoJSON, i)
		}
	}
	return nil
}
