// Package geometry provides the spatial operations used by task creation and splitting.
//
// Geometries are orb values. Stored task geometries are MultiPolygons in SRIDWGS84;
// tile envelopes are computed in SRIDWebMercator and reprojected.
package geometry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

// Spatial reference identifiers understood by Reproject
const (
	// SRIDWGS84 is the geographic SRID tasks are stored in
	SRIDWGS84 = 4326
	// SRIDWebMercator is the spherical mercator SRID tiles are defined in
	SRIDWebMercator = 3857
)

var (
	// ErrInvalidGeoJSON is returned when a geometry is not a valid MultiPolygon
	ErrInvalidGeoJSON = errors.New("invalid geojson")
	// ErrUnsupportedSRID is returned by Reproject for unknown reference systems
	ErrUnsupportedSRID = errors.New("unsupported srid")
	// ErrUnsupportedLine is returned by Bisect for lines that are not axis aligned
	ErrUnsupportedLine = errors.New("bisect line must be a horizontal or vertical segment")
)

// Ops is the set of spatial operations the task engine depends on.
type Ops interface {
	Reproject(g orb.Geometry, fromSRID, toSRID int) (orb.Geometry, error)
	AsGeoJSON(g orb.Geometry) (json.RawMessage, error)
	AreaM2(g orb.Geometry) float64
	ValidateMultiPolygon(g orb.Geometry) (orb.MultiPolygon, error)
	Centroid(g orb.Geometry) orb.Point
	Bounds(g orb.Geometry) orb.Bound
	Bisect(g orb.Geometry, line orb.LineString) ([]orb.Polygon, error)
	Intersects(a, b orb.MultiPolygon) bool
	Union(pieces []orb.Polygon) (orb.MultiPolygon, error)
}

// Planar implements Ops with orb and simplefeatures. Area is geodesic, everything
// else is planar in the coordinates of the input.
type Planar struct{}

var _ Ops = Planar{}

// New returns the default Ops implementation
func New() Ops {
	return Planar{}
}

// Reproject transforms g between SRIDWGS84 and SRIDWebMercator. The input is not modified.
func (Planar) Reproject(g orb.Geometry, fromSRID, toSRID int) (orb.Geometry, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: empty geometry", ErrInvalidGeoJSON)
	}
	c := orb.Clone(g)
	switch {
	case fromSRID == toSRID:
		return c, nil
	case fromSRID == SRIDWebMercator && toSRID == SRIDWGS84:
		return project.Geometry(c, project.Mercator.ToWGS84), nil
	case fromSRID == SRIDWGS84 && toSRID == SRIDWebMercator:
		return project.Geometry(c, project.WGS84.ToMercator), nil
	default:
		return nil, fmt.Errorf("%w: %d -> %d", ErrUnsupportedSRID, fromSRID, toSRID)
	}
}

// AsGeoJSON encodes g as a GeoJSON geometry object
func (Planar) AsGeoJSON(g orb.Geometry) (json.RawMessage, error) {
	if g == nil {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(geojson.NewGeometry(g))
}

// AreaM2 returns the area of a lon/lat geometry in square meters
func (Planar) AreaM2(g orb.Geometry) float64 {
	if g == nil {
		return 0
	}
	return geo.Area(g)
}

// ValidateMultiPolygon checks that g is a MultiPolygon valid under the simple features rules
func (Planar) ValidateMultiPolygon(g orb.Geometry) (orb.MultiPolygon, error) {
	mp, ok := g.(orb.MultiPolygon)
	if !ok {
		typ := "null"
		if g != nil {
			typ = g.GeoJSONType()
		}
		return nil, fmt.Errorf("%w: geometry must be a MultiPolygon, got %s", ErrInvalidGeoJSON, typ)
	}
	if err := validateMultiPolygon(mp); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGeoJSON, err.Error())
	}
	return mp, nil
}

// Centroid returns the area weighted centroid
func (Planar) Centroid(g orb.Geometry) orb.Point {
	if g == nil {
		return orb.Point{}
	}
	c, _ := planar.CentroidArea(g)
	return c
}

// Bounds returns the bounding box of g
func (Planar) Bounds(g orb.Geometry) orb.Bound {
	if g == nil {
		return orb.Bound{}
	}
	return g.Bound()
}

// Bisect splits every polygon of g by line and returns the pieces from both sides.
// A non convex polygon may produce more than one piece per side.
func (Planar) Bisect(g orb.Geometry, line orb.LineString) ([]orb.Polygon, error) {
	var polygons []orb.Polygon
	switch g := g.(type) {
	case orb.Polygon:
		polygons = []orb.Polygon{g}
	case orb.MultiPolygon:
		polygons = g
	default:
		return nil, fmt.Errorf("%w: cannot bisect %T", ErrInvalidGeoJSON, g)
	}

	vertical, at, err := axisOf(line)
	if err != nil {
		return nil, err
	}

	var pieces []orb.Polygon
	for _, p := range polygons {
		cut, err := bisectPolygon(p, vertical, at)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, cut...)
	}
	return pieces, nil
}

// ParseMultiPolygon decodes a GeoJSON geometry and validates it
func ParseMultiPolygon(data []byte) (orb.MultiPolygon, error) {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGeoJSON, err.Error())
	}
	return Planar{}.ValidateMultiPolygon(g.Geometry())
}

func axisOf(line orb.LineString) (vertical bool, at float64, err error) {
	if len(line) != 2 || line[0] == line[1] {
		return false, 0, ErrUnsupportedLine
	}
	switch {
	case line[0][0] == line[1][0]:
		return true, line[0][0], nil
	case line[0][1] == line[1][1]:
		return false, line[0][1], nil
	default:
		return false, 0, ErrUnsupportedLine
	}
}
