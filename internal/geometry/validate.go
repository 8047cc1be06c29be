package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/peterstace/simplefeatures/geom"
)

// toSF converts g to a simplefeatures geometry. The conversion validates g,
// so ring self intersections, misplaced holes and overlapping polygons of a
// MultiPolygon are reported here.
func toSF(g orb.Geometry) (geom.Geometry, error) {
	b, err := wkb.Marshal(g)
	if err != nil {
		return geom.Geometry{}, err
	}
	return geom.UnmarshalWKB(b)
}

// polygonsOf returns the non empty polygons contained in g as orb values
func polygonsOf(g geom.Geometry) ([]orb.Polygon, error) {
	var out []orb.Polygon
	for _, part := range g.Dump() {
		if part.Type() != geom.TypePolygon || part.IsEmpty() {
			continue
		}
		og, err := wkb.Unmarshal(part.AsBinary())
		if err != nil {
			return nil, err
		}
		p, ok := og.(orb.Polygon)
		if !ok {
			return nil, fmt.Errorf("expected a polygon, got %T", og)
		}
		out = append(out, p)
	}
	return out, nil
}

func validateMultiPolygon(mp orb.MultiPolygon) error {
	if len(mp) == 0 {
		return errors.New("empty MultiPolygon")
	}
	for i, p := range mp {
		if len(p) == 0 {
			return fmt.Errorf("polygon %d has no rings", i)
		}
		for j, r := range p {
			if len(r) < 4 {
				return fmt.Errorf("polygon %d ring %d has fewer than 4 points", i, j)
			}
			if !r.Closed() {
				return fmt.Errorf("polygon %d ring %d is not closed", i, j)
			}
			for _, pt := range r {
				if math.IsNaN(pt[0]) || math.IsNaN(pt[1]) || math.IsInf(pt[0], 0) || math.IsInf(pt[1], 0) {
					return fmt.Errorf("polygon %d ring %d has a non finite coordinate", i, j)
				}
			}
		}
	}
	_, err := toSF(mp)
	return err
}

// Intersects reports whether the two geometries share at least one point.
// Geometries that fail to convert never intersect.
func (Planar) Intersects(a, b orb.MultiPolygon) bool {
	if len(a) == 0 || len(b) == 0 || !a.Bound().Intersects(b.Bound()) {
		return false
	}
	ga, err := toSF(a)
	if err != nil {
		return false
	}
	gb, err := toSF(b)
	if err != nil {
		return false
	}
	return geom.Intersects(ga, gb)
}

// Union merges pieces that do not overlap into one MultiPolygon. Pieces sharing
// an edge become a single polygon.
func (Planar) Union(pieces []orb.Polygon) (orb.MultiPolygon, error) {
	switch len(pieces) {
	case 0:
		return nil, nil
	case 1:
		return orb.MultiPolygon{pieces[0].Clone()}, nil
	}

	acc, err := toSF(pieces[0])
	if err != nil {
		return nil, fmt.Errorf("%w: piece 0: %s", ErrInvalidGeoJSON, err.Error())
	}
	for i, p := range pieces[1:] {
		g, err := toSF(p)
		if err != nil {
			return nil, fmt.Errorf("%w: piece %d: %s", ErrInvalidGeoJSON, i+1, err.Error())
		}
		if acc, err = geom.Union(acc, g); err != nil {
			return nil, fmt.Errorf("union piece %d: %w", i+1, err)
		}
	}

	polygons, err := polygonsOf(acc)
	if err != nil {
		return nil, err
	}
	return orb.MultiPolygon(polygons), nil
}
