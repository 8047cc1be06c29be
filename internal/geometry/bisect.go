package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/peterstace/simplefeatures/geom"
)

// bisectPolygon cuts p by the line x = at (vertical) or y = at. Each side is the
// intersection of p with that half of its bound, so a side may hold several
// pieces and a hole crossing the line opens into a notch.
func bisectPolygon(p orb.Polygon, vertical bool, at float64) ([]orb.Polygon, error) {
	if len(p) == 0 {
		return nil, nil
	}
	b := p.Bound()
	axis := 1
	if vertical {
		axis = 0
	}
	if at <= b.Min[axis] || at >= b.Max[axis] {
		return []orb.Polygon{p.Clone()}, nil
	}

	sp, err := toSF(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGeoJSON, err.Error())
	}

	var pieces []orb.Polygon
	for _, half := range halves(b, axis, at) {
		box, err := toSF(half.ToPolygon())
		if err != nil {
			return nil, err
		}
		cut, err := geom.Intersection(sp, box)
		if err != nil {
			return nil, fmt.Errorf("bisect at %v: %w", at, err)
		}
		side, err := polygonsOf(cut)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, side...)
	}
	return pieces, nil
}

// halves splits b at the given coordinate of axis, lower side first
func halves(b orb.Bound, axis int, at float64) [2]orb.Bound {
	lowMax, highMin := b.Max, b.Min
	lowMax[axis] = at
	highMin[axis] = at
	return [2]orb.Bound{
		{Min: b.Min, Max: lowMax},
		{Min: highMin, Max: b.Max},
	}
}
