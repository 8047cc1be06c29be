package geometry

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}
}

func totalArea(pieces []orb.Polygon) float64 {
	var sum float64
	for _, p := range pieces {
		sum += planar.Area(p)
	}
	return sum
}

func TestValidateMultiPolygon(t *testing.T) {
	ops := New()
	tests := []struct {
		name    string
		geom    orb.Geometry
		wantErr bool
	}{
		{
			name: "square",
			geom: orb.MultiPolygon{square(0, 0, 1, 1)},
		},
		{
			name: "two polygons touching at a corner",
			geom: orb.MultiPolygon{square(0, 0, 1, 1), square(1, 1, 2, 2)},
		},
		{
			name: "square with hole",
			geom: orb.MultiPolygon{{
				square(0, 0, 4, 4)[0],
				orb.Ring{{1, 1}, {1, 2}, {2, 2}, {2, 1}, {1, 1}},
			}},
		},
		{
			name:    "polygon instead of multipolygon",
			geom:    square(0, 0, 1, 1),
			wantErr: true,
		},
		{
			name:    "nil geometry",
			geom:    nil,
			wantErr: true,
		},
		{
			name:    "empty",
			geom:    orb.MultiPolygon{},
			wantErr: true,
		},
		{
			name:    "unclosed ring",
			geom:    orb.MultiPolygon{{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}},
			wantErr: true,
		},
		{
			name:    "bowtie",
			geom:    orb.MultiPolygon{{orb.Ring{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}}},
			wantErr: true,
		},
		{
			name:    "zero area",
			geom:    orb.MultiPolygon{{orb.Ring{{0, 0}, {1, 0}, {2, 0}, {0, 0}}}},
			wantErr: true,
		},
		{
			name:    "overlapping polygons",
			geom:    orb.MultiPolygon{square(0, 0, 2, 2), square(1, 1, 3, 3)},
			wantErr: true,
		},
		{
			name:    "polygon inside another",
			geom:    orb.MultiPolygon{square(0, 0, 4, 4), square(1, 1, 2, 2)},
			wantErr: true,
		},
		{
			name:    "polygons sharing an edge",
			geom:    orb.MultiPolygon{square(0, 0, 1, 1), square(1, 0, 2, 1)},
			wantErr: true,
		},
		{
			name: "hole outside shell",
			geom: orb.MultiPolygon{{
				square(0, 0, 1, 1)[0],
				orb.Ring{{5, 5}, {5, 6}, {6, 6}, {6, 5}, {5, 5}},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ops.ValidateMultiPolygon(tt.geom)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidGeoJSON)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseMultiPolygon(t *testing.T) {
	mp, err := ParseMultiPolygon([]byte(`{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,1],[0,0]]]]}`))
	require.NoError(t, err)
	assert.Len(t, mp, 1)

	_, err = ParseMultiPolygon([]byte(`{"type":"Point","coordinates":[0,0]}`))
	assert.ErrorIs(t, err, ErrInvalidGeoJSON)

	_, err = ParseMultiPolygon([]byte(`{"type":`))
	assert.ErrorIs(t, err, ErrInvalidGeoJSON)
}

func TestBisectConvex(t *testing.T) {
	ops := New()
	pieces, err := ops.Bisect(orb.MultiPolygon{square(0, 0, 2, 2)}, orb.LineString{{1, -1}, {1, 3}})
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	for _, p := range pieces {
		assert.InDelta(t, 2.0, planar.Area(p), 1e-9)
		_, err := ops.ValidateMultiPolygon(orb.MultiPolygon{p})
		assert.NoError(t, err)
	}

	pieces, err = ops.Bisect(square(0, 0, 2, 2), orb.LineString{{-1, 0.5}, {3, 0.5}})
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	assert.InDelta(t, 4.0, totalArea(pieces), 1e-9)
	areas := []float64{planar.Area(pieces[0]), planar.Area(pieces[1])}
	sort.Float64s(areas)
	assert.InDelta(t, 1.0, areas[0], 1e-9)
	assert.InDelta(t, 3.0, areas[1], 1e-9)
}

func TestBisectNonConvex(t *testing.T) {
	ops := New()
	// C shape opening to the right: a vertical cut through both arms gives three pieces
	c := orb.Polygon{orb.Ring{
		{0, 0}, {3, 0}, {3, 1}, {1, 1}, {1, 2}, {3, 2}, {3, 3}, {0, 3}, {0, 0},
	}}
	pieces, err := ops.Bisect(c, orb.LineString{{2, 0}, {2, 3}})
	require.NoError(t, err)
	require.Len(t, pieces, 3)
	assert.InDelta(t, planar.Area(c), totalArea(pieces), 1e-9)
	for _, p := range pieces {
		_, err := ops.ValidateMultiPolygon(orb.MultiPolygon{p})
		assert.NoError(t, err)
	}
}

func TestBisectLineMissesPolygon(t *testing.T) {
	pieces, err := New().Bisect(square(0, 0, 1, 1), orb.LineString{{5, 0}, {5, 1}})
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.InDelta(t, 1.0, planar.Area(pieces[0]), 1e-9)
}

func TestBisectPolygonWithHole(t *testing.T) {
	p := orb.Polygon{
		square(0, 0, 4, 4)[0],
		orb.Ring{{1, 1}, {1, 3}, {3, 3}, {3, 1}, {1, 1}},
	}
	ops := New()
	for _, line := range []orb.LineString{{{2, 0}, {2, 4}}, {{0, 2}, {4, 2}}} {
		pieces, err := ops.Bisect(p, line)
		require.NoError(t, err)
		require.Len(t, pieces, 2)
		assert.InDelta(t, planar.Area(p), totalArea(pieces), 1e-9)
		for _, piece := range pieces {
			_, err := ops.ValidateMultiPolygon(orb.MultiPolygon{piece})
			assert.NoError(t, err, "cut through the hole must leave a valid piece")
		}
	}

	// A hole entirely on one side stays a hole
	pieces, err := ops.Bisect(p, orb.LineString{{3.5, 0}, {3.5, 4}})
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	holes := 0
	for _, piece := range pieces {
		holes += len(piece) - 1
		_, err := ops.ValidateMultiPolygon(orb.MultiPolygon{piece})
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, holes)
}

func TestBisectRejectsDiagonalLine(t *testing.T) {
	_, err := New().Bisect(square(0, 0, 1, 1), orb.LineString{{0, 0}, {1, 1}})
	assert.ErrorIs(t, err, ErrUnsupportedLine)
}

func TestTileEnvelope(t *testing.T) {
	world, err := TileEnvelope(0, 0, 0)
	require.NoError(t, err)
	b := world.Bound()
	assert.InDelta(t, -180.0, b.Min[0], 1e-6)
	assert.InDelta(t, 180.0, b.Max[0], 1e-6)
	assert.InDelta(t, -85.0511, b.Min[1], 1e-3)
	assert.InDelta(t, 85.0511, b.Max[1], 1e-3)

	// TMS rows count from the bottom, so row 1 at zoom 1 is the northern half
	north, err := TileEnvelope(0, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, north.Bound().Min[1], 1e-6)
	assert.Greater(t, north.Bound().Max[1], 85.0)

	_, err = TileEnvelope(2, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidGeoJSON)
	_, err = TileEnvelope(-1, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidGeoJSON)
}

func TestMercatorTileEnvelope(t *testing.T) {
	world, err := MercatorTileEnvelope(0, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, -OriginShift, world.Bound().Min[0], 1e-3)
	assert.InDelta(t, OriginShift, world.Bound().Max[1], 1e-3)

	wgs, err := New().Reproject(world, SRIDWebMercator, SRIDWGS84)
	require.NoError(t, err)
	direct, err := TileEnvelope(0, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, direct.Bound().Max[1], wgs.Bound().Max[1], 1e-9)

	_, err = MercatorTileEnvelope(0, 0, MaxZoom+1)
	assert.ErrorIs(t, err, ErrInvalidGeoJSON)
}

func TestUnion(t *testing.T) {
	ops := New()

	merged, err := ops.Union([]orb.Polygon{square(0, 0, 1, 1), square(1, 0, 2, 1)})
	require.NoError(t, err)
	require.Len(t, merged, 1, "pieces sharing an edge merge")
	assert.InDelta(t, 2.0, planar.Area(merged), 1e-9)
	_, err = ops.ValidateMultiPolygon(merged)
	assert.NoError(t, err)

	apart, err := ops.Union([]orb.Polygon{square(0, 0, 1, 1), square(3, 0, 4, 1)})
	require.NoError(t, err)
	assert.Len(t, apart, 2)

	single, err := ops.Union([]orb.Polygon{square(0, 0, 1, 1)})
	require.NoError(t, err)
	assert.Len(t, single, 1)

	empty, err := ops.Union(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ops.Union([]orb.Polygon{square(0, 0, 1, 1), {orb.Ring{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}}})
	assert.ErrorIs(t, err, ErrInvalidGeoJSON)
}

func TestAreaM2(t *testing.T) {
	ops := New()
	// 0.01 degree square on the equator is about 1113m on each side
	area := ops.AreaM2(orb.MultiPolygon{square(0, 0, 0.01, 0.01)})
	assert.InEpsilon(t, 1113.19*1113.19, area, 0.01)
	assert.Zero(t, ops.AreaM2(nil))
}

func TestReproject(t *testing.T) {
	ops := New()
	original := orb.MultiPolygon{square(10, 10, 11, 11)}
	merc, err := ops.Reproject(original, SRIDWGS84, SRIDWebMercator)
	require.NoError(t, err)
	assert.Equal(t, 10.0, original[0][0][0][0], "input must not be modified")
	assert.Greater(t, merc.Bound().Min[0], 1e6)

	back, err := ops.Reproject(merc, SRIDWebMercator, SRIDWGS84)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, back.Bound().Min[0], 1e-9)
	assert.InDelta(t, 11.0, back.Bound().Max[1], 1e-9)

	_, err = ops.Reproject(original, SRIDWGS84, 27700)
	assert.ErrorIs(t, err, ErrUnsupportedSRID)
}

func TestCentroidBoundsIntersects(t *testing.T) {
	ops := New()
	mp := orb.MultiPolygon{square(0, 0, 2, 4)}
	c := ops.Centroid(mp)
	assert.InDelta(t, 1.0, c[0], 1e-9)
	assert.InDelta(t, 2.0, c[1], 1e-9)
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 4}}, ops.Bounds(mp))

	assert.True(t, ops.Intersects(mp, orb.MultiPolygon{square(1, 1, 3, 3)}))
	assert.True(t, ops.Intersects(mp, orb.MultiPolygon{square(2, 0, 3, 1)}), "shared edge intersects")
	assert.False(t, ops.Intersects(mp, orb.MultiPolygon{square(5, 5, 6, 6)}))
}

func TestAsGeoJSON(t *testing.T) {
	raw, err := New().AsGeoJSON(orb.MultiPolygon{square(0, 0, 1, 1)})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "MultiPolygon", doc["type"])
}
