package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmapping/tasking/internal/db/models"
)

const squareGeometry = `{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,1],[0,0]]]]}`

func feature(props string) []byte {
	return []byte(`{"type":"Feature","properties":` + props + `,"geometry":` + squareGeometry + `}`)
}

func TestParseTaskFeature(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		subCode string
		check   func(t *testing.T, task *models.Task)
	}{
		{
			name: "tile aligned square",
			data: feature(`{"x":1,"y":0,"zoom":1,"isSquare":true}`),
			check: func(t *testing.T, task *models.Task) {
				assert.True(t, task.IsSquare)
				assert.Equal(t, 1, *task.X)
				assert.Equal(t, 0, *task.Y)
				assert.Equal(t, 1, *task.Zoom)
				assert.Equal(t, models.TaskStatusReady, task.Status)
			},
		},
		{
			name: "null tile address",
			data: feature(`{"x":null,"y":null,"zoom":null,"isSquare":false}`),
			check: func(t *testing.T, task *models.Task) {
				assert.False(t, task.IsTileAligned())
				assert.False(t, task.IsSquare)
			},
		},
		{
			name: "splittable alias",
			data: feature(`{"splittable":true}`),
			check: func(t *testing.T, task *models.Task) {
				assert.True(t, task.IsSquare)
			},
		},
		{
			name: "extra properties",
			data: feature(`{"isSquare":false,"extra_properties":{"building":"yes"}}`),
			check: func(t *testing.T, task *models.Task) {
				assert.Equal(t, "yes", task.ExtraProperties["building"])
			},
		},
		{name: "missing flag", data: feature(`{"x":1,"y":1,"zoom":1}`), subCode: SubCodeInvalidData},
		{name: "flag not boolean", data: feature(`{"isSquare":"yes"}`), subCode: SubCodeInvalidData},
		{name: "partial tile address", data: feature(`{"x":1,"y":1,"isSquare":true}`), subCode: SubCodeInvalidData},
		{name: "fractional x", data: feature(`{"x":1.5,"y":1,"zoom":1,"isSquare":true}`), subCode: SubCodeInvalidData},
		{name: "tile out of range", data: feature(`{"x":4,"y":0,"zoom":1,"isSquare":true}`), subCode: SubCodeInvalidData},
		{name: "extra properties not an object", data: feature(`{"isSquare":true,"extra_properties":[1]}`), subCode: SubCodeInvalidData},
		{
			name:    "polygon instead of multipolygon",
			data:    []byte(`{"type":"Feature","properties":{"isSquare":true},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}`),
			subCode: SubCodeInvalidGeoJSON,
		},
		{
			name:    "self intersecting ring",
			data:    []byte(`{"type":"Feature","properties":{"isSquare":true},"geometry":{"type":"MultiPolygon","coordinates":[[[[0,0],[1,1],[1,0],[0,1],[0,0]]]]}}`),
			subCode: SubCodeInvalidGeoJSON,
		},
		{
			name:    "not a feature",
			data:    []byte(`{"type":"FeatureCollection","features":[]}`),
			subCode: SubCodeInvalidGeoJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := ParseTaskFeature(7, tt.data)
			if tt.subCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.subCode, AsError(err).SubCode)
				return
			}
			require.NoError(t, err)
			assert.EqualValues(t, 7, task.ID)
			require.Len(t, task.Geometry, 1)
			tt.check(t, task)
		})
	}
}
