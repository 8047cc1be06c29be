package services

import (
	"encoding/json"
	"math"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/openmapping/tasking/internal/db/models"
	"github.com/openmapping/tasking/internal/geometry"
	"github.com/openmapping/tasking/internal/grid"
)

// Feature property names read when a task is built from GeoJSON
const (
	PropSplittable      = "splittable"
	PropExtraProperties = "extra_properties"
)

// ParseTaskFeature decodes a single GeoJSON Feature and builds a task from it
func ParseTaskFeature(taskID int64, data []byte) (*models.Task, error) {
	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return nil, InvalidGeoJSON(err)
	}
	return TaskFromFeature(geometry.New(), taskID, f)
}

// TaskFromFeature builds a READY task from a feature. The geometry must be a
// valid MultiPolygon and the feature must carry a boolean isSquare (or
// splittable) flag. x, y and zoom are optional but must come together.
func TaskFromFeature(ops geometry.Ops, taskID int64, f *geojson.Feature) (*models.Task, error) {
	if f == nil || f.Geometry == nil {
		return nil, InvalidGeoJSON(geometry.ErrInvalidGeoJSON)
	}
	mp, err := ops.ValidateMultiPolygon(f.Geometry)
	if err != nil {
		return nil, InvalidGeoJSON(err)
	}

	isSquare, err := squareFlag(f.Properties)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:       taskID,
		IsSquare: isSquare,
		Geometry: models.MultiPolygon(mp),
		Status:   models.TaskStatusReady,
	}

	if err := readTileAddress(f.Properties, task); err != nil {
		return nil, err
	}

	if raw, ok := f.Properties[PropExtraProperties]; ok && raw != nil {
		extra, ok := raw.(map[string]interface{})
		if !ok {
			return nil, InvalidData("property %s must be an object", PropExtraProperties)
		}
		task.ExtraProperties = extra
	}
	return task, nil
}

func squareFlag(props geojson.Properties) (bool, error) {
	for _, key := range []string{grid.PropIsSquare, PropSplittable} {
		raw, ok := props[key]
		if !ok || raw == nil {
			continue
		}
		flag, ok := raw.(bool)
		if !ok {
			return false, InvalidData("property %s must be a boolean", key)
		}
		return flag, nil
	}
	return false, InvalidData("missing property %s", grid.PropIsSquare)
}

func readTileAddress(props geojson.Properties, task *models.Task) error {
	keys := []string{grid.PropX, grid.PropY, grid.PropZoom}
	values := make([]*int, len(keys))
	present := 0
	for i, key := range keys {
		v, err := optionalInt(props, key)
		if err != nil {
			return err
		}
		if v != nil {
			present++
		}
		values[i] = v
	}
	switch present {
	case 0:
		return nil
	case len(keys):
	default:
		return InvalidData("properties x, y and zoom must be given together")
	}

	x, y, z := *values[0], *values[1], *values[2]
	if z < 0 || z > geometry.MaxZoom || x < 0 || y < 0 ||
		!maptile.New(uint32(x), uint32(y), maptile.Zoom(z)).Valid() {
		return InvalidData("tile %d/%d/%d is out of range", z, x, y)
	}
	task.X, task.Y, task.Zoom = values[0], values[1], values[2]
	return nil
}

func optionalInt(props geojson.Properties, key string) (*int, error) {
	raw, ok := props[key]
	if !ok || raw == nil {
		return nil, nil
	}
	var f float64
	switch v := raw.(type) {
	case int:
		return &v, nil
	case int64:
		i := int(v)
		return &i, nil
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, InvalidData("property %s must be an integer", key)
		}
		f = parsed
	default:
		return nil, InvalidData("property %s must be an integer", key)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return nil, InvalidData("property %s must be an integer", key)
	}
	i := int(f)
	return &i, nil
}
