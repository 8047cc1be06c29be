package instructions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openmapping/tasking/internal/db/models"
)

func intPtr(i int) *int { return &i }

func TestResolve(t *testing.T) {
	infos := []models.ProjectInfo{
		{Locale: "fr", PerTaskInstructions: "bonjour"},
		{Locale: "en", PerTaskInstructions: "hello"},
		{Locale: "de", PerTaskInstructions: "hallo"},
	}

	tests := []struct {
		name      string
		preferred string
		def       string
		want      string
	}{
		{"preferred locale", "fr", "en", "bonjour"},
		{"falls back to default", "es", "en", "hello"},
		{"falls back to first sorted locale", "es", "pt", "hallo"},
		{"empty preferred", "", "en", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(infos, tt.preferred, tt.def))
		})
	}

	assert.Empty(t, Resolve(nil, "en", "en"))
}

func TestFormat(t *testing.T) {
	task := &models.Task{
		X:    intPtr(2020),
		Y:    intPtr(2798),
		Zoom: intPtr(12),
		ExtraProperties: map[string]interface{}{
			"name":  "Harbour",
			"level": float64(3),
		},
	}
	got := Format("Trace https://tiles/{z}/{x}/{y}.png for {name} (level {level}) {missing}", task)
	assert.Equal(t, "Trace https://tiles/12/2020/2798.png for Harbour (level 3) {missing}", got)
}

func TestFormatWithoutTileAddress(t *testing.T) {
	task := &models.Task{}
	assert.Equal(t, "Map {x}/{y}", Format("Map {x}/{y}", task))
	assert.Equal(t, "", Format("", task))
}

func TestFor(t *testing.T) {
	project := &models.Project{
		DefaultLocale: "en",
		Infos:         []models.ProjectInfo{{Locale: "en", PerTaskInstructions: "zoom {z}"}},
	}
	assert.Equal(t, "zoom 12", For(project, &models.Task{X: intPtr(1), Y: intPtr(2), Zoom: intPtr(12)}, "fr"))
	assert.Empty(t, For(nil, &models.Task{}, "en"))
}
