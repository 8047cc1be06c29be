// Package instructions resolves the localized per-task instructions of a
// project and fills in task placeholders.
package instructions

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/openmapping/tasking/internal/db/models"
)

// Resolve picks the instructions template for preferred, falling back to the
// project default locale and then to the first locale in sort order.
func Resolve(infos []models.ProjectInfo, preferred, defaultLocale string) string {
	if len(infos) == 0 {
		return ""
	}
	byLocale := make(map[string]string, len(infos))
	locales := make([]string, 0, len(infos))
	for _, info := range infos {
		byLocale[info.Locale] = info.PerTaskInstructions
		locales = append(locales, info.Locale)
	}
	for _, locale := range []string{preferred, defaultLocale} {
		if text, ok := byLocale[locale]; ok && locale != "" {
			return text
		}
	}
	sort.Strings(locales)
	return byLocale[locales[0]]
}

// Format substitutes {x}, {y} and {z} with the task tile address and {key}
// with every extra property. Placeholders without a value are left as is.
func Format(template string, task *models.Task) string {
	if template == "" || task == nil {
		return template
	}

	var pairs []string
	if task.X != nil && task.Y != nil && task.Zoom != nil {
		pairs = append(pairs,
			"{x}", strconv.Itoa(*task.X),
			"{y}", strconv.Itoa(*task.Y),
			"{z}", strconv.Itoa(*task.Zoom),
		)
	}

	keys := make([]string, 0, len(task.ExtraProperties))
	for k := range task.ExtraProperties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", stringify(task.ExtraProperties[k]))
	}

	if len(pairs) == 0 {
		return template
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// For resolves and formats the instructions of task
func For(project *models.Project, task *models.Task, preferred string) string {
	if project == nil {
		return ""
	}
	return Format(Resolve(project.Infos, preferred, project.DefaultLocale), task)
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
