package types

import "github.com/openmapping/tasking/internal/db/models"

// ProjectSummary is the transport view of a project and its counters
// swagger:model
// Example: {"project_id":1,"name":"Flood response","status":"PUBLISHED","default_locale":"en","total_tasks":40,"tasks_mapped":12,"tasks_validated":3,"tasks_bad_imagery":1}
type ProjectSummary struct {
	ProjectID       int64                `json:"project_id"`
	Name            string               `json:"name"`
	Status          models.ProjectStatus `json:"status"`
	DefaultLocale   string               `json:"default_locale"`
	TotalTasks      int64                `json:"total_tasks"`
	TasksMapped     int64                `json:"tasks_mapped"`
	TasksValidated  int64                `json:"tasks_validated"`
	TasksBadImagery int64                `json:"tasks_bad_imagery"`
}

// UnlockStaleResponse reports the result of a stale lock sweep
// swagger:model
// Example: {"project_id":1,"unlocked":2}
type UnlockStaleResponse struct {
	// Project that was swept
	ProjectID int64 `json:"project_id"`

	// Number of locks that were cleared
	Unlocked int `json:"unlocked"`
}

// NewProjectSummary renders a project
func NewProjectSummary(p *models.Project) ProjectSummary {
	return ProjectSummary{
		ProjectID:       p.ID,
		Name:            p.Name,
		Status:          p.Status,
		DefaultLocale:   p.DefaultLocale,
		TotalTasks:      p.TotalTasks,
		TasksMapped:     p.TasksMapped,
		TasksValidated:  p.TasksValidated,
		TasksBadImagery: p.TasksBadImagery,
	}
}
