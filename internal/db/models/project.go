package models

import (
	"fmt"
	"time"
)

// ProjectStatus represents the publication state of a project
type ProjectStatus string

// Project status constants
const (
	ProjectStatusDraft     ProjectStatus = "DRAFT"
	ProjectStatusPublished ProjectStatus = "PUBLISHED"
	ProjectStatusArchived  ProjectStatus = "ARCHIVED"
)

// DefaultLocale is used when a project does not name one
const DefaultLocale = "en"

// Project holds the aggregate task counters of a mapping project.
// Counters are always recounted from the tasks table.
type Project struct {
	ID              int64         `json:"project_id" gorm:"primaryKey"`
	Name            string        `json:"name" gorm:"not null"`
	Status          ProjectStatus `json:"status" gorm:"type:varchar(16);not null;default:DRAFT"`
	DefaultLocale   string        `json:"default_locale" gorm:"type:varchar(10);not null;default:en"`
	TotalTasks      int64         `json:"total_tasks" gorm:"not null;default:0"`
	TasksMapped     int64         `json:"tasks_mapped" gorm:"not null;default:0"`
	TasksValidated  int64         `json:"tasks_validated" gorm:"not null;default:0"`
	TasksBadImagery int64         `json:"tasks_bad_imagery" gorm:"not null;default:0"`
	Infos           []ProjectInfo `json:"infos,omitempty" gorm:"foreignKey:ProjectID"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ProjectInfo is the localized text of a project
type ProjectInfo struct {
	ProjectID           int64  `json:"project_id" gorm:"primaryKey;autoIncrement:false"`
	Locale              string `json:"locale" gorm:"primaryKey;type:varchar(10)"`
	Name                string `json:"name"`
	PerTaskInstructions string `json:"per_task_instructions" gorm:"type:text"`
}

// TableName overrides the pluralised table name
func (ProjectInfo) TableName() string {
	return "project_info"
}

// ParseProjectStatus converts a string to a ProjectStatus type
func ParseProjectStatus(str string) (ProjectStatus, error) {
	switch ProjectStatus(str) {
	case ProjectStatusDraft, ProjectStatusPublished, ProjectStatusArchived:
		return ProjectStatus(str), nil
	default:
		return "", fmt.Errorf("invalid project status: %s", str)
	}
}
