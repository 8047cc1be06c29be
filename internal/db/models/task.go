package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Field names for task model
const (
	// TaskIDField is the field name for the project scoped task id
	TaskIDField = "id"
	// TaskProjectIDField is the field name for the owning project
	TaskProjectIDField = "project_id"
	// TaskStatusField is the field name for task status
	TaskStatusField = "status"
	// TaskLockedByField is the field name for the lock holder
	TaskLockedByField = "locked_by"
	// TaskMappedByField is the field name for the mapper
	TaskMappedByField = "mapped_by"
	// TaskValidatedByField is the field name for the validator
	TaskValidatedByField = "validated_by"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Task status constants
const (
	TaskStatusReady               TaskStatus = "READY"
	TaskStatusLockedForMapping    TaskStatus = "LOCKED_FOR_MAPPING"
	TaskStatusMapped              TaskStatus = "MAPPED"
	TaskStatusLockedForValidation TaskStatus = "LOCKED_FOR_VALIDATION"
	TaskStatusValidated           TaskStatus = "VALIDATED"
	TaskStatusInvalidated         TaskStatus = "INVALIDATED"
	TaskStatusBadImagery          TaskStatus = "BADIMAGERY"
	// TaskStatusSplit is terminal, the task is deleted once its children exist
	TaskStatusSplit TaskStatus = "SPLIT"
)

// AllTaskStatuses lists every status in declaration order
var AllTaskStatuses = []TaskStatus{
	TaskStatusReady,
	TaskStatusLockedForMapping,
	TaskStatusMapped,
	TaskStatusLockedForValidation,
	TaskStatusValidated,
	TaskStatusInvalidated,
	TaskStatusBadImagery,
	TaskStatusSplit,
}

// MappableStatuses are the statuses a mapping lock may be taken from
var MappableStatuses = []TaskStatus{
	TaskStatusReady,
	TaskStatusInvalidated,
	TaskStatusBadImagery,
}

// ValidatableStatuses are the statuses a validation lock may be taken from
var ValidatableStatuses = []TaskStatus{
	TaskStatusReady,
	TaskStatusMapped,
	TaskStatusValidated,
	TaskStatusInvalidated,
	TaskStatusBadImagery,
}

// LockedStatuses are the statuses that require a lock holder
var LockedStatuses = []TaskStatus{
	TaskStatusLockedForMapping,
	TaskStatusLockedForValidation,
}

// Task is a mapping unit of a project, identified by (ID, ProjectID)
type Task struct {
	ID              int64             `json:"task_id" gorm:"primaryKey;autoIncrement:false"`
	ProjectID       int64             `json:"project_id" gorm:"primaryKey;autoIncrement:false;index"`
	X               *int              `json:"x"`
	Y               *int              `json:"y"`
	Zoom            *int              `json:"zoom"`
	IsSquare        bool              `json:"is_square" gorm:"not null;default:false"`
	Geometry        MultiPolygon      `json:"-" gorm:"not null"`
	Status          TaskStatus        `json:"status" gorm:"type:varchar(32);not null;index"`
	LockedBy        *int64            `json:"locked_by,omitempty" gorm:"index"`
	MappedBy        *int64            `json:"mapped_by,omitempty"`
	ValidatedBy     *int64            `json:"validated_by,omitempty"`
	TaskPriority    *int              `json:"task_priority,omitempty"`
	ExtraProperties datatypes.JSONMap `json:"extra_properties,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// String returns the string representation of the task status
func (s TaskStatus) String() string {
	return string(s)
}

// IsMappable reports whether a mapping lock may be taken from s
func (s TaskStatus) IsMappable() bool {
	for _, m := range MappableStatuses {
		if s == m {
			return true
		}
	}
	return false
}

// IsLocked reports whether s requires a lock holder
func (s TaskStatus) IsLocked() bool {
	return s == TaskStatusLockedForMapping || s == TaskStatusLockedForValidation
}

// ParseTaskStatus converts a string to a TaskStatus type
func ParseTaskStatus(str string) (TaskStatus, error) {
	for _, s := range AllTaskStatuses {
		if string(s) == str {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid task status: %s", str)
}

// UnmarshalJSON implements json.Unmarshaler for TaskStatus
func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status, err := ParseTaskStatus(str)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// IsMappable reports whether a mapping lock may be taken on the task
func (t *Task) IsMappable() bool {
	return t.Status.IsMappable()
}

// IsTileAligned reports whether the task carries a complete tile address
func (t *Task) IsTileAligned() bool {
	return t.X != nil && t.Y != nil && t.Zoom != nil
}

// Validate checks the lock holder invariant and the key fields
func (t *Task) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("task id must be positive, got %d", t.ID)
	}
	if t.ProjectID <= 0 {
		return fmt.Errorf("project id must be positive, got %d", t.ProjectID)
	}
	if _, err := ParseTaskStatus(string(t.Status)); err != nil {
		return err
	}
	if t.Status.IsLocked() != (t.LockedBy != nil) {
		return fmt.Errorf("task %d: locked_by must be set exactly when the task is locked (status %s)", t.ID, t.Status)
	}
	if len(t.Geometry) == 0 {
		return fmt.Errorf("task %d has no geometry", t.ID)
	}
	return nil
}

// BeforeCreate defaults the status and validates the task
func (t *Task) BeforeCreate(_ *gorm.DB) error {
	if t.Status == "" {
		t.Status = TaskStatusReady
	}
	return t.Validate()
}
