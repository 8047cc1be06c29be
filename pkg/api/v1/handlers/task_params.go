// Package handlers provides HTTP request handling
package handlers

import (
	"fmt"
	"strings"

	"github.com/openmapping/tasking/internal/db/models"
)

// TaskGetParams defines the parameters for retrieving a task
type TaskGetParams struct {
	ProjectID int64  `json:"projectId"`
	TaskID    int64  `json:"taskId"`
	Locale    string `json:"locale,omitempty"`
}

// Validate validates the parameters for retrieving a task
func (p TaskGetParams) Validate() error {
	return validateTaskRef(p.ProjectID, p.TaskID)
}

// TaskListParams defines the parameters for listing the tasks of a project
type TaskListParams struct {
	ProjectID int64    `json:"projectId"`
	Page      int      `json:"page,omitempty"`
	Statuses  []string `json:"statuses,omitempty"`
}

// Validate validates the parameters for listing tasks
func (p TaskListParams) Validate() error {
	if p.ProjectID <= 0 {
		return fmt.Errorf("%s", strings.ToLower(ErrMsgProjIDRequired))
	}
	if p.Page < 0 {
		return fmt.Errorf("%s", strings.ToLower(ErrMsgNegativePagination))
	}
	_, err := p.statuses()
	return err
}

func (p TaskListParams) statuses() ([]models.TaskStatus, error) {
	out := make([]models.TaskStatus, 0, len(p.Statuses))
	for _, s := range p.Statuses {
		status, err := models.ParseTaskStatus(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %q", strings.ToLower(ErrMsgTaskStatusInvalid), s)
		}
		out = append(out, status)
	}
	return out, nil
}

// TaskActionParams identifies a task and the user acting on it. It is used by
// the lock and split methods.
type TaskActionParams struct {
	ProjectID int64  `json:"projectId"`
	TaskID    int64  `json:"taskId"`
	UserID    int64  `json:"userId"`
	Locale    string `json:"locale,omitempty"`
}

// Validate validates the parameters for a task action
func (p TaskActionParams) Validate() error {
	if err := validateTaskRef(p.ProjectID, p.TaskID); err != nil {
		return err
	}
	return validateUser(p.UserID)
}

// TaskUnlockParams defines the parameters for releasing a lock
type TaskUnlockParams struct {
	TaskActionParams
	// Status is passed through unchecked so the service can report
	// InvalidUnlockState for statuses an unlock may not target
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
}

// Validate validates the parameters for releasing a lock
func (p TaskUnlockParams) Validate() error {
	if err := p.TaskActionParams.Validate(); err != nil {
		return err
	}
	if p.Status == "" {
		return fmt.Errorf("%s", strings.ToLower(ErrMsgTaskStatusReqd))
	}
	return nil
}

// TaskCommentParams defines the parameters for commenting on a task
type TaskCommentParams struct {
	TaskActionParams
	Comment string `json:"comment"`
}

// Validate validates the parameters for commenting on a task
func (p TaskCommentParams) Validate() error {
	if err := p.TaskActionParams.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(p.Comment) == "" {
		return fmt.Errorf("%s", strings.ToLower(ErrMsgTaskCommentReqd))
	}
	return nil
}

func validateTaskRef(projectID, taskID int64) error {
	if projectID <= 0 {
		return fmt.Errorf("%s", strings.ToLower(ErrMsgProjIDRequired))
	}
	if taskID <= 0 {
		return fmt.Errorf("%s", strings.ToLower(ErrMsgTaskIDRequired))
	}
	return nil
}

func validateUser(userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("%s", strings.ToLower(ErrMsgUserIDRequired))
	}
	return nil
}
