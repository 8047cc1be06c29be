package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskAction is the kind of a task history row
type TaskAction string

// Task action constants
const (
	TaskActionLockedForMapping    TaskAction = "LOCKED_FOR_MAPPING"
	TaskActionLockedForValidation TaskAction = "LOCKED_FOR_VALIDATION"
	TaskActionStateChange         TaskAction = "STATE_CHANGE"
	TaskActionComment             TaskAction = "COMMENT"
	TaskActionAutoUnlocked        TaskAction = "AUTO_UNLOCKED"
)

// LockActions are the history actions that open a lock
var LockActions = []TaskAction{
	TaskActionLockedForMapping,
	TaskActionLockedForValidation,
}

// lockStatusByAction maps a lock action to the status it locks the task in.
// Actions and statuses are distinct enums even where their names coincide.
var lockStatusByAction = map[TaskAction]TaskStatus{
	TaskActionLockedForMapping:    TaskStatusLockedForMapping,
	TaskActionLockedForValidation: TaskStatusLockedForValidation,
}

// LockStatusFor returns the status a lock action puts a task in
func LockStatusFor(action TaskAction) (TaskStatus, bool) {
	s, ok := lockStatusByAction[action]
	return s, ok
}

// LockActionFor returns the history action recorded when a task enters status
func LockActionFor(status TaskStatus) (TaskAction, bool) {
	for a, s := range lockStatusByAction {
		if s == status {
			return a, true
		}
	}
	return "", false
}

// String returns the string representation of the action
func (a TaskAction) String() string {
	return string(a)
}

// IsLock reports whether the action opens a lock
func (a TaskAction) IsLock() bool {
	_, ok := lockStatusByAction[a]
	return ok
}

// ParseTaskAction converts a string to a TaskAction type
func ParseTaskAction(str string) (TaskAction, error) {
	switch TaskAction(str) {
	case TaskActionLockedForMapping, TaskActionLockedForValidation, TaskActionStateChange,
		TaskActionComment, TaskActionAutoUnlocked:
		return TaskAction(str), nil
	default:
		return "", fmt.Errorf("invalid task action: %s", str)
	}
}

// UnmarshalJSON implements json.Unmarshaler for TaskAction
func (a *TaskAction) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	action, err := ParseTaskAction(str)
	if err != nil {
		return err
	}
	*a = action
	return nil
}

// TaskHistory is one audit row of a task. Rows are append only; the text of an
// open lock row is filled in with its duration when the lock is released.
type TaskHistory struct {
	ID         int64      `json:"history_id" gorm:"primaryKey"`
	ProjectID  int64      `json:"project_id" gorm:"not null;index:idx_task_history_task,priority:1"`
	TaskID     int64      `json:"task_id" gorm:"not null;index:idx_task_history_task,priority:2"`
	UserID     int64      `json:"user_id" gorm:"not null;index"`
	Action     TaskAction `json:"action" gorm:"type:varchar(32);not null"`
	ActionText *string    `json:"action_text"`
	ActionDate time.Time  `json:"action_date" gorm:"not null;index:idx_task_history_task,priority:3"`
}

// TableName overrides the pluralised table name
func (TaskHistory) TableName() string {
	return "task_history"
}

// IsOpenLock reports whether the row is a lock that has not been released yet
func (h *TaskHistory) IsOpenLock() bool {
	return h.Action.IsLock() && h.ActionText == nil
}

// Text returns the action text or an empty string
func (h *TaskHistory) Text() string {
	if h.ActionText == nil {
		return ""
	}
	return *h.ActionText
}

// FormatDuration renders d as HH:MM:SS. Hours are not wrapped into days.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

// ParseDuration reads a duration written by FormatDuration
func ParseDuration(s string) (time.Duration, error) {
	var h, m, sec int64
	if _, err := fmt.Sscanf(s, "%d:%02d:%02d", &h, &m, &sec); err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if m > 59 || sec > 59 || h < 0 || m < 0 || sec < 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}
