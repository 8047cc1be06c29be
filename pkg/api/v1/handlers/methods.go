// Package handlers provides HTTP request handling
package handlers

// RPC method constants for standardized method naming
const (
	// Project methods
	ProjectGet         = "project.get"
	ProjectUnlockStale = "project.unlockStale"

	// Task methods
	TaskGet               = "task.get"
	TaskList              = "task.list"
	TaskLockForMapping    = "task.lockForMapping"
	TaskLockForValidation = "task.lockForValidation"
	TaskUnlock            = "task.unlock"
	TaskComment           = "task.comment"
	TaskSplit             = "task.split"
)

// IsProjectMethod checks if the given method is a project operation
func IsProjectMethod(method string) bool {
	switch method {
	case ProjectGet, ProjectUnlockStale:
		return true
	default:
		return false
	}
}

// IsTaskMethod checks if the given method is a task operation
func IsTaskMethod(method string) bool {
	switch method {
	case TaskGet, TaskList, TaskLockForMapping, TaskLockForValidation, TaskUnlock, TaskComment, TaskSplit:
		return true
	default:
		return false
	}
}
