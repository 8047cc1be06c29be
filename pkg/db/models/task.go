package models

import (
	internalmodels "github.com/openmapping/tasking/internal/db/models"
)

// TaskStatus represents the current state of a task
type TaskStatus = internalmodels.TaskStatus

// Task status constants
const (
	TaskStatusReady               TaskStatus = internalmodels.TaskStatusReady
	TaskStatusLockedForMapping    TaskStatus = internalmodels.TaskStatusLockedForMapping
	TaskStatusMapped              TaskStatus = internalmodels.TaskStatusMapped
	TaskStatusLockedForValidation TaskStatus = internalmodels.TaskStatusLockedForValidation
	TaskStatusValidated           TaskStatus = internalmodels.TaskStatusValidated
	TaskStatusInvalidated         TaskStatus = internalmodels.TaskStatusInvalidated
	TaskStatusBadImagery          TaskStatus = internalmodels.TaskStatusBadImagery
	TaskStatusSplit               TaskStatus = internalmodels.TaskStatusSplit
)

// TaskAction is the kind of a task history row
type TaskAction = internalmodels.TaskAction

// Task action constants
const (
	TaskActionLockedForMapping    TaskAction = internalmodels.TaskActionLockedForMapping
	TaskActionLockedForValidation TaskAction = internalmodels.TaskActionLockedForValidation
	TaskActionStateChange         TaskAction = internalmodels.TaskActionStateChange
	TaskActionComment             TaskAction = internalmodels.TaskActionComment
	TaskActionAutoUnlocked        TaskAction = internalmodels.TaskActionAutoUnlocked
)

// Task is a mapping unit of a project
type Task = internalmodels.Task

// TaskHistory is one audit row of a task
type TaskHistory = internalmodels.TaskHistory

// ParseTaskStatus converts a string to a TaskStatus.
var ParseTaskStatus = internalmodels.ParseTaskStatus
