package types

import (
	"encoding/json"
	"time"

	"github.com/openmapping/tasking/internal/db/models"
)

// TaskHistoryEntry is one audit row of a task as shown to clients
// swagger:model
// Example: {"history_id":12,"action":"STATE_CHANGE","action_text":"MAPPED","action_date":"2024-01-01T12:00:00Z","action_by":"mapper"}
type TaskHistoryEntry struct {
	// Identifier of the history row
	HistoryID int64 `json:"history_id"`

	// Kind of action (LOCKED_FOR_MAPPING, LOCKED_FOR_VALIDATION, STATE_CHANGE, COMMENT, AUTO_UNLOCKED)
	Action models.TaskAction `json:"action"`

	// Action payload: the new status, the comment or the lock duration as HH:MM:SS
	ActionText *string `json:"action_text"`

	// When the action happened, in UTC
	ActionDate time.Time `json:"action_date"`

	// Username of the actor, empty when the user no longer exists
	ActionBy string `json:"action_by"`
}

// TaskSummary is the transport view of a task
// swagger:model
// Example: {"task_id":4,"project_id":1,"status":"LOCKED_FOR_MAPPING","lock_holder_username":"mapper","history":[],"per_task_instructions":"Map 12/2020/2798"}
type TaskSummary struct {
	// Task id, unique within the project
	TaskID int64 `json:"task_id"`

	// Owning project
	ProjectID int64 `json:"project_id"`

	// Current status
	Status models.TaskStatus `json:"status"`

	// Tile address, null for tasks that are not tile aligned
	X    *int `json:"x"`
	Y    *int `json:"y"`
	Zoom *int `json:"zoom"`

	// Whether the task geometry is a tile square
	IsSquare bool `json:"is_square"`

	// Username of the lock holder, only set while the task is locked
	LockHolderUsername string `json:"lock_holder_username,omitempty"`

	// History, newest first
	History []TaskHistoryEntry `json:"history"`

	// Instructions resolved for the preferred locale
	PerTaskInstructions string `json:"per_task_instructions"`

	// Task geometry as a GeoJSON MultiPolygon
	Geometry json.RawMessage `json:"geometry,omitempty"`
}

// SplitResponse lists the children created by a split
// swagger:model
// Example: {"tasks":[{"task_id":5,"project_id":1,"status":"READY"}]}
type SplitResponse struct {
	// The four new tasks in creation order
	Tasks []TaskSummary `json:"tasks"`
}
