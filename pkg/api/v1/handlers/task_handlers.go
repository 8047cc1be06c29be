// Package handlers provides HTTP request handling
package handlers

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/openmapping/tasking/internal/db/models"
	"github.com/openmapping/tasking/internal/services"
	"github.com/openmapping/tasking/internal/types"
)

// TaskHandlers contains all task related handlers
type TaskHandlers struct {
	tasks *services.Task
}

// NewTaskHandlers creates the task handlers
func NewTaskHandlers(tasks *services.Task) *TaskHandlers {
	return &TaskHandlers{tasks: tasks}
}

// Get handles retrieving a task summary
func (h *TaskHandlers) Get(c *fiber.Ctx, req RPCRequest) error {
	params, ok, err := decodeParams[TaskGetParams](c, req)
	if !ok {
		return err
	}

	summary, err := h.tasks.GetSummary(c.UserContext(), params.ProjectID, params.TaskID, params.Locale)
	if err != nil {
		return respondWithServiceError(c, err, req.ID)
	}
	return respondWithData(c, summary, req.ID)
}

// List handles listing the tasks of a project with pagination
func (h *TaskHandlers) List(c *fiber.Ctx, req RPCRequest) error {
	params, ok, err := decodeParams[TaskListParams](c, req)
	if !ok {
		return err
	}

	page := 1
	if params.Page > 0 {
		page = params.Page
	}
	// Validate already rejected unknown statuses
	statuses, _ := params.statuses()
	listOpts := getPaginationOptions(page, statuses...)

	tasks, err := h.tasks.ListTasks(c.UserContext(), params.ProjectID, listOpts)
	if err != nil {
		return respondWithServiceError(c, err, req.ID)
	}

	return respondWithData(c, types.ListResponse[models.Task]{
		Rows: tasks,
		Pagination: types.PaginationResponse{
			Total:  len(tasks),
			Page:   page,
			Limit:  listOpts.Limit,
			Offset: listOpts.Offset,
		},
	}, req.ID)
}

// LockForMapping handles taking a mapping lock
func (h *TaskHandlers) LockForMapping(c *fiber.Ctx, req RPCRequest) error {
	params, ok, err := decodeParams[TaskActionParams](c, req)
	if !ok {
		return err
	}

	summary, err := h.tasks.LockForMapping(c.UserContext(), params.lockRequest())
	if err != nil {
		return respondWithServiceError(c, err, req.ID)
	}
	return respondWithData(c, summary, req.ID)
}

// LockForValidation handles taking a validation lock
func (h *TaskHandlers) LockForValidation(c *fiber.Ctx, req RPCRequest) error {
	params, ok, err := decodeParams[TaskActionParams](c, req)
	if !ok {
		return err
	}

	summary, err := h.tasks.LockForValidation(c.UserContext(), params.lockRequest())
	if err != nil {
		return respondWithServiceError(c, err, req.ID)
	}
	return respondWithData(c, summary, req.ID)
}

// Unlock handles releasing a lock into a new status
func (h *TaskHandlers) Unlock(c *fiber.Ctx, req RPCRequest) error {
	params, ok, err := decodeParams[TaskUnlockParams](c, req)
	if !ok {
		return err
	}

	summary, err := h.tasks.Unlock(c.UserContext(), services.UnlockRequest{
		UserID:          params.UserID,
		ProjectID:       params.ProjectID,
		TaskID:          params.TaskID,
		NewStatus:       models.TaskStatus(params.Status),
		Comment:         params.Comment,
		PreferredLocale: params.Locale,
	})
	if err != nil {
		return respondWithServiceError(c, err, req.ID)
	}
	return respondWithData(c, summary, req.ID)
}

// Comment handles adding a comment to a task
func (h *TaskHandlers) Comment(c *fiber.Ctx, req RPCRequest) error {
	params, ok, err := decodeParams[TaskCommentParams](c, req)
	if !ok {
		return err
	}

	summary, err := h.tasks.AddComment(c.UserContext(), services.CommentRequest{
		UserID:          params.UserID,
		ProjectID:       params.ProjectID,
		TaskID:          params.TaskID,
		Comment:         params.Comment,
		PreferredLocale: params.Locale,
	})
	if err != nil {
		return respondWithServiceError(c, err, req.ID)
	}
	return respondWithData(c, summary, req.ID)
}

// Split handles replacing a task by its four children
func (h *TaskHandlers) Split(c *fiber.Ctx, req RPCRequest) error {
	params, ok, err := decodeParams[TaskActionParams](c, req)
	if !ok {
		return err
	}

	resp, err := h.tasks.SplitTask(c.UserContext(), services.SplitRequest{
		UserID:          params.UserID,
		ProjectID:       params.ProjectID,
		TaskID:          params.TaskID,
		PreferredLocale: params.Locale,
	})
	if err != nil {
		return respondWithServiceError(c, err, req.ID)
	}
	return respondWithData(c, resp, req.ID)
}

func (p TaskActionParams) lockRequest() services.LockRequest {
	return services.LockRequest{
		UserID:          p.UserID,
		ProjectID:       p.ProjectID,
		TaskID:          p.TaskID,
		PreferredLocale: p.Locale,
	}
}
