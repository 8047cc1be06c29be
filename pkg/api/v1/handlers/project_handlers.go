// Package handlers provides HTTP request handling
package handlers

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/openmapping/tasking/internal/services"
	"github.com/openmapping/tasking/internal/types"
)

// ProjectHandlers contains all project related handlers
type ProjectHandlers struct {
	projects *services.Project
	tasks    *services.Task
}

// NewProjectHandlers creates the project handlers
func NewProjectHandlers(projects *services.Project, tasks *services.Task) *ProjectHandlers {
	return &ProjectHandlers{projects: projects, tasks: tasks}
}

// Get handles retrieving a project and its counters
func (h *ProjectHandlers) Get(c *fiber.Ctx, req RPCRequest) error {
	params, ok, err := decodeParams[ProjectGetParams](c, req)
	if !ok {
		return err
	}

	project, err := h.projects.Get(c.UserContext(), params.ProjectID)
	if err != nil {
		return respondWithServiceError(c, err, req.ID)
	}
	return respondWithData(c, project, req.ID)
}

// UnlockStale handles clearing the expired locks of a project
func (h *ProjectHandlers) UnlockStale(c *fiber.Ctx, req RPCRequest) error {
	params, ok, err := decodeParams[ProjectUnlockStaleParams](c, req)
	if !ok {
		return err
	}

	if _, err := h.projects.Get(c.UserContext(), params.ProjectID); err != nil {
		return respondWithServiceError(c, err, req.ID)
	}

	unlocked, err := h.tasks.AutoUnlockTasks(c.UserContext(), params.ProjectID)
	if err != nil {
		return respondWithServiceError(c, err, req.ID)
	}
	return respondWithData(c, types.UnlockStaleResponse{
		ProjectID: params.ProjectID,
		Unlocked:  unlocked,
	}, req.ID)
}
