package services

import (
	"context"

	"github.com/openmapping/tasking/internal/db/models"
	"github.com/openmapping/tasking/internal/db/repos"
	"github.com/openmapping/tasking/internal/logger"
	"github.com/openmapping/tasking/internal/types"
)

// Project handles project-related operations
type Project struct {
	store *repos.Store
}

// NewProjectService creates a new instance of ProjectService
func NewProjectService(store *repos.Store) *Project {
	return &Project{
		store: store,
	}
}

// Get retrieves a project with its counters
func (s *Project) Get(ctx context.Context, projectID int64) (*types.ProjectSummary, error) {
	project, err := s.store.Projects.Get(ctx, projectID)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, ProjectNotFound(projectID)
		}
		return nil, AsError(err)
	}
	summary := types.NewProjectSummary(project)
	return &summary, nil
}

// RecomputeCounters recounts the aggregate counters of a project from its tasks
func (s *Project) RecomputeCounters(ctx context.Context, projectID int64) (*types.ProjectSummary, error) {
	err := s.store.Transaction(ctx, func(tx *repos.Store) error {
		return RecomputeCounters(ctx, tx, projectID)
	})
	if err != nil {
		return nil, boundary(err)
	}
	return s.Get(ctx, projectID)
}

// RecomputeCounters recounts the counters of projectID through store. It never
// patches counters incrementally.
func RecomputeCounters(ctx context.Context, store *repos.Store, projectID int64) error {
	counts, err := store.Tasks.CountByStatus(ctx, projectID)
	if err != nil {
		return err
	}

	var c repos.Counters
	for _, sc := range counts {
		c.TotalTasks += sc.Count
		switch sc.Status {
		case models.TaskStatusMapped:
			c.TasksMapped = sc.Count
		case models.TaskStatusValidated:
			c.TasksValidated = sc.Count
		case models.TaskStatusBadImagery:
			c.TasksBadImagery = sc.Count
		}
	}

	if err := store.Projects.UpdateCounters(ctx, projectID, c); err != nil {
		if repos.IsNotFound(err) {
			return ProjectNotFound(projectID)
		}
		return err
	}
	logger.DebugWithFields("Recomputed project counters", logger.Fields{
		"project_id":        projectID,
		"total_tasks":       c.TotalTasks,
		"tasks_mapped":      c.TasksMapped,
		"tasks_validated":   c.TasksValidated,
		"tasks_bad_imagery": c.TasksBadImagery,
	})
	return nil
}

// boundary converts err into *Error without turning a nil into a typed nil
func boundary(err error) error {
	if err == nil {
		return nil
	}
	return AsError(err)
}
