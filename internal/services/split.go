package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/openmapping/tasking/internal/db/models"
	"github.com/openmapping/tasking/internal/db/repos"
	"github.com/openmapping/tasking/internal/events"
	"github.com/openmapping/tasking/internal/grid"
	"github.com/openmapping/tasking/internal/logger"
	"github.com/openmapping/tasking/internal/telemetry"
	"github.com/openmapping/tasking/internal/types"
)

// Split algorithm names
const (
	SplitAlgorithmTile    = "tile"
	SplitAlgorithmPolygon = "polygon"
)

// SplitRequest asks to replace a task by its four children
type SplitRequest struct {
	UserID          int64
	ProjectID       int64
	TaskID          int64
	PreferredLocale string
}

// PriorityResolver re-attaches priority areas to a split child. When it
// reports ok=false the child inherits the parent's priority.
type PriorityResolver interface {
	ResolvePriority(ctx context.Context, projectID int64, child orb.MultiPolygon) (priority *int, ok bool, err error)
}

// SplitTask replaces a task locked for mapping by the caller with four READY
// children. Children, history copies, the parent removal and the recounted
// project counters are committed together or not at all.
func (s *Task) SplitTask(ctx context.Context, req SplitRequest) (_ *types.SplitResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, s.tel.Tracer, "task.split",
		telemetry.TaskAttrs(req.ProjectID, req.TaskID, req.UserID)...)
	defer func() { telemetry.End(span, err) }()

	var (
		algorithm string
		childIDs  []int64
	)
	err = s.store.Transaction(ctx, func(tx *repos.Store) error {
		parent, err := tx.Tasks.GetForUpdate(ctx, req.ProjectID, req.TaskID)
		if err != nil {
			if repos.IsNotFound(err) {
				return TaskNotFound(req.ProjectID, req.TaskID)
			}
			return err
		}
		if err := s.checkSplittable(parent, req.UserID); err != nil {
			return err
		}

		var features []*geojson.Feature
		features, algorithm, err = s.deriveChildren(parent)
		if err != nil {
			return err
		}

		childIDs, err = s.materialize(ctx, tx, parent, features, req.UserID)
		if err != nil {
			return err
		}
		return RecomputeCounters(ctx, tx, req.ProjectID)
	})
	if algorithm != "" {
		s.tel.Metrics.RecordSplit(ctx, algorithm, err)
	}
	if err != nil {
		logger.WarnWithFields("Task split failed", logger.Fields{
			"project_id": req.ProjectID,
			"task_id":    req.TaskID,
			"user_id":    req.UserID,
			"error":      err.Error(),
		})
		return nil, boundary(err)
	}

	if s.events != nil {
		s.events.Publish(events.Event{
			Type:      events.EventTaskSplit,
			ProjectID: req.ProjectID,
			TaskID:    req.TaskID,
			UserID:    req.UserID,
			Status:    models.TaskStatusSplit.String(),
			Children:  childIDs,
			At:        s.clock(),
		})
	}

	logger.InfoWithFields("Task split", logger.Fields{
		"project_id": req.ProjectID,
		"task_id":    req.TaskID,
		"user_id":    req.UserID,
		"algorithm":  algorithm,
		"children":   childIDs,
	})

	resp := &types.SplitResponse{Tasks: make([]types.TaskSummary, 0, len(childIDs))}
	for _, id := range childIDs {
		summary, err := s.GetSummary(ctx, req.ProjectID, id, req.PreferredLocale)
		if err != nil {
			return nil, err
		}
		resp.Tasks = append(resp.Tasks, *summary)
	}
	return resp, nil
}

// checkSplittable applies the split preconditions in order: size, lock, owner
func (s *Task) checkSplittable(task *models.Task, userID int64) error {
	area := s.ops.AreaM2(task.Geometry.Orb())
	if area < s.minSplitAreaM2 || (task.Zoom != nil && *task.Zoom >= s.maxSplitZoom) {
		return newError(KindIllegalTransition, SubCodeSmallToSplit,
			"task %d is too small to split (%.0f m²)", task.ID, area)
	}
	if task.Status != models.TaskStatusLockedForMapping {
		return newError(KindIllegalTransition, SubCodeLockToSplit,
			"task %d must be locked for mapping to be split", task.ID)
	}
	if task.LockedBy == nil || *task.LockedBy != userID {
		return newError(KindIllegalTransition, SubCodeSplitOtherUserTask,
			"task %d is locked by another user", task.ID)
	}
	return nil
}

// deriveChildren subdivides tile squares on the tile grid and quarters
// everything else through its centroid.
func (s *Task) deriveChildren(task *models.Task) ([]*geojson.Feature, string, error) {
	parent := task.Geometry.Orb()

	var (
		features  []*geojson.Feature
		algorithm string
		err       error
	)
	if task.IsTileAligned() && task.IsSquare {
		algorithm = SplitAlgorithmTile
		features, err = s.splitter.SplitTile(grid.Tile{X: *task.X, Y: *task.Y, Zoom: *task.Zoom})
	} else {
		algorithm = SplitAlgorithmPolygon
		features, err = s.splitter.SplitPolygon(parent)
	}
	if err != nil {
		return nil, algorithm, InvalidGeoJSON(err)
	}
	if err := s.splitter.CheckChildren(parent, features); err != nil {
		return nil, algorithm, InvalidGeoJSON(err)
	}
	return features, algorithm, nil
}

// materialize creates the children in order, then removes the parent. If the
// parent cannot be removed the children are deleted again before returning.
func (s *Task) materialize(ctx context.Context, tx *repos.Store, parent *models.Task, features []*geojson.Feature, userID int64) ([]int64, error) {
	maxID, err := tx.Tasks.MaxID(ctx, parent.ProjectID)
	if err != nil {
		return nil, err
	}
	history, err := tx.History.ListByTask(ctx, parent.ProjectID, parent.ID, false)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	childIDs := make([]int64, 0, len(features))
	for i, f := range features {
		child, err := TaskFromFeature(s.ops, maxID+int64(i)+1, f)
		if err != nil {
			return nil, err
		}
		child.ProjectID = parent.ProjectID
		child.Status = models.TaskStatusReady
		child.ExtraProperties = parent.ExtraProperties
		if child.TaskPriority, err = s.childPriority(ctx, parent, child); err != nil {
			return nil, err
		}
		if err := tx.Tasks.Create(ctx, child); err != nil {
			return nil, fmt.Errorf("create child task %d: %w", child.ID, err)
		}
		childIDs = append(childIDs, child.ID)

		if err := copyHistory(ctx, tx, history, child.ID); err != nil {
			return nil, err
		}
		open, err := tx.History.LatestOpenLock(ctx, child.ProjectID, child.ID)
		if err != nil {
			return nil, err
		}
		if open != nil {
			if _, err := s.clearTaskLock(ctx, tx, child); err != nil {
				return nil, err
			}
		}

		for _, status := range []models.TaskStatus{models.TaskStatusSplit, models.TaskStatusReady} {
			if err := s.appendHistory(ctx, tx, child, userID, models.TaskActionStateChange, status.String(), now); err != nil {
				return nil, err
			}
		}
		if _, err := tx.Tasks.UpdateIf(ctx, child.ProjectID, child.ID, repos.TaskCondition{},
			map[string]interface{}{
				models.TaskStatusField:   models.TaskStatusReady,
				models.TaskLockedByField: nil,
			}); err != nil {
			return nil, err
		}
	}

	changed, err := tx.Tasks.UpdateIf(ctx, parent.ProjectID, parent.ID,
		repos.TaskCondition{Statuses: []models.TaskStatus{models.TaskStatusLockedForMapping}, LockedBy: &userID},
		map[string]interface{}{
			models.TaskStatusField:   models.TaskStatusSplit,
			models.TaskLockedByField: nil,
		})
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, newError(KindIllegalTransition, SubCodeLockToSplit,
			"task %d was unlocked while splitting", parent.ID)
	}

	if err := s.removeParent(ctx, tx, parent); err != nil {
		cerr := errors.Join(
			tx.History.DeleteByTasks(ctx, parent.ProjectID, childIDs),
			tx.Tasks.DeleteMany(ctx, parent.ProjectID, childIDs),
		)
		if cerr != nil {
			logger.ErrorWithFields("Failed to remove split children", logger.Fields{
				"project_id": parent.ProjectID,
				"children":   childIDs,
				"error":      cerr.Error(),
			})
		}
		return nil, errors.Join(fmt.Errorf("delete split task %d: %w", parent.ID, err), cerr)
	}
	return childIDs, nil
}

func (s *Task) removeParent(ctx context.Context, tx *repos.Store, parent *models.Task) error {
	if err := tx.History.DeleteByTasks(ctx, parent.ProjectID, []int64{parent.ID}); err != nil {
		return err
	}
	return tx.Tasks.Delete(ctx, parent.ProjectID, parent.ID)
}

func (s *Task) childPriority(ctx context.Context, parent, child *models.Task) (*int, error) {
	if s.priorities != nil {
		p, ok, err := s.priorities.ResolvePriority(ctx, parent.ProjectID, child.Geometry.Orb())
		if err != nil {
			return nil, fmt.Errorf("resolve priority of child %d: %w", child.ID, err)
		}
		if ok {
			return p, nil
		}
	}
	return parent.TaskPriority, nil
}

func copyHistory(ctx context.Context, tx *repos.Store, rows []models.TaskHistory, taskID int64) error {
	if len(rows) == 0 {
		return nil
	}
	copies := make([]*models.TaskHistory, 0, len(rows))
	for _, r := range rows {
		c := r
		c.ID = 0
		c.TaskID = taskID
		copies = append(copies, &c)
	}
	return tx.History.CreateBatch(ctx, copies)
}
