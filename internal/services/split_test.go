package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/openmapping/tasking/internal/db/models"
	"github.com/openmapping/tasking/internal/geometry"
)

type SplitTestSuite struct {
	ServiceTestSuite
}

func TestSplit(t *testing.T) {
	suite.Run(t, new(SplitTestSuite))
}

func (s *SplitTestSuite) splitReq(taskID, userID int64) SplitRequest {
	return SplitRequest{UserID: userID, ProjectID: s.project.ID, TaskID: taskID, PreferredLocale: "en"}
}

func (s *SplitTestSuite) createTileTask(id int64, x, y, z int) *models.Task {
	envelope, err := geometry.TileEnvelope(x, y, z)
	s.Require().NoError(err)
	priority := 3
	task := &models.Task{
		ID:              id,
		ProjectID:       s.project.ID,
		X:               &x,
		Y:               &y,
		Zoom:            &z,
		IsSquare:        true,
		Geometry:        models.MultiPolygon(envelope),
		TaskPriority:    &priority,
		ExtraProperties: map[string]interface{}{"area": "harbour"},
	}
	s.Require().NoError(s.store.Tasks.Create(s.ctx, task))
	return task
}

func (s *SplitTestSuite) lock(taskID, userID int64) {
	_, err := s.tasks.LockForMapping(s.ctx, s.lockReq(taskID, userID))
	s.Require().NoError(err)
}

func (s *SplitTestSuite) counters() *models.Project {
	p, err := s.store.Projects.Get(s.ctx, s.project.ID)
	s.Require().NoError(err)
	return p
}

func (s *SplitTestSuite) TestSplitTileAlignedTask() {
	s.createTask(1, 0.01)
	s.createTileTask(2, 1010, 1399, 11)
	s.Require().NoError(RecomputeCounters(s.ctx, s.store, s.project.ID))

	s.lock(2, s.mapper.ID)
	_, err := s.tasks.Unlock(s.ctx, s.unlockReq(2, s.mapper.ID, models.TaskStatusBadImagery))
	s.Require().NoError(err)
	s.lock(2, s.mapper.ID)

	resp, err := s.tasks.SplitTask(s.ctx, s.splitReq(2, s.mapper.ID))
	s.Require().NoError(err)
	s.Require().Len(resp.Tasks, 4)

	expected := [][3]int{{2020, 2798, 12}, {2020, 2799, 12}, {2021, 2798, 12}, {2021, 2799, 12}}
	for i, summary := range resp.Tasks {
		s.EqualValues(3+i, summary.TaskID)
		s.Equal(models.TaskStatusReady, summary.Status)
		s.True(summary.IsSquare)
		s.Equal(expected[i][0], *summary.X)
		s.Equal(expected[i][1], *summary.Y)
		s.Equal(expected[i][2], *summary.Zoom)
		s.Empty(summary.LockHolderUsername)

		child := s.getTask(summary.TaskID)
		s.Nil(child.LockedBy)
		s.Equal(3, *child.TaskPriority)
		s.Equal("harbour", child.ExtraProperties["area"])

		rows := s.history(summary.TaskID)
		s.Require().Len(rows, 4, "child %d", summary.TaskID)
		s.Equal(models.TaskActionLockedForMapping, rows[0].Action)
		s.Equal("BADIMAGERY", rows[1].Text())
		s.Equal("SPLIT", rows[2].Text())
		s.Equal("READY", rows[3].Text())
		s.Equal(s.mapper.ID, rows[3].UserID)
		for _, r := range rows {
			s.False(r.IsOpenLock())
		}
	}

	_, err = s.store.Tasks.Get(s.ctx, s.project.ID, 2)
	s.True(errors.Is(err, gorm.ErrRecordNotFound))
	s.Empty(s.history(2))

	p := s.counters()
	s.EqualValues(5, p.TotalTasks)
	s.EqualValues(0, p.TasksBadImagery)
}

func (s *SplitTestSuite) TestSplitPolygonTask() {
	pentagon := orb.MultiPolygon{{orb.Ring{
		{10, 10}, {10.08, 10}, {10.1, 10.06}, {10.04, 10.1}, {9.98, 10.06}, {10, 10},
	}}}
	s.Require().NoError(s.store.Tasks.Create(s.ctx, &models.Task{
		ID: 1, ProjectID: s.project.ID, Geometry: models.MultiPolygon(pentagon),
	}))
	s.lock(1, s.mapper.ID)

	resp, err := s.tasks.SplitTask(s.ctx, s.splitReq(1, s.mapper.ID))
	s.Require().NoError(err)
	s.Require().Len(resp.Tasks, 4)

	var area float64
	for _, summary := range resp.Tasks {
		s.Nil(summary.X)
		s.Nil(summary.Y)
		s.Nil(summary.Zoom)
		s.False(summary.IsSquare)
		child := s.getTask(summary.TaskID)
		_, err := s.tasks.ops.ValidateMultiPolygon(child.Geometry.Orb())
		s.Require().NoError(err, "child %d", summary.TaskID)
		area += planar.Area(child.Geometry.Orb())
	}
	s.InDelta(planar.Area(pentagon), area, 1e-12)
	s.EqualValues(4, s.counters().TotalTasks)
}

func (s *SplitTestSuite) TestSplitTaskWithCentredHole() {
	holed := orb.MultiPolygon{{
		{{10, 10}, {10.1, 10}, {10.1, 10.1}, {10, 10.1}, {10, 10}},
		{{10.04, 10.04}, {10.04, 10.06}, {10.06, 10.06}, {10.06, 10.04}, {10.04, 10.04}},
	}}
	s.Require().NoError(s.store.Tasks.Create(s.ctx, &models.Task{
		ID: 1, ProjectID: s.project.ID, Geometry: models.MultiPolygon(holed),
	}))
	s.lock(1, s.mapper.ID)

	resp, err := s.tasks.SplitTask(s.ctx, s.splitReq(1, s.mapper.ID))
	s.Require().NoError(err)
	s.Require().Len(resp.Tasks, 4)

	var area float64
	for _, summary := range resp.Tasks {
		child := s.getTask(summary.TaskID)
		_, err := s.tasks.ops.ValidateMultiPolygon(child.Geometry.Orb())
		s.Require().NoError(err, "child %d", summary.TaskID)
		area += planar.Area(child.Geometry.Orb())
	}
	s.InDelta(planar.Area(holed), area, 1e-12)
}

func (s *SplitTestSuite) TestSplitTooSmall() {
	s.createTask(1, 0.001)
	s.lock(1, s.mapper.ID)

	_, err := s.tasks.SplitTask(s.ctx, s.splitReq(1, s.mapper.ID))
	s.requireSubCode(err, SubCodeSmallToSplit)
	s.Equal(models.TaskStatusLockedForMapping, s.getTask(1).Status)
	s.Len(s.history(1), 1)
}

func (s *SplitTestSuite) TestSplitRejectsMaxZoom() {
	task := s.createTileTask(1, 0, 0, 18)
	// A large geometry does not lift the zoom limit
	task.Geometry = models.MultiPolygon{{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}}
	s.Require().NoError(s.db.Save(task).Error)
	s.lock(1, s.mapper.ID)

	_, err := s.tasks.SplitTask(s.ctx, s.splitReq(1, s.mapper.ID))
	s.requireSubCode(err, SubCodeSmallToSplit)
}

func (s *SplitTestSuite) TestSplitPreconditionOrder() {
	_, err := s.tasks.SplitTask(s.ctx, s.splitReq(9, s.mapper.ID))
	s.requireSubCode(err, SubCodeTaskNotFound)

	// Too small wins over the lock checks
	s.createTask(1, 0.001)
	_, err = s.tasks.SplitTask(s.ctx, s.splitReq(1, s.other.ID))
	s.requireSubCode(err, SubCodeSmallToSplit)

	s.createTask(2, 0.01)
	_, err = s.tasks.SplitTask(s.ctx, s.splitReq(2, s.mapper.ID))
	s.requireSubCode(err, SubCodeLockToSplit)

	s.lock(2, s.mapper.ID)
	_, err = s.tasks.SplitTask(s.ctx, s.splitReq(2, s.other.ID))
	s.requireSubCode(err, SubCodeSplitOtherUserTask)

	task := s.getTask(2)
	s.Equal(models.TaskStatusLockedForMapping, task.Status)
	s.Equal(s.mapper.ID, *task.LockedBy)
	maxID, err := s.store.Tasks.MaxID(s.ctx, s.project.ID)
	s.Require().NoError(err)
	s.EqualValues(2, maxID)
}

func (s *SplitTestSuite) TestSplitValidationLockIsRejected() {
	s.createTask(1, 0.01)
	_, err := s.tasks.LockForValidation(s.ctx, s.lockReq(1, s.checker.ID))
	s.Require().NoError(err)

	_, err = s.tasks.SplitTask(s.ctx, s.splitReq(1, s.checker.ID))
	s.requireSubCode(err, SubCodeLockToSplit)
}

func (s *SplitTestSuite) TestSplitRollsBackWhenParentDeleteFails() {
	s.createTask(1, 0.01)
	s.createTask(2, 0.01)
	s.Require().NoError(RecomputeCounters(s.ctx, s.store, s.project.ID))
	s.lock(2, s.mapper.ID)

	injected := errors.New("injected delete failure")
	err := s.db.Callback().Delete().After("gorm:delete").Register("test:fail_single_task_delete", func(tx *gorm.DB) {
		if tx.Statement.Table == "tasks" && !strings.Contains(tx.Statement.SQL.String(), " IN ") {
			_ = tx.AddError(injected)
		}
	})
	s.Require().NoError(err)

	_, err = s.tasks.SplitTask(s.ctx, s.splitReq(2, s.mapper.ID))
	s.Require().Error(err)
	s.Equal(SubCodeUnhandled, AsError(err).SubCode)
	s.ErrorIs(err, injected)

	tasks, err := s.store.Tasks.List(s.ctx, s.project.ID, nil)
	s.Require().NoError(err)
	s.Require().Len(tasks, 2)
	s.Equal(models.TaskStatusLockedForMapping, tasks[1].Status)
	s.Len(s.history(2), 1)
	for id := int64(3); id <= 6; id++ {
		s.Empty(s.history(id))
	}
	s.EqualValues(2, s.counters().TotalTasks)
}

type fixedPriority struct {
	priority int
	calls    int
}

func (f *fixedPriority) ResolvePriority(_ context.Context, _ int64, child orb.MultiPolygon) (*int, bool, error) {
	f.calls++
	// Only children west of the parent centroid fall inside the priority area
	if child.Bound().Max[0] > 10.0051 {
		return nil, false, nil
	}
	return &f.priority, true, nil
}

func (s *SplitTestSuite) TestSplitPriorityResolver() {
	resolver := &fixedPriority{priority: 1}
	s.tasks = NewTaskService(s.store, WithClock(s.clock.Now), WithPriorityResolver(resolver))

	priority := 5
	s.Require().NoError(s.store.Tasks.Create(s.ctx, &models.Task{
		ID: 1, ProjectID: s.project.ID, Geometry: s.createSquare(), TaskPriority: &priority,
	}))
	s.lock(1, s.mapper.ID)

	resp, err := s.tasks.SplitTask(s.ctx, s.splitReq(1, s.mapper.ID))
	s.Require().NoError(err)
	s.Equal(4, resolver.calls)

	got := map[int]int{}
	for _, summary := range resp.Tasks {
		got[*s.getTask(summary.TaskID).TaskPriority]++
	}
	s.Equal(map[int]int{1: 2, 5: 2}, got)
}

func (s *SplitTestSuite) createSquare() models.MultiPolygon {
	return models.MultiPolygon{{orb.Ring{{10, 10}, {10.01, 10}, {10.01, 10.01}, {10, 10.01}, {10, 10}}}}
}
