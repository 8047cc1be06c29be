package repos

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/openmapping/tasking/internal/db/dbtest"
	"github.com/openmapping/tasking/internal/db/models"
)

type TaskRepositoryTestSuite struct {
	DBRepositoryTestSuite
}

func TestTaskRepository(t *testing.T) {
	suite.Run(t, new(TaskRepositoryTestSuite))
}

func (s *TaskRepositoryTestSuite) TestCreateAndGet() {
	x, y, z := 1010, 1399, 11
	task := &models.Task{
		ID:              7,
		ProjectID:       s.project.ID,
		X:               &x,
		Y:               &y,
		Zoom:            &z,
		IsSquare:        true,
		Geometry:        dbtest.Square(10, 10, 0.01),
		ExtraProperties: map[string]interface{}{"building": "yes"},
	}
	s.Require().NoError(s.store.Tasks.Create(s.ctx, task))
	s.Equal(models.TaskStatusReady, task.Status)

	got, err := s.store.Tasks.Get(s.ctx, s.project.ID, 7)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusReady, got.Status)
	s.True(got.IsSquare)
	s.True(got.IsTileAligned())
	s.Equal(1399, *got.Y)
	s.Equal("yes", got.ExtraProperties["building"])
	s.Equal(task.Geometry.Orb(), got.Geometry.Orb())
	s.Nil(got.LockedBy)
}

func (s *TaskRepositoryTestSuite) TestGetMissing() {
	_, err := s.store.Tasks.Get(s.ctx, s.project.ID, 99)
	s.True(IsNotFound(err))

	_, err = s.store.Tasks.GetForUpdate(s.ctx, s.project.ID, 99)
	s.True(IsNotFound(err))
}

func (s *TaskRepositoryTestSuite) TestCreateRejectsLockWithoutHolder() {
	err := s.store.Tasks.Create(s.ctx, &models.Task{
		ID:        1,
		ProjectID: s.project.ID,
		Geometry:  dbtest.Square(0, 0, 1),
		Status:    models.TaskStatusLockedForMapping,
	})
	s.Error(err)
}

func (s *TaskRepositoryTestSuite) TestListAndMaxID() {
	maxID, err := s.store.Tasks.MaxID(s.ctx, s.project.ID)
	s.Require().NoError(err)
	s.Zero(maxID)

	s.Require().NoError(s.store.Tasks.CreateBatch(s.ctx, []*models.Task{
		{ID: 3, ProjectID: s.project.ID, Geometry: dbtest.Square(0, 0, 1)},
		{ID: 1, ProjectID: s.project.ID, Geometry: dbtest.Square(0, 0, 1)},
		{ID: 2, ProjectID: s.project.ID, Geometry: dbtest.Square(0, 0, 1), Status: models.TaskStatusMapped},
	}))

	tasks, err := s.store.Tasks.List(s.ctx, s.project.ID, nil)
	s.Require().NoError(err)
	s.Require().Len(tasks, 3)
	s.Equal([]int64{1, 2, 3}, []int64{tasks[0].ID, tasks[1].ID, tasks[2].ID})

	mapped, err := s.store.Tasks.List(s.ctx, s.project.ID, &models.ListOptions{
		Statuses: []models.TaskStatus{models.TaskStatusMapped},
	})
	s.Require().NoError(err)
	s.Require().Len(mapped, 1)
	s.EqualValues(2, mapped[0].ID)

	page, err := s.store.Tasks.List(s.ctx, s.project.ID, &models.ListOptions{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.EqualValues(2, page[0].ID)

	maxID, err = s.store.Tasks.MaxID(s.ctx, s.project.ID)
	s.Require().NoError(err)
	s.EqualValues(3, maxID)
}

func (s *TaskRepositoryTestSuite) TestUpdateIf() {
	s.createTestTask(1)
	lock := map[string]interface{}{
		models.TaskStatusField:   models.TaskStatusLockedForMapping,
		models.TaskLockedByField: s.mapper.ID,
	}
	cond := TaskCondition{Statuses: models.MappableStatuses, Unlocked: true}

	ok, err := s.store.Tasks.UpdateIf(s.ctx, s.project.ID, 1, cond, lock)
	s.Require().NoError(err)
	s.True(ok)

	// A second lock attempt loses the compare-and-set
	ok, err = s.store.Tasks.UpdateIf(s.ctx, s.project.ID, 1, cond, map[string]interface{}{
		models.TaskStatusField:   models.TaskStatusLockedForMapping,
		models.TaskLockedByField: s.other.ID,
	})
	s.Require().NoError(err)
	s.False(ok)

	// Only the holder may release
	release := map[string]interface{}{
		models.TaskStatusField:   models.TaskStatusMapped,
		models.TaskLockedByField: nil,
	}
	ok, err = s.store.Tasks.UpdateIf(s.ctx, s.project.ID, 1, TaskCondition{LockedBy: &s.other.ID}, release)
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.store.Tasks.UpdateIf(s.ctx, s.project.ID, 1, TaskCondition{LockedBy: &s.mapper.ID}, release)
	s.Require().NoError(err)
	s.True(ok)

	got, err := s.store.Tasks.Get(s.ctx, s.project.ID, 1)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusMapped, got.Status)
	s.Nil(got.LockedBy)
}

func (s *TaskRepositoryTestSuite) TestDelete() {
	s.createTestTask(1)
	s.createTestTask(2)
	s.createTestTask(3)

	s.Require().NoError(s.store.Tasks.Delete(s.ctx, s.project.ID, 1))
	s.True(IsNotFound(s.store.Tasks.Delete(s.ctx, s.project.ID, 1)))

	s.Require().NoError(s.store.Tasks.DeleteMany(s.ctx, s.project.ID, []int64{2, 3}))
	tasks, err := s.store.Tasks.List(s.ctx, s.project.ID, nil)
	s.Require().NoError(err)
	s.Empty(tasks)
}

func (s *TaskRepositoryTestSuite) TestCountsAndLockedProjects() {
	s.createTestTask(1)
	s.createTestTask(2)
	s.createLockedTask(3, s.mapper.ID)

	counts, err := s.store.Tasks.CountByStatus(s.ctx, s.project.ID)
	s.Require().NoError(err)
	byStatus := map[models.TaskStatus]int64{}
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}
	s.EqualValues(2, byStatus[models.TaskStatusReady])
	s.EqualValues(1, byStatus[models.TaskStatusLockedForMapping])

	ids, err := s.store.Tasks.ProjectIDsWithLockedTasks(s.ctx)
	s.Require().NoError(err)
	s.Equal([]int64{s.project.ID}, ids)
}

func (s *TaskRepositoryTestSuite) TestTransactionRollsBack() {
	err := s.store.Transaction(s.ctx, func(tx *Store) error {
		s.Require().NoError(tx.Tasks.Create(s.ctx, &models.Task{
			ID: 1, ProjectID: s.project.ID, Geometry: dbtest.Square(0, 0, 1),
		}))
		return tx.Tasks.Delete(s.ctx, s.project.ID, 42)
	})
	s.True(IsNotFound(err))

	_, err = s.store.Tasks.Get(s.ctx, s.project.ID, 1)
	s.True(IsNotFound(err))
}
