package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/openmapping/tasking/internal/db/dbtest"
	"github.com/openmapping/tasking/internal/db/models"
	"github.com/openmapping/tasking/internal/db/repos"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ServiceTestSuite provides a migrated store, a project, three users and a
// task service running on a fake clock.
type ServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	ctx     context.Context
	store   *repos.Store
	clock   *fakeClock
	tasks   *Task
	project *models.Project
	mapper  *models.User
	checker *models.User
	other   *models.User
}

func (s *ServiceTestSuite) SetupTest() {
	s.db = dbtest.NewSQLite(s.T())
	s.ctx = context.Background()
	s.store = repos.NewStore(s.db)
	s.clock = &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	s.tasks = NewTaskService(s.store, WithClock(s.clock.Now))

	s.project = dbtest.CreateProject(s.T(), s.db, "flood-response", "Trace {z}/{x}/{y}")
	s.mapper = dbtest.CreateUser(s.T(), s.db, "mapper")
	s.checker = dbtest.CreateUser(s.T(), s.db, "checker")
	s.other = dbtest.CreateUser(s.T(), s.db, "other")
}

// createTask inserts a READY task covering a square of size degrees
func (s *ServiceTestSuite) createTask(id int64, size float64) *models.Task {
	return dbtest.CreateTask(s.T(), s.db, &models.Task{
		ID:        id,
		ProjectID: s.project.ID,
		Geometry:  dbtest.Square(10, 10, size),
	})
}

func (s *ServiceTestSuite) lockReq(taskID, userID int64) LockRequest {
	return LockRequest{UserID: userID, ProjectID: s.project.ID, TaskID: taskID}
}

func (s *ServiceTestSuite) unlockReq(taskID, userID int64, status models.TaskStatus) UnlockRequest {
	return UnlockRequest{UserID: userID, ProjectID: s.project.ID, TaskID: taskID, NewStatus: status}
}

func (s *ServiceTestSuite) getTask(id int64) *models.Task {
	task, err := s.store.Tasks.Get(s.ctx, s.project.ID, id)
	s.Require().NoError(err)
	return task
}

func (s *ServiceTestSuite) history(id int64) []models.TaskHistory {
	rows, err := s.store.History.ListByTask(s.ctx, s.project.ID, id, false)
	s.Require().NoError(err)
	return rows
}

func (s *ServiceTestSuite) requireSubCode(err error, subCode string) {
	s.T().Helper()
	s.Require().Error(err)
	var e *Error
	s.Require().True(errors.As(err, &e), "expected *services.Error, got %T: %v", err, err)
	s.Require().Equal(subCode, e.SubCode, "unexpected error: %v", err)
}
