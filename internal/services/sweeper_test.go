package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/openmapping/tasking/internal/db/dbtest"
	"github.com/openmapping/tasking/internal/db/models"
)

type SweeperTestSuite struct {
	ServiceTestSuite
}

func TestSweeper(t *testing.T) {
	suite.Run(t, new(SweeperTestSuite))
}

func (s *SweeperTestSuite) TestRunOnceSweepsEveryProject() {
	second := dbtest.CreateProject(s.T(), s.db, "second", "")
	s.createTask(1, 0.01)
	dbtest.CreateTask(s.T(), s.db, &models.Task{ID: 1, ProjectID: second.ID, Geometry: dbtest.Square(0, 0, 0.01)})

	_, err := s.tasks.LockForMapping(s.ctx, s.lockReq(1, s.mapper.ID))
	s.Require().NoError(err)
	_, err = s.tasks.LockForMapping(s.ctx, LockRequest{UserID: s.other.ID, ProjectID: second.ID, TaskID: 1})
	s.Require().NoError(err)

	sweeper := NewSweeper(s.store, s.tasks, "")
	n, err := sweeper.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	s.clock.Advance(DefaultLockTimeout + time.Minute)
	n, err = sweeper.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	ids, err := s.store.Tasks.ProjectIDsWithLockedTasks(s.ctx)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *SweeperTestSuite) TestRunOnceHonoursCancellation() {
	s.createTask(1, 0.01)
	_, err := s.tasks.LockForMapping(s.ctx, s.lockReq(1, s.mapper.ID))
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err = NewSweeper(s.store, s.tasks, "").RunOnce(ctx)
	s.Error(err)
}

func (s *SweeperTestSuite) TestStartRejectsInvalidSchedule() {
	err := NewSweeper(s.store, s.tasks, "every now and then").Start(s.ctx)
	s.Error(err)
}

func (s *SweeperTestSuite) TestLaunchSweeperStopsOnCancel() {
	ctx, cancel := context.WithCancel(s.ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go LaunchSweeper(ctx, &wg, NewSweeper(s.store, s.tasks, "@every 1h"))
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.Fail("sweeper did not stop")
	}
}
