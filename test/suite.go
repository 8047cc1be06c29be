package test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openmapping/tasking/internal/db/dbtest"
	"github.com/openmapping/tasking/internal/db/models"
	"github.com/openmapping/tasking/internal/db/repos"
	"github.com/openmapping/tasking/internal/services"
	"github.com/openmapping/tasking/pkg/api/v1/client"
)

// Suite encapsulates all components needed for integration testing.
// It provides a complete test setup with:
//   - File backed SQLite database
//   - Real services driven by a manual clock
//   - Real API server
//   - Real API client
type Suite struct {
	t *testing.T // The testing.T instance for this suite

	// Server components
	App    *fiber.App
	Server *httptest.Server

	// Client components
	APIClient client.Client

	// Database components
	DB    *gorm.DB
	Store *repos.Store

	// Services
	Projects *services.Project
	Tasks    *services.Task
	Clock    *Clock

	taskOpts []services.Option

	// Context management
	ctx        context.Context
	cancelFunc context.CancelFunc

	// Cleanup function
	cleanup func()
}

// SetT sets the testing.T instance for this suite
func (s *Suite) SetT(t *testing.T) {
	s.t = t
}

// T returns the testing.T instance for this suite
func (s *Suite) T() *testing.T {
	return s.t
}

// NewSuite creates a new test suite with the given options.
// The suite must be cleaned up after use by calling Cleanup.
func NewSuite(t *testing.T, opts ...Option) *Suite {
	t.Helper()

	// Create suite with default timeout
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)

	suite := &Suite{
		t:          t,
		ctx:        ctx,
		cancelFunc: cancel,
		Clock:      NewClock(DefaultStartTime),
	}

	// Context is canceled last
	suite.cleanup = func() {
		if suite.cancelFunc != nil {
			suite.cancelFunc()
		}
	}

	for _, opt := range opts {
		opt(suite)
	}

	// Setup database by default
	SetupTestDB(suite, nil)

	// Setup server by default
	SetupServer(suite)

	return suite
}

// Cleanup tears down the test suite, releasing all resources.
// This should be deferred immediately after creating the suite.
func (s *Suite) Cleanup() {
	if s.cleanup != nil {
		cleanup := s.cleanup
		s.cleanup = nil
		cleanup()
	}
}

// Context returns the suite's context, which is automatically
// canceled when the suite is cleaned up.
func (s *Suite) Context() context.Context {
	return s.ctx
}

// Require returns a require.Assertions instance for this suite.
// This is a convenience method to avoid passing t around.
func (s *Suite) Require() *require.Assertions {
	return require.New(s.t)
}

// Retry retries a function until it succeeds or the number of retries is reached.
func (s *Suite) Retry(fn func() error, retries int, interval time.Duration) (err error) {
	for i := 0; i < retries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		time.Sleep(interval)
	}
	return
}

// CreateUser seeds a user
func (s *Suite) CreateUser(username string) *models.User {
	return dbtest.CreateUser(s.t, s.DB, username)
}

// CreateProject seeds a published project with English instructions
func (s *Suite) CreateProject(name, instructions string) *models.Project {
	return dbtest.CreateProject(s.t, s.DB, name, instructions)
}

// CreateTask seeds a READY square task of the given size in degrees and
// recounts the project counters.
func (s *Suite) CreateTask(projectID, taskID int64, size float64) *models.Task {
	task := dbtest.CreateTask(s.t, s.DB, &models.Task{
		ID:        taskID,
		ProjectID: projectID,
		Geometry:  dbtest.Square(10, 10, size),
	})
	s.Require().NoError(services.RecomputeCounters(s.ctx, s.Store, projectID))
	return task
}
