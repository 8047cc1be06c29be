package test

import (
	"net/http/httptest"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/openmapping/tasking/internal/app"
	"github.com/openmapping/tasking/internal/services"
	"github.com/openmapping/tasking/pkg/api/v1/client"
)

// testClientTimeout is the timeout for test API client requests
const testClientTimeout = 5 * time.Second

// SetupServer configures the test suite with the services and a real API server
func SetupServer(suite *Suite) {
	opts := append([]services.Option{services.WithClock(suite.Clock.Now)}, suite.taskOpts...)
	suite.Projects = services.NewProjectService(suite.Store)
	suite.Tasks = services.NewTaskService(suite.Store, opts...)

	suite.App = app.New(suite.Projects, suite.Tasks)

	// Create test server using adaptor to convert Fiber app to http.Handler
	suite.Server = httptest.NewServer(adaptor.FiberApp(suite.App))

	apiClient, err := client.NewClient(&client.Options{
		BaseURL: suite.Server.URL,
		Timeout: testClientTimeout,
	})
	suite.Require().NoError(err, "Failed to create API client")
	suite.APIClient = apiClient

	oldCleanup := suite.cleanup
	suite.cleanup = func() {
		if suite.Server != nil {
			suite.Server.Close()
		}
		if oldCleanup != nil {
			oldCleanup()
		}
	}
}
