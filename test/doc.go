// Package test provides infrastructure and utilities for integration testing of
// the tasking API.
//
// The package provides:
//
//   - Suite: a complete test setup with a file backed SQLite database, the real
//     services, a real API server and a real API client
//
//   - Clock: a settable clock injected into the task service so lock durations
//     and stale lock timeouts can be tested without sleeping
//
//   - Fixtures: helpers that seed users, projects and tasks directly in the
//     database
//
// Example Usage:
//
//	func TestExample(t *testing.T) {
//	    suite := test.NewSuite(t)
//	    defer suite.Cleanup()
//
//	    project := suite.CreateProject("roads", "Trace {z}/{x}/{y}")
//	    mapper := suite.CreateUser("mapper")
//	    suite.CreateTask(project.ID, 1, 1.0)
//
//	    // Use suite.APIClient to make requests
//	}
package test
