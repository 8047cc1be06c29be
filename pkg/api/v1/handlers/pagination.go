package handlers

import "github.com/openmapping/tasking/internal/db/models"

const (
	// DefaultPageSize is the default number of items per page
	DefaultPageSize = 100
)

// getPaginationOptions returns a ListOptions struct with validated pagination parameters
func getPaginationOptions(page int, statuses ...models.TaskStatus) *models.ListOptions {
	if page < 1 {
		page = 1
	}

	return &models.ListOptions{
		Limit:    DefaultPageSize,
		Offset:   (page - 1) * DefaultPageSize,
		Statuses: statuses,
	}
}
