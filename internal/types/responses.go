package types

// PaginationResponse represents pagination information for list endpoints
// swagger:model
// Example: {"total":42,"page":1,"limit":100,"offset":0}
type PaginationResponse struct {
	// Number of items returned in this page
	Total int `json:"total"`

	// Current page number (1-based)
	Page int `json:"page"`

	// Maximum number of items per page
	Limit int `json:"limit"`

	// Number of items skipped from the beginning of the result set
	Offset int `json:"offset"`
}

// ListResponse defines a generic response structure for listing resources
// swagger:model
// Example: {"rows":[{"task_id":1,"project_id":1,"status":"READY"}],"pagination":{"total":1,"page":1,"limit":100,"offset":0}}
type ListResponse[T any] struct {
	// Array of resource items
	Rows []T `json:"rows"`

	// Pagination information for the result set
	Pagination PaginationResponse `json:"pagination"`
}

// HealthResponse is returned by the health endpoint
// swagger:model
// Example: {"status":"healthy"}
type HealthResponse struct {
	Status string `json:"status"`
}
