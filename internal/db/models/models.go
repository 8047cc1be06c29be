// Package models contains the persisted types of the tasking store.
package models

const (
	// DefaultLimit is the max number of rows that are retrieved from the DB per listing call
	DefaultLimit = 50
)

// ListOptions represents pagination and filtering options for list operations
type ListOptions struct {
	Limit    int          `json:"limit"`
	Offset   int          `json:"offset"`
	Statuses []TaskStatus `json:"statuses,omitempty"`
}

// All returns every model migrated by the store, in dependency order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Project{},
		&ProjectInfo{},
		&Task{},
		&TaskHistory{},
	}
}
