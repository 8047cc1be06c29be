// Package models contains PUBLIC aliases for database models and related types.
//
// NOTE: This package uses type aliases to internal definitions
// as a temporary measure. This should be revisited
// during a proper refactoring to define stable public types.
package models

import (
	internalmodels "github.com/openmapping/tasking/internal/db/models"
)

// ListOptions represents pagination and filtering options for list operations
type ListOptions = internalmodels.ListOptions
