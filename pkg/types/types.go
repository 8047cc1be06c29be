// Package types contains PUBLIC aliases for internal request/response structs.
//
// NOTE: This package uses type aliases to internal definitions
// as a temporary measure. This should be revisited
// during a proper refactoring to define stable public types.
package types

import (
	internaltypes "github.com/openmapping/tasking/internal/types"
)

// TaskSummary is the transport view of a task (public alias).
type TaskSummary = internaltypes.TaskSummary

// TaskHistoryEntry is one rendered history row (public alias).
type TaskHistoryEntry = internaltypes.TaskHistoryEntry

// SplitResponse lists the children created by a split (public alias).
type SplitResponse = internaltypes.SplitResponse

// ProjectSummary is the transport view of a project (public alias).
type ProjectSummary = internaltypes.ProjectSummary

// UnlockStaleResponse reports a stale lock sweep (public alias).
type UnlockStaleResponse = internaltypes.UnlockStaleResponse

// HealthResponse is returned by the health endpoint (public alias).
type HealthResponse = internaltypes.HealthResponse

// ListResponse is a generic response structure for lists (public alias).
type ListResponse[T any] = internaltypes.ListResponse[T]
