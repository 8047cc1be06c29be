// Package handlers provides HTTP request handling
package handlers

// Common error messages
const (
	ErrMsgInvalidParams     = "Invalid parameters"
	ErrMsgInvalidReqFormat  = "Invalid request format"
	ErrMsgMethodRequired    = "Method is required"
	ErrMsgUnknownMethod     = "Unknown method"
	ErrMsgUnknownProjMethod = "Unknown project method"
	ErrMsgUnknownTaskMethod = "Unknown task method"
	ErrMsgInternal          = "Internal error"
)

// Project error messages
const (
	ErrMsgProjIDRequired = "Project id is required and must be a positive number"
)

// Task error messages
const (
	ErrMsgTaskIDRequired     = "Task id is required and must be a positive number"
	ErrMsgUserIDRequired     = "User id is required and must be a positive number"
	ErrMsgTaskStatusReqd     = "Status is required"
	ErrMsgTaskCommentReqd    = "Comment is required"
	ErrMsgTaskStatusInvalid  = "Invalid task status"
	ErrMsgNegativePagination = "Page must be a positive number from 1"
)
