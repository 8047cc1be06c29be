package services

import (
	"errors"
	"fmt"

	"github.com/openmapping/tasking/internal/db/repos"
)

// Kind classifies a service error for the transport layer
type Kind int

// Error kinds
const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindIllegalTransition
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidInput:
		return "InvalidInput"
	case KindIllegalTransition:
		return "IllegalTransition"
	default:
		return "Internal"
	}
}

// Machine readable sub-codes carried by Error
const (
	SubCodeTaskNotFound       = "TASK_NOT_FOUND"
	SubCodeProjectNotFound    = "PROJECT_NOT_FOUND"
	SubCodeUserNotFound       = "USER_NOT_FOUND"
	SubCodeInvalidGeoJSON     = "InvalidGeoJson"
	SubCodeInvalidData        = "InvalidData"
	SubCodeNotMappable        = "NotMappable"
	SubCodeAlreadyLocked      = "AlreadyLocked"
	SubCodeNotLocked          = "NotLocked"
	SubCodeLockedByOtherUser  = "LockedByOtherUser"
	SubCodeInvalidUnlockState = "InvalidUnlockState"
	SubCodeSmallToSplit       = "SmallToSplit"
	SubCodeLockToSplit        = "LockToSplit"
	SubCodeSplitOtherUserTask = "SplitOtherUserTask"
	SubCodeUnhandled          = "UnhandledError"
)

// Error is the only error type returned across the service boundary
type Error struct {
	Kind    Kind
	SubCode string
	Message string
	// Retryable is set for storage conflicts the caller may retry as a whole
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.SubCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.SubCode, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by sub-code, so errors.Is(err, &Error{SubCode: ...}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.SubCode != "" && t.SubCode == e.SubCode
}

func newError(kind Kind, subCode, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, SubCode: subCode, Message: fmt.Sprintf(format, args...)}
}

// Sentinel values for errors.Is checks
var (
	ErrTaskNotFound       = &Error{Kind: KindNotFound, SubCode: SubCodeTaskNotFound}
	ErrProjectNotFound    = &Error{Kind: KindNotFound, SubCode: SubCodeProjectNotFound}
	ErrUserNotFound       = &Error{Kind: KindNotFound, SubCode: SubCodeUserNotFound}
	ErrInvalidGeoJSON     = &Error{Kind: KindInvalidInput, SubCode: SubCodeInvalidGeoJSON}
	ErrInvalidData        = &Error{Kind: KindInvalidInput, SubCode: SubCodeInvalidData}
	ErrNotMappable        = &Error{Kind: KindIllegalTransition, SubCode: SubCodeNotMappable}
	ErrAlreadyLocked      = &Error{Kind: KindIllegalTransition, SubCode: SubCodeAlreadyLocked}
	ErrNotLocked          = &Error{Kind: KindIllegalTransition, SubCode: SubCodeNotLocked}
	ErrLockedByOtherUser  = &Error{Kind: KindIllegalTransition, SubCode: SubCodeLockedByOtherUser}
	ErrInvalidUnlockState = &Error{Kind: KindIllegalTransition, SubCode: SubCodeInvalidUnlockState}
	ErrSmallToSplit       = &Error{Kind: KindIllegalTransition, SubCode: SubCodeSmallToSplit}
	ErrLockToSplit        = &Error{Kind: KindIllegalTransition, SubCode: SubCodeLockToSplit}
	ErrSplitOtherUserTask = &Error{Kind: KindIllegalTransition, SubCode: SubCodeSplitOtherUserTask}
)

// TaskNotFound reports a missing task
func TaskNotFound(projectID, taskID int64) *Error {
	return newError(KindNotFound, SubCodeTaskNotFound, "task %d not found in project %d", taskID, projectID)
}

// ProjectNotFound reports a missing project
func ProjectNotFound(projectID int64) *Error {
	return newError(KindNotFound, SubCodeProjectNotFound, "project %d not found", projectID)
}

// UserNotFound reports a missing user
func UserNotFound(userID int64) *Error {
	return newError(KindNotFound, SubCodeUserNotFound, "user %d not found", userID)
}

// InvalidGeoJSON reports a geometry that is not a valid MultiPolygon
func InvalidGeoJSON(err error) *Error {
	e := newError(KindInvalidInput, SubCodeInvalidGeoJSON, "invalid geojson")
	e.Err = err
	return e
}

// InvalidData reports a missing or malformed property
func InvalidData(format string, args ...interface{}) *Error {
	return newError(KindInvalidInput, SubCodeInvalidData, format, args...)
}

// AsError maps any error onto *Error. Errors that are already typed pass
// through; anything else becomes an Internal UnhandledError.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Kind:      KindInternal,
		SubCode:   SubCodeUnhandled,
		Message:   "unhandled error",
		Retryable: repos.IsRetryable(err),
		Err:       err,
	}
}

// KindOf returns the kind of err, KindInternal for untyped errors
func KindOf(err error) Kind {
	return AsError(err).Kind
}
