// Package handlers provides HTTP request handling
package handlers

import (
	"encoding/json"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/openmapping/tasking/internal/logger"
	"github.com/openmapping/tasking/internal/services"
)

// RPCRequest defines the structure for RPC-style API requests
type RPCRequest struct {
	// Method is the operation to perform (e.g., "task.lockForMapping", "project.get")
	Method string `json:"method"`

	// Params contains the operation parameters
	Params interface{} `json:"params"`

	// ID is an optional request identifier that will be echoed back in the response
	ID string `json:"id,omitempty"`
}

// RPCResponse defines the structure for RPC-style API responses
type RPCResponse struct {
	// Data contains the operation result
	Data interface{} `json:"data,omitempty"`

	// Error contains error information if the operation failed
	Error *RPCError `json:"error,omitempty"`

	// ID echoes back the request ID if provided
	ID string `json:"id,omitempty"`

	// Success indicates if the operation was successful
	Success bool `json:"success"`
}

// RPCError defines the structure for RPC errors
type RPCError struct {
	// Code is the HTTP status of the response
	Code int `json:"code"`

	// SubCode is the machine readable reason, e.g. "AlreadyLocked"
	SubCode string `json:"sub_code,omitempty"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Retryable is set when the whole request may be retried
	Retryable bool `json:"retryable,omitempty"`

	// Data contains additional error details (optional)
	Data interface{} `json:"data,omitempty"`
}

// RPCHandler handles RPC-style API requests for projects and tasks
type RPCHandler struct {
	ProjectHandlers *ProjectHandlers
	TaskHandlers    *TaskHandlers
}

// HandleRPC handles all RPC requests for various resource types
func (h *RPCHandler) HandleRPC(c *fiber.Ctx) error {
	var req RPCRequest
	if err := c.BodyParser(&req); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidReqFormat, err.Error(), req.ID)
	}

	if req.Method == "" {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgMethodRequired, nil, req.ID)
	}

	// Route to appropriate handler based on method prefix
	switch {
	case IsProjectMethod(req.Method):
		return h.handleProjectMethod(c, req)
	case IsTaskMethod(req.Method):
		return h.handleTaskMethod(c, req)
	default:
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgUnknownMethod, req.Method, req.ID)
	}
}

// handleProjectMethod routes project methods to their respective handlers
func (h *RPCHandler) handleProjectMethod(c *fiber.Ctx, req RPCRequest) error {
	if h.ProjectHandlers == nil {
		return respondWithRPCError(c, fiber.StatusInternalServerError, "Project handlers not configured", nil, req.ID)
	}

	switch req.Method {
	case ProjectGet:
		return h.ProjectHandlers.Get(c, req)
	case ProjectUnlockStale:
		return h.ProjectHandlers.UnlockStale(c, req)
	default:
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgUnknownProjMethod, nil, req.ID)
	}
}

// handleTaskMethod routes task methods to their respective handlers
func (h *RPCHandler) handleTaskMethod(c *fiber.Ctx, req RPCRequest) error {
	if h.TaskHandlers == nil {
		return respondWithRPCError(c, fiber.StatusInternalServerError, "Task handlers not configured", nil, req.ID)
	}

	switch req.Method {
	case TaskGet:
		return h.TaskHandlers.Get(c, req)
	case TaskList:
		return h.TaskHandlers.List(c, req)
	case TaskLockForMapping:
		return h.TaskHandlers.LockForMapping(c, req)
	case TaskLockForValidation:
		return h.TaskHandlers.LockForValidation(c, req)
	case TaskUnlock:
		return h.TaskHandlers.Unlock(c, req)
	case TaskComment:
		return h.TaskHandlers.Comment(c, req)
	case TaskSplit:
		return h.TaskHandlers.Split(c, req)
	default:
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgUnknownTaskMethod, nil, req.ID)
	}
}

// validator is implemented by every params struct
type validator interface {
	Validate() error
}

// parseParams is a helper function to parse RPC parameters into a specific struct type
func parseParams[T any](req RPCRequest) (T, error) {
	var params T

	// Convert params to JSON
	paramsJSON, err := json.Marshal(req.Params)
	if err != nil {
		return params, err
	}

	// Unmarshal to target type
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return params, err
	}

	return params, nil
}

// decodeParams parses and validates params, writing the 400 response itself
// when either step fails. ok is false once a response has been written.
func decodeParams[T validator](c *fiber.Ctx, req RPCRequest) (params T, ok bool, err error) {
	params, err = parseParams[T](req)
	if err != nil {
		return params, false, respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}
	if err := params.Validate(); err != nil {
		return params, false, respondWithRPCError(c, fiber.StatusBadRequest, err.Error(), nil, req.ID)
	}
	return params, true, nil
}

// statusForKind maps a service error kind onto an HTTP status
func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindIllegalTransition:
		return fiber.StatusForbidden
	case services.KindInvalidInput:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// respondWithServiceError renders a service error with its sub-code
func respondWithServiceError(c *fiber.Ctx, err error, id string) error {
	se := services.AsError(err)
	code := statusForKind(se.Kind)

	rpcErr := &RPCError{
		Code:      code,
		SubCode:   se.SubCode,
		Message:   se.Message,
		Retryable: se.Retryable,
	}
	if se.Kind == services.KindInternal {
		logger.ErrorWithFields("rpc request failed", logger.Fields{
			"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
			"error":      se.Error(),
		})
		rpcErr.Message = ErrMsgInternal
	}

	return c.Status(code).JSON(RPCResponse{
		Error:   rpcErr,
		Success: false,
		ID:      id,
	})
}

// respondWithData writes a successful response
func respondWithData(c *fiber.Ctx, data interface{}, id string) error {
	return c.JSON(RPCResponse{
		Data:    data,
		Success: true,
		ID:      id,
	})
}

// Helper to create a standardized RPC error response
func respondWithRPCError(c *fiber.Ctx, httpCode int, message string, data interface{}, id string) error {
	return c.Status(httpCode).JSON(RPCResponse{
		Error: &RPCError{
			Code:    httpCode,
			Message: message,
			Data:    data,
		},
		Success: false,
		ID:      id,
	})
}
