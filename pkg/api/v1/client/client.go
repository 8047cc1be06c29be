// Package client provides the API client for interacting with the tasking API
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/openmapping/tasking/internal/db/models"
	"github.com/openmapping/tasking/internal/types"
	"github.com/openmapping/tasking/pkg/api/v1/handlers"
	"github.com/openmapping/tasking/pkg/api/v1/routes"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// Client is the interface for API client
type Client interface {
	// Health Check
	HealthCheck(ctx context.Context) (types.HealthResponse, error)

	// Project methods
	GetProject(ctx context.Context, params handlers.ProjectGetParams) (types.ProjectSummary, error)
	UnlockStaleTasks(ctx context.Context, params handlers.ProjectUnlockStaleParams) (types.UnlockStaleResponse, error)

	// Task methods
	GetTask(ctx context.Context, params handlers.TaskGetParams) (types.TaskSummary, error)
	ListTasks(ctx context.Context, params handlers.TaskListParams) ([]models.Task, error)
	LockTaskForMapping(ctx context.Context, params handlers.TaskActionParams) (types.TaskSummary, error)
	LockTaskForValidation(ctx context.Context, params handlers.TaskActionParams) (types.TaskSummary, error)
	UnlockTask(ctx context.Context, params handlers.TaskUnlockParams) (types.TaskSummary, error)
	CommentTask(ctx context.Context, params handlers.TaskCommentParams) (types.TaskSummary, error)
	SplitTask(ctx context.Context, params handlers.TaskActionParams) (types.SplitResponse, error)
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
}

// Error is returned for RPC calls the server rejected
type Error struct {
	// Code is the HTTP status of the response
	Code int
	// SubCode is the machine readable reason, empty for transport level rejections
	SubCode   string
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	if e.SubCode != "" {
		return fmt.Sprintf("RPC error: %s: %s (code: %d)", e.SubCode, e.Message, e.Code)
	}
	return fmt.Sprintf("RPC error: %s (code: %d)", e.Message, e.Code)
}

// SubCodeOf returns the sub-code of an RPC error, or "" for other errors
func SubCodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.SubCode
	}
	return ""
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Validate the base URL
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: timeout,
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")

	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// doRequest sends the HTTP request and processes the response
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) error {
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	if statusCode < 200 || statusCode >= 300 {
		return &fiber.Error{
			Code:    statusCode,
			Message: string(body),
		}
	}

	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}

	return nil
}

// executeRPC performs the actual RPC call
func (c *APIClient) executeRPC(ctx context.Context, method string, params interface{}, result interface{}) error {
	agent, err := c.createAgent(ctx, http.MethodPost, routes.RPCURL(), handlers.RPCRequest{
		Method: method,
		Params: params,
	})
	if err != nil {
		return err
	}

	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending RPC request: %w", errs[0])
	}

	var rpcResp handlers.RPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		if statusCode < 200 || statusCode >= 300 {
			return &fiber.Error{Code: statusCode, Message: string(body)}
		}
		return fmt.Errorf("failed to unmarshal RPC response body: %w", err)
	}

	if rpcResp.Error != nil {
		return &Error{
			Code:      rpcResp.Error.Code,
			SubCode:   rpcResp.Error.SubCode,
			Message:   rpcResp.Error.Message,
			Retryable: rpcResp.Error.Retryable,
		}
	}
	if statusCode < 200 || statusCode >= 300 {
		return &fiber.Error{Code: statusCode, Message: string(body)}
	}
	if !rpcResp.Success {
		return fmt.Errorf("RPC call failed without specific error details")
	}

	if result == nil {
		return nil
	}

	// Data arrives as a generic value; round trip it into the typed result
	dataBytes, err := json.Marshal(rpcResp.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal RPC data field: %w", err)
	}
	if err := json.Unmarshal(dataBytes, result); err != nil {
		return fmt.Errorf("failed to unmarshal RPC data into result: %w", err)
	}
	return nil
}

// HealthCheck checks the health of the API
func (c *APIClient) HealthCheck(ctx context.Context) (types.HealthResponse, error) {
	var response types.HealthResponse
	agent, err := c.createAgent(ctx, http.MethodGet, routes.HealthCheckURL(), nil)
	if err != nil {
		return response, err
	}
	err = c.doRequest(agent, &response)
	return response, err
}

// GetProject retrieves a project and its counters
func (c *APIClient) GetProject(ctx context.Context, params handlers.ProjectGetParams) (types.ProjectSummary, error) {
	var project types.ProjectSummary
	if err := c.executeRPC(ctx, handlers.ProjectGet, params, &project); err != nil {
		return types.ProjectSummary{}, err
	}
	return project, nil
}

// UnlockStaleTasks clears the expired locks of a project
func (c *APIClient) UnlockStaleTasks(ctx context.Context, params handlers.ProjectUnlockStaleParams) (types.UnlockStaleResponse, error) {
	var resp types.UnlockStaleResponse
	if err := c.executeRPC(ctx, handlers.ProjectUnlockStale, params, &resp); err != nil {
		return types.UnlockStaleResponse{}, err
	}
	return resp, nil
}

// GetTask retrieves a task summary
func (c *APIClient) GetTask(ctx context.Context, params handlers.TaskGetParams) (types.TaskSummary, error) {
	return c.taskSummary(ctx, handlers.TaskGet, params)
}

// ListTasks lists the tasks of a project
func (c *APIClient) ListTasks(ctx context.Context, params handlers.TaskListParams) ([]models.Task, error) {
	var listResponse types.ListResponse[models.Task]
	if err := c.executeRPC(ctx, handlers.TaskList, params, &listResponse); err != nil {
		return nil, err
	}
	return listResponse.Rows, nil
}

// LockTaskForMapping takes a mapping lock
func (c *APIClient) LockTaskForMapping(ctx context.Context, params handlers.TaskActionParams) (types.TaskSummary, error) {
	return c.taskSummary(ctx, handlers.TaskLockForMapping, params)
}

// LockTaskForValidation takes a validation lock
func (c *APIClient) LockTaskForValidation(ctx context.Context, params handlers.TaskActionParams) (types.TaskSummary, error) {
	return c.taskSummary(ctx, handlers.TaskLockForValidation, params)
}

// UnlockTask releases a lock into a new status
func (c *APIClient) UnlockTask(ctx context.Context, params handlers.TaskUnlockParams) (types.TaskSummary, error) {
	return c.taskSummary(ctx, handlers.TaskUnlock, params)
}

// CommentTask adds a comment to a task
func (c *APIClient) CommentTask(ctx context.Context, params handlers.TaskCommentParams) (types.TaskSummary, error) {
	return c.taskSummary(ctx, handlers.TaskComment, params)
}

// SplitTask replaces a task by its four children
func (c *APIClient) SplitTask(ctx context.Context, params handlers.TaskActionParams) (types.SplitResponse, error) {
	var resp types.SplitResponse
	if err := c.executeRPC(ctx, handlers.TaskSplit, params, &resp); err != nil {
		return types.SplitResponse{}, err
	}
	return resp, nil
}

func (c *APIClient) taskSummary(ctx context.Context, method string, params interface{}) (types.TaskSummary, error) {
	var summary types.TaskSummary
	if err := c.executeRPC(ctx, method, params, &summary); err != nil {
		return types.TaskSummary{}, err
	}
	return summary, nil
}
