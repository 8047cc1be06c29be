package handlers

import "github.com/openmapping/tasking/internal/services"

// NewRPCHandler wires the project and task handlers behind the RPC endpoint
func NewRPCHandler(projects *services.Project, tasks *services.Task) *RPCHandler {
	return &RPCHandler{
		ProjectHandlers: NewProjectHandlers(projects, tasks),
		TaskHandlers:    NewTaskHandlers(tasks),
	}
}
