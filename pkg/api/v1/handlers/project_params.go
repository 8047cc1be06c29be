// Package handlers provides HTTP request handling
package handlers

import (
	"fmt"
	"strings"
)

// ProjectGetParams defines the parameters for retrieving a project
type ProjectGetParams struct {
	ProjectID int64 `json:"projectId"`
}

// Validate validates the parameters for retrieving a project
func (p ProjectGetParams) Validate() error {
	if p.ProjectID <= 0 {
		return fmt.Errorf("%s", strings.ToLower(ErrMsgProjIDRequired))
	}
	return nil
}

// ProjectUnlockStaleParams defines the parameters for clearing expired locks
type ProjectUnlockStaleParams struct {
	ProjectID int64 `json:"projectId"`
}

// Validate validates the parameters for clearing expired locks
func (p ProjectUnlockStaleParams) Validate() error {
	if p.ProjectID <= 0 {
		return fmt.Errorf("%s", strings.ToLower(ErrMsgProjIDRequired))
	}
	return nil
}
