package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskActionParams_Validate(t *testing.T) {
	tests := []struct {
		name        string
		params      TaskActionParams
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid_params",
			params: TaskActionParams{ProjectID: 1, TaskID: 2, UserID: 3},
		},
		{
			name:        "missing_project_id",
			params:      TaskActionParams{TaskID: 2, UserID: 3},
			expectError: true,
			errorMsg:    strings.ToLower(ErrMsgProjIDRequired),
		},
		{
			name:        "negative_task_id",
			params:      TaskActionParams{ProjectID: 1, TaskID: -2, UserID: 3},
			expectError: true,
			errorMsg:    strings.ToLower(ErrMsgTaskIDRequired),
		},
		{
			name:        "missing_user_id",
			params:      TaskActionParams{ProjectID: 1, TaskID: 2},
			expectError: true,
			errorMsg:    strings.ToLower(ErrMsgUserIDRequired),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.expectError {
				assert.Error(t, err)
				assert.Equal(t, tt.errorMsg, err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTaskUnlockParams_Validate(t *testing.T) {
	base := TaskActionParams{ProjectID: 1, TaskID: 2, UserID: 3}

	assert.NoError(t, TaskUnlockParams{TaskActionParams: base, Status: "MAPPED"}.Validate())
	// unknown statuses are left to the service
	assert.NoError(t, TaskUnlockParams{TaskActionParams: base, Status: "SPLIT"}.Validate())

	err := TaskUnlockParams{TaskActionParams: base}.Validate()
	assert.EqualError(t, err, strings.ToLower(ErrMsgTaskStatusReqd))

	err = TaskUnlockParams{Status: "MAPPED"}.Validate()
	assert.EqualError(t, err, strings.ToLower(ErrMsgProjIDRequired))
}

func TestTaskCommentParams_Validate(t *testing.T) {
	base := TaskActionParams{ProjectID: 1, TaskID: 2, UserID: 3}

	assert.NoError(t, TaskCommentParams{TaskActionParams: base, Comment: "looks good"}.Validate())
	assert.EqualError(t, TaskCommentParams{TaskActionParams: base, Comment: "   "}.Validate(),
		strings.ToLower(ErrMsgTaskCommentReqd))
}

func TestTaskListParams_Validate(t *testing.T) {
	tests := []struct {
		name        string
		params      TaskListParams
		expectError bool
	}{
		{name: "valid_params", params: TaskListParams{ProjectID: 1}},
		{name: "valid_with_statuses", params: TaskListParams{ProjectID: 1, Page: 2, Statuses: []string{"READY", "MAPPED"}}},
		{name: "missing_project", params: TaskListParams{}, expectError: true},
		{name: "negative_page", params: TaskListParams{ProjectID: 1, Page: -1}, expectError: true},
		{name: "unknown_status", params: TaskListParams{ProjectID: 1, Statuses: []string{"DONE"}}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProjectParams_Validate(t *testing.T) {
	assert.NoError(t, ProjectGetParams{ProjectID: 4}.Validate())
	assert.EqualError(t, ProjectGetParams{}.Validate(), strings.ToLower(ErrMsgProjIDRequired))
	assert.NoError(t, ProjectUnlockStaleParams{ProjectID: 4}.Validate())
	assert.Error(t, ProjectUnlockStaleParams{ProjectID: -1}.Validate())
}

func TestGetPaginationOptions(t *testing.T) {
	opts := getPaginationOptions(0)
	assert.Equal(t, DefaultPageSize, opts.Limit)
	assert.Equal(t, 0, opts.Offset)

	opts = getPaginationOptions(3)
	assert.Equal(t, 2*DefaultPageSize, opts.Offset)
}
