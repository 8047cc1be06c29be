package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openmapping/tasking/pkg/api/v1/handlers"
	"github.com/openmapping/tasking/pkg/db/models"
	"github.com/openmapping/tasking/pkg/types"
)

// Task flag names
const (
	flagTaskID    = "id"
	flagProjectID = "project"
	flagTaskPage  = "page"
	flagStatus    = "status"
	flagComment   = "comment"
)

const timeFormat = "2006-01-02 15:04:05"

// taskOutput represents the filtered output for a task
type taskOutput struct {
	TaskID       int64           `json:"task_id"`
	ProjectID    int64           `json:"project_id"`
	Status       string          `json:"status"`
	LockedBy     string          `json:"locked_by,omitempty"`
	Tile         string          `json:"tile,omitempty"`
	Instructions string          `json:"instructions,omitempty"`
	History      []historyOutput `json:"history,omitempty"`
}

type historyOutput struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
	By     string `json:"by"`
	Date   string `json:"date"`
}

// taskListOutput represents the filtered output for a list of tasks
type taskListOutput struct {
	Tasks []taskRow `json:"tasks"`
}

type taskRow struct {
	TaskID int64  `json:"task_id"`
	Status string `json:"status"`
}

func newTaskOutput(t types.TaskSummary) taskOutput {
	out := taskOutput{
		TaskID:       t.TaskID,
		ProjectID:    t.ProjectID,
		Status:       t.Status.String(),
		LockedBy:     t.LockHolderUsername,
		Instructions: t.PerTaskInstructions,
	}
	if t.X != nil && t.Y != nil && t.Zoom != nil {
		out.Tile = fmt.Sprintf("%d/%d/%d", *t.Zoom, *t.X, *t.Y)
	}
	for _, h := range t.History {
		row := historyOutput{
			Action: h.Action.String(),
			By:     h.ActionBy,
			Date:   h.ActionDate.Format(timeFormat),
		}
		if h.ActionText != nil {
			row.Text = *h.ActionText
		}
		out.History = append(out.History, row)
	}
	return out
}

// GetTasksCmd returns the tasks command with its subcommands
func GetTasksCmd() *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage tasks",
	}

	tasksCmd.AddCommand(newGetTaskCmd())
	tasksCmd.AddCommand(newListTasksCmd())
	tasksCmd.AddCommand(newLockTaskCmd())
	tasksCmd.AddCommand(newLockValidationCmd())
	tasksCmd.AddCommand(newUnlockTaskCmd())
	tasksCmd.AddCommand(newCommentTaskCmd())
	tasksCmd.AddCommand(newSplitTaskCmd())
	return tasksCmd
}

// addTaskRefFlags adds the required project and task id flags
func addTaskRefFlags(cmd *cobra.Command) {
	cmd.Flags().Int64P(flagProjectID, "p", 0, "Project ID")
	cmd.Flags().Int64P(flagTaskID, "i", 0, "Task ID")
	_ = cmd.MarkFlagRequired(flagProjectID)
	_ = cmd.MarkFlagRequired(flagTaskID)
}

func getTaskRef(cmd *cobra.Command) (projectID, taskID int64, err error) {
	projectID, err = cmd.Flags().GetInt64(flagProjectID)
	if err != nil {
		return 0, 0, fmt.Errorf("error getting project flag: %w", err)
	}
	taskID, err = cmd.Flags().GetInt64(flagTaskID)
	if err != nil {
		return 0, 0, fmt.Errorf("error getting task ID flag: %w", err)
	}
	if projectID <= 0 || taskID <= 0 {
		return 0, 0, fmt.Errorf("project and task ID must be positive numbers")
	}
	return projectID, taskID, nil
}

func getActionParams(cmd *cobra.Command) (handlers.TaskActionParams, error) {
	projectID, taskID, err := getTaskRef(cmd)
	if err != nil {
		return handlers.TaskActionParams{}, err
	}
	userID, err := getUserID(cmd)
	if err != nil {
		return handlers.TaskActionParams{}, fmt.Errorf("error getting user_id: %w", err)
	}
	return handlers.TaskActionParams{
		ProjectID: projectID,
		TaskID:    taskID,
		UserID:    userID,
		Locale:    getLocale(cmd),
	}, nil
}

func newGetTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a task with its history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID, taskID, err := getTaskRef(cmd)
			if err != nil {
				return err
			}

			task, err := apiClient.GetTask(cmd.Context(), handlers.TaskGetParams{
				ProjectID: projectID,
				TaskID:    taskID,
				Locale:    getLocale(cmd),
			})
			if err != nil {
				return fmt.Errorf("error getting task: %w", err)
			}
			return printJSON(cmd, newTaskOutput(task))
		},
	}
	addTaskRefFlags(cmd)
	return cmd
}

func newListTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tasks of a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID, err := cmd.Flags().GetInt64(flagProjectID)
			if err != nil {
				return fmt.Errorf("error getting project flag: %w", err)
			}
			page, err := cmd.Flags().GetInt(flagTaskPage)
			if err != nil {
				return fmt.Errorf("error getting page flag: %w", err)
			}
			statuses, err := cmd.Flags().GetStringSlice(flagStatus)
			if err != nil {
				return fmt.Errorf("error getting status flag: %w", err)
			}
			for i, s := range statuses {
				statuses[i] = strings.ToUpper(s)
			}

			tasks, err := apiClient.ListTasks(cmd.Context(), handlers.TaskListParams{
				ProjectID: projectID,
				Page:      page,
				Statuses:  statuses,
			})
			if err != nil {
				return fmt.Errorf("error listing tasks: %w", err)
			}

			output := taskListOutput{Tasks: make([]taskRow, 0, len(tasks))}
			for _, t := range tasks {
				output.Tasks = append(output.Tasks, taskRow{TaskID: t.ID, Status: t.Status.String()})
			}
			return printJSON(cmd, output)
		},
	}
	cmd.Flags().Int64P(flagProjectID, "p", 0, "Project ID")
	cmd.Flags().IntP(flagTaskPage, "g", 1, "Page number for pagination")
	cmd.Flags().StringSlice(flagStatus, nil, "Only list tasks in these statuses")
	_ = cmd.MarkFlagRequired(flagProjectID)
	return cmd
}

func newLockTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Lock a task for mapping",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := getActionParams(cmd)
			if err != nil {
				return err
			}
			task, err := apiClient.LockTaskForMapping(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("error locking task: %w", err)
			}
			return printJSON(cmd, newTaskOutput(task))
		},
	}
	addTaskRefFlags(cmd)
	return cmd
}

func newLockValidationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock-validation",
		Short: "Lock a task for validation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := getActionParams(cmd)
			if err != nil {
				return err
			}
			task, err := apiClient.LockTaskForValidation(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("error locking task for validation: %w", err)
			}
			return printJSON(cmd, newTaskOutput(task))
		},
	}
	addTaskRefFlags(cmd)
	return cmd
}

func newUnlockTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Release a lock and move the task to a new status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := getActionParams(cmd)
			if err != nil {
				return err
			}
			status, err := cmd.Flags().GetString(flagStatus)
			if err != nil {
				return fmt.Errorf("error getting status flag: %w", err)
			}
			comment, err := cmd.Flags().GetString(flagComment)
			if err != nil {
				return fmt.Errorf("error getting comment flag: %w", err)
			}

			task, err := apiClient.UnlockTask(cmd.Context(), handlers.TaskUnlockParams{
				TaskActionParams: params,
				Status:           strings.ToUpper(status),
				Comment:          comment,
			})
			if err != nil {
				return fmt.Errorf("error unlocking task: %w", err)
			}
			return printJSON(cmd, newTaskOutput(task))
		},
	}
	addTaskRefFlags(cmd)
	cmd.Flags().String(flagStatus, string(models.TaskStatusReady), "Status to release the task into")
	cmd.Flags().StringP(flagComment, "c", "", "Optional comment recorded before the state change")
	return cmd
}

func newCommentTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Comment on a task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := getActionParams(cmd)
			if err != nil {
				return err
			}
			comment, err := cmd.Flags().GetString(flagComment)
			if err != nil {
				return fmt.Errorf("error getting comment flag: %w", err)
			}

			task, err := apiClient.CommentTask(cmd.Context(), handlers.TaskCommentParams{
				TaskActionParams: params,
				Comment:          comment,
			})
			if err != nil {
				return fmt.Errorf("error commenting on task: %w", err)
			}
			return printJSON(cmd, newTaskOutput(task))
		},
	}
	addTaskRefFlags(cmd)
	cmd.Flags().StringP(flagComment, "c", "", "Comment text")
	_ = cmd.MarkFlagRequired(flagComment)
	return cmd
}

func newSplitTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a task locked for mapping into four tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := getActionParams(cmd)
			if err != nil {
				return err
			}
			resp, err := apiClient.SplitTask(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("error splitting task: %w", err)
			}

			output := taskListOutput{Tasks: make([]taskRow, 0, len(resp.Tasks))}
			for _, t := range resp.Tasks {
				output.Tasks = append(output.Tasks, taskRow{TaskID: t.TaskID, Status: t.Status.String()})
			}
			return printJSON(cmd, output)
		},
	}
	addTaskRefFlags(cmd)
	return cmd
}
