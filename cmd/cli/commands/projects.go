package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openmapping/tasking/pkg/api/v1/handlers"
)

// GetProjectsCmd returns the projects command with its subcommands
func GetProjectsCmd() *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Get a project and its task counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID, err := getProjectID(cmd)
			if err != nil {
				return err
			}
			project, err := apiClient.GetProject(cmd.Context(), handlers.ProjectGetParams{ProjectID: projectID})
			if err != nil {
				return fmt.Errorf("error getting project: %w", err)
			}
			return printJSON(cmd, project)
		},
	}

	unlockStaleCmd := &cobra.Command{
		Use:   "unlock-stale",
		Short: "Release the expired locks of a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID, err := getProjectID(cmd)
			if err != nil {
				return err
			}
			resp, err := apiClient.UnlockStaleTasks(cmd.Context(), handlers.ProjectUnlockStaleParams{ProjectID: projectID})
			if err != nil {
				return fmt.Errorf("error unlocking stale tasks: %w", err)
			}
			return printJSON(cmd, resp)
		},
	}

	for _, c := range []*cobra.Command{getCmd, unlockStaleCmd} {
		c.Flags().Int64P(flagProjectID, "p", 0, "Project ID")
		if err := c.MarkFlagRequired(flagProjectID); err != nil {
			panic(fmt.Errorf("failed to mark project flag as required for %s command: %w", c.Name(), err))
		}
		projectsCmd.AddCommand(c)
	}
	return projectsCmd
}

func getProjectID(cmd *cobra.Command) (int64, error) {
	projectID, err := cmd.Flags().GetInt64(flagProjectID)
	if err != nil {
		return 0, fmt.Errorf("error getting project flag: %w", err)
	}
	if projectID <= 0 {
		return 0, fmt.Errorf("project ID must be a positive number")
	}
	return projectID, nil
}
