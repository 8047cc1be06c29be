package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/openmapping/tasking/internal/constants"
	"github.com/openmapping/tasking/pkg/api/v1/client"
	"github.com/openmapping/tasking/pkg/api/v1/routes"
)

// flag names
const (
	flagServerAddress = "server-address"
	flagUserID        = "user-id"
	flagLocale        = "locale"
)

// environment variable names
const (
	envServerAddress = constants.EnvAPIURL
	envUserID        = constants.EnvUserID
)

var (
	// apiClient is the shared API client instance
	apiClient client.Client
	// serverAddress holds the target API server address. Flag parsing sets this.
	serverAddress string
)

// initClient initializes the API client
func initClient() error {
	var err error
	opts := client.DefaultOptions()
	opts.BaseURL = serverAddress

	apiClient, err = client.NewClient(opts)
	return err
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = NewRootCmd()

// NewRootCmd builds the command tree with fresh flag state
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tasking",
		Short: "Tasking CLI - A command line interface for the tasking API",
		Long: `Tasking CLI locks, releases, comments on and splits mapping tasks through the tasking API.
	Flags take precedence over the TASKING_API_URL and TASKING_USER_ID environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Flag > Env Var > Default
			if !cmd.Flags().Changed(flagServerAddress) {
				if envAddr := os.Getenv(envServerAddress); envAddr != "" {
					serverAddress = envAddr
				}
			}
			if serverAddress == "" {
				return fmt.Errorf("server address cannot be empty")
			}
			return initClient()
		},
	}

	root.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", routes.DefaultBaseURL, "Address of the tasking API server (env: TASKING_API_URL)")
	root.PersistentFlags().StringP(flagUserID, "u", "", "Id of the acting user (env: TASKING_USER_ID)")
	root.PersistentFlags().StringP(flagLocale, "l", "", "Preferred locale for task instructions")

	root.AddCommand(GetTasksCmd())
	root.AddCommand(GetProjectsCmd())
	return root
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// getUserID retrieves the acting user from the persistent flag or the environment
func getUserID(cmd *cobra.Command) (int64, error) {
	flag := cmd.Flag(flagUserID)
	if flag == nil {
		return 0, fmt.Errorf("flag '%s' is not defined", flagUserID)
	}

	userID := flag.Value.String()
	if userID == "" && !flag.Changed {
		userID = os.Getenv(envUserID)
	}
	if userID == "" {
		return 0, fmt.Errorf("required flag(s) \"%s\" not set", flagUserID)
	}

	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user-id format: %w", err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("user-id must be a positive number")
	}
	return id, nil
}

func getLocale(cmd *cobra.Command) string {
	if flag := cmd.Flag(flagLocale); flag != nil {
		return flag.Value.String()
	}
	return ""
}

// printJSON writes v as indented JSON to the command's output
func printJSON(cmd *cobra.Command, v interface{}) error {
	prettyJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(prettyJSON))
	return nil
}
