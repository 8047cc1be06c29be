// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvLogLevel selects the logrus level when no config value is given
	EnvLogLevel = "LOG_LEVEL"

	// EnvAPIURL is the base URL the CLI talks to
	EnvAPIURL = "TASKING_API_URL"

	// EnvUserID is the acting user id used by the CLI when --user-id is not passed
	EnvUserID = "TASKING_USER_ID"
)
