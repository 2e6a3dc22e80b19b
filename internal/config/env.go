package config

import "os"

// Environment variable names for overrides.
const (
	EnvSearchRoots = "WATCHMEDO_SEARCH_ROOTS"
	EnvLogLevel    = "WATCHMEDO_LOG_LEVEL"
	EnvLogFormat   = "WATCHMEDO_LOG_FORMAT"
)

// EnvOverrides holds values read from the environment. Command-line flags
// take precedence over every field.
type EnvOverrides struct {
	SearchRoots []string // WATCHMEDO_SEARCH_ROOTS, split like PATH
	LogLevel    string   // WATCHMEDO_LOG_LEVEL: debug, info, warn, error
	LogFormat   string   // WATCHMEDO_LOG_FORMAT: auto, text, json
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		SearchRoots: SplitPathList(os.Getenv(EnvSearchRoots)),
		LogLevel:    os.Getenv(EnvLogLevel),
		LogFormat:   os.Getenv(EnvLogFormat),
	}
}
