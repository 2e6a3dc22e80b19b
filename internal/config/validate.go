package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Log formats accepted by --log-format and WATCHMEDO_LOG_FORMAT.
const (
	LogFormatAuto = "auto"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var validLogLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// deprecatedKeys maps legacy top-level keys to their replacements.
var deprecatedKeys = map[string]string{
	KeyPythonPath: KeySearchRoots,
}

// ParseLogLevel maps a level name to a slog.Level. Empty means info.
func ParseLogLevel(level string) (slog.Level, error) {
	if level == "" {
		return slog.LevelInfo, nil
	}

	l, ok := validLogLevels[strings.ToLower(level)]
	if !ok {
		return 0, fmt.Errorf("log level %q: must be one of debug, info, warn, error", level)
	}

	return l, nil
}

// ValidateEnv checks every environment override and returns all errors
// found, so a user can fix them in one pass.
func ValidateEnv(env EnvOverrides) error {
	var errs []error

	if _, err := ParseLogLevel(env.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvLogLevel, err))
	}

	if err := ValidateLogFormat(env.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvLogFormat, err))
	}

	return errors.Join(errs...)
}

// ValidateLogFormat accepts auto, text, json or empty.
func ValidateLogFormat(format string) error {
	switch format {
	case "", LogFormatAuto, LogFormatText, LogFormatJSON:
		return nil
	default:
		return fmt.Errorf("log format %q: must be auto, text or json", format)
	}
}

// WarnDeprecatedKeys logs a warning for each deprecated key present in
// doc. Deprecated keys still take effect unless their replacement is
// also present.
func WarnDeprecatedKeys(path string, doc map[string]any, logger *slog.Logger) {
	for oldKey, newKey := range deprecatedKeys {
		if _, ok := doc[oldKey]; !ok {
			continue
		}

		_, shadowed := doc[newKey]

		logger.Warn("deprecated config key",
			slog.String("file", path),
			slog.String("key", oldKey),
			slog.String("replacement", newKey),
			slog.Bool("ignored", shadowed),
		)
	}
}
