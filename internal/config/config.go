// Package config loads tricks files. A tricks file is YAML (or TOML when
// its extension is .toml) holding an ordered "tricks" list and an optional
// "search-roots" list:
//
//	search-roots:
//	  - myproject.tricks
//	tricks:
//	  - watchdog.tricks.LoggerTrick:
//	      patterns: ["*.py"]
//
// The document is checked against an embedded JSON schema, unknown
// top-level keys are rejected with suggestions, and the result is an
// immutable WatchConfig.
package config

import (
	"errors"
	"fmt"
)

// Top-level keys of a tricks file.
const (
	KeyTricks      = "tricks"
	KeySearchRoots = "search-roots"
	// KeyPythonPath is the legacy name of KeySearchRoots.
	KeyPythonPath = "python-path"
)

// ErrMissingKey marks a ConfigError for a required key that is absent.
var ErrMissingKey = errors.New("missing key")

// TrickSpec is one entry of the tricks list: an identifier and the
// parameters passed to its constructor.
type TrickSpec struct {
	Identifier string
	Params     map[string]any
}

// WatchConfig is a parsed tricks file. Nothing mutates it after Load.
type WatchConfig struct {
	Path        string
	SearchRoots []string
	Tricks      []TrickSpec
}

// ConfigError reports a problem with one tricks file, optionally pinned
// to a key.
type ConfigError struct {
	Path string
	Key  string
	Err  error
}

func (e *ConfigError) Error() string {
	if errors.Is(e.Err, ErrMissingKey) {
		return fmt.Sprintf("No %q key specified in %s.", e.Key, e.Path)
	}

	if e.Key != "" {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Key, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
