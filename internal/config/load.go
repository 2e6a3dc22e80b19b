package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads, validates and converts the tricks file at path. Unknown
// top-level keys are fatal, with "did you mean?" suggestions. A missing
// file yields an error wrapping fs.ErrNotExist that names the file.
func Load(path string, logger *slog.Logger) (*WatchConfig, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tricks file: %w", err)
	}

	doc, err := decode(path, data)
	if err != nil {
		return nil, err
	}

	if _, ok := doc[KeyTricks]; !ok {
		return nil, &ConfigError{Path: path, Key: KeyTricks, Err: ErrMissingKey}
	}

	if err := checkUnknownKeys(path, doc); err != nil {
		return nil, err
	}

	if err := validateSchema(path, doc); err != nil {
		return nil, err
	}

	WarnDeprecatedKeys(path, doc, logger)

	cfg := &WatchConfig{Path: path}

	rootsKey := KeySearchRoots
	if _, ok := doc[KeySearchRoots]; !ok {
		rootsKey = KeyPythonPath
	}

	cfg.SearchRoots = toStringList(doc[rootsKey])

	items, _ := doc[KeyTricks].([]any)
	for _, item := range items {
		entry, _ := item.(map[string]any)
		for id, params := range entry {
			p, _ := params.(map[string]any)
			if p == nil {
				p = map[string]any{}
			}

			cfg.Tricks = append(cfg.Tricks, TrickSpec{Identifier: id, Params: p})
		}
	}

	logger.Debug("tricks file loaded",
		slog.String("path", path),
		slog.Int("tricks", len(cfg.Tricks)),
		slog.Int("search_roots", len(cfg.SearchRoots)),
	)

	return cfg, nil
}

// decode parses data as TOML or YAML depending on path's extension.
func decode(path string, data []byte) (map[string]any, error) {
	doc := map[string]any{}

	if isTOML(path) {
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, &ConfigError{Path: path, Err: fmt.Errorf("parsing TOML: %w", err)}
		}

		return normalize(doc).(map[string]any), nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("parsing YAML: %w", err)}
	}

	if raw == nil {
		return doc, nil
	}

	m, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, &ConfigError{Path: path, Err: errors.New("top level must be a mapping")}
	}

	return m, nil
}

// normalize converts decoder output into plain map[string]any and []any
// trees. TOML arrays of tables decode as []map[string]any and YAML maps
// with non-string keys as map[any]any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}

		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}

		return m
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}

		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}

		return t
	default:
		return v
	}
}

// toStringList accepts a list of strings or one PATH-style string.
func toStringList(v any) []string {
	switch t := v.(type) {
	case string:
		return SplitPathList(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, s := range t {
			if str, ok := s.(string); ok && str != "" {
				out = append(out, str)
			}
		}

		return out
	default:
		return nil
	}
}
