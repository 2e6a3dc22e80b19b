package config

import (
	"os"
	"path/filepath"
	"strings"
)

// SplitPathList splits a list separated by os.PathListSeparator, dropping
// empty elements.
func SplitPathList(spec string) []string {
	if spec == "" {
		return nil
	}

	var out []string

	for _, p := range strings.Split(spec, string(os.PathListSeparator)) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// DefaultWatchPath returns the directory watched for tricks from the file
// at path: its directory, or "." when path has none.
func DefaultWatchPath(path string) string {
	dir := filepath.Dir(path)
	if dir == "" {
		return "."
	}

	return dir
}

// isTOML reports whether path names a TOML tricks file.
func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
