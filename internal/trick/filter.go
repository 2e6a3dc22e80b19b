package trick

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
)

// FilterParams are the parameters every built-in trick accepts.
type FilterParams struct {
	Patterns          PatternList `json:"patterns" yaml:"patterns"`
	IgnorePatterns    PatternList `json:"ignore_patterns" yaml:"ignore_patterns"`
	IgnoreDirectories bool        `json:"ignore_directories" yaml:"ignore_directories"`
	CaseSensitive     bool        `json:"case_sensitive" yaml:"case_sensitive"`
	SourceDirectory   string      `json:"source_directory,omitempty" yaml:"source_directory,omitempty"`
}

func defaultFilterParams() FilterParams {
	return FilterParams{Patterns: PatternList{"*"}, IgnorePatterns: PatternList{}}
}

// Filter decides which events reach a trick. An event passes when any of
// its paths matches an include pattern and no ignore pattern.
type Filter struct {
	include       []string
	exclude       []string
	ignoreDirs    bool
	caseSensitive bool
}

// NewFilter validates the patterns in p. A nil include list means "*".
func NewFilter(p FilterParams) (*Filter, error) {
	f := &Filter{ignoreDirs: p.IgnoreDirectories, caseSensitive: p.CaseSensitive}

	include := []string(p.Patterns)
	if include == nil {
		include = []string{"*"}
	}

	var err error
	if f.include, err = f.compile(include); err != nil {
		return nil, err
	}

	if f.exclude, err = f.compile(p.IgnorePatterns); err != nil {
		return nil, err
	}

	return f, nil
}

func (f *Filter) compile(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if _, err := filepath.Match(p, ""); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}

		out = append(out, f.normalize(p))
	}

	return out, nil
}

func (f *Filter) normalize(s string) string {
	s = norm.NFC.String(s)
	if !f.caseSensitive {
		s = strings.ToLower(s)
	}

	return s
}

// Match reports whether ev should be handled.
func (f *Filter) Match(ev fsevent.Event) bool {
	if f.ignoreDirs && ev.IsDir {
		return false
	}

	for _, p := range ev.Paths() {
		if f.matchPath(f.normalize(p)) {
			return true
		}
	}

	return false
}

func (f *Filter) matchPath(p string) bool {
	for _, pattern := range f.exclude {
		if matchPattern(pattern, p) {
			return false
		}
	}

	for _, pattern := range f.include {
		if matchPattern(pattern, p) {
			return true
		}
	}

	return false
}

// matchPattern matches a relative pattern against the trailing components
// of p, one glob per component, so "src/*.go" matches any ".../src/x.go"
// and "*.go" matches on the base name. An absolute pattern must match the
// whole path.
func matchPattern(pattern, p string) bool {
	if filepath.IsAbs(pattern) {
		ok, _ := filepath.Match(pattern, p)
		return ok
	}

	sep := string(filepath.Separator)
	globs := strings.Split(pattern, sep)
	parts := strings.Split(p, sep)

	if len(globs) > len(parts) {
		return false
	}

	tail := parts[len(parts)-len(globs):]
	for i, glob := range globs {
		if ok, _ := filepath.Match(glob, tail[i]); !ok {
			return false
		}
	}

	return true
}
