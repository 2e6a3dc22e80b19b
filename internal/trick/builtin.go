package trick

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tonimelisma/watchmedo-go/internal/supervisor"
)

// Identifiers of the built-in tricks.
const (
	LoggerTrickName       = DefaultRoot + ".LoggerTrick"
	ShellCommandTrickName = DefaultRoot + ".ShellCommandTrick"
	AutoRestartTrickName  = DefaultRoot + ".AutoRestartTrick"
)

// DefaultRegistry holds the built-in tricks.
var DefaultRegistry = NewBuiltinRegistry()

// NewBuiltinRegistry returns a fresh registry holding the built-in tricks.
// Callers may register more before the first lookup.
func NewBuiltinRegistry() *Registry {
	killAfter := Seconds(supervisor.DefaultKillAfter)

	r := NewRegistry()
	r.MustRegister(Factory{
		Name:     LoggerTrickName,
		New:      newLoggerTrick,
		Template: LoggerParams{FilterParams: defaultFilterParams()},
	})
	r.MustRegister(Factory{
		Name: ShellCommandTrickName,
		New:  newShellCommandTrick,
		Template: ShellParams{
			FilterParams: defaultFilterParams(),
			ShellCommand: defaultShellCommand,
		},
	})
	r.MustRegister(Factory{
		Name: AutoRestartTrickName,
		New:  newAutoRestartTrick,
		Template: AutoRestartParams{
			FilterParams: defaultFilterParams(),
			Command:      []string{},
			StopSignal:   "SIGINT",
			KillAfter:    &killAfter,
		},
	})

	return r
}

// GenerateYAML renders f's template as one entry of a tricks list.
func GenerateYAML(f Factory) ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	entry := []map[string]any{{f.Name: f.Template}}
	if err := enc.Encode(entry); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", f.Name, err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", f.Name, err)
	}

	return buf.Bytes(), nil
}

// GenerateHeader renders the document header that precedes generated
// trick entries.
func GenerateHeader(roots []string) ([]byte, error) {
	if roots == nil {
		roots = []string{}
	}

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(map[string][]string{"search-roots": roots}); err != nil {
		return nil, fmt.Errorf("rendering header: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("rendering header: %w", err)
	}

	buf.WriteString("tricks:\n")

	return buf.Bytes(), nil
}
