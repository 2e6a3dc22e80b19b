package trick

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"

	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
)

// Default commands used when no shell_command is configured.
const (
	defaultShellCommand      = `echo "${watch_event_type} ${watch_object} ${watch_src_path}"`
	defaultShellCommandMoved = `echo "${watch_event_type} ${watch_object} from ${watch_src_path} to ${watch_dest_path}"`
)

// ShellParams configures ShellCommandTrick.
type ShellParams struct {
	FilterParams      `yaml:",inline"`
	ShellCommand      string `json:"shell_command" yaml:"shell_command"`
	WaitForProcess    bool   `json:"wait_for_process" yaml:"wait_for_process"`
	DropDuringProcess bool   `json:"drop_during_process" yaml:"drop_during_process"`
}

// ShellCommandTrick runs a shell command for every matching event.
type ShellCommandTrick struct {
	filter    *Filter
	sourceDir string
	command   string
	gate      *Gate
	logger    *slog.Logger
	stdout    io.Writer
	stderr    io.Writer
}

// NewShellCommandTrick builds a ShellCommandTrick from p.
func NewShellCommandTrick(p ShellParams, env Env) (*ShellCommandTrick, error) {
	env = env.withDefaults()

	mode, err := GateModeFor(p.WaitForProcess, p.DropDuringProcess)
	if err != nil {
		return nil, fmt.Errorf("ShellCommandTrick: %w", err)
	}

	f, err := NewFilter(p.FilterParams)
	if err != nil {
		return nil, fmt.Errorf("ShellCommandTrick: %w", err)
	}

	logger := env.Logger.With(slog.String("trick", "ShellCommandTrick"))

	return &ShellCommandTrick{
		filter:    f,
		sourceDir: p.SourceDirectory,
		command:   p.ShellCommand,
		gate:      NewGate(mode, logger),
		logger:    logger,
		stdout:    env.Stdout,
		stderr:    env.Stderr,
	}, nil
}

func newShellCommandTrick(params map[string]any, env Env) (fsevent.Handler, error) {
	p := ShellParams{FilterParams: defaultFilterParams()}
	if err := decodeParams(params, &p); err != nil {
		return nil, fmt.Errorf("ShellCommandTrick: %w", err)
	}

	return NewShellCommandTrick(p, env)
}

// SourceDirectory implements fsevent.PathOverrider.
func (t *ShellCommandTrick) SourceDirectory() string {
	return t.sourceDir
}

// Dispatch implements fsevent.Handler.
func (t *ShellCommandTrick) Dispatch(ev fsevent.Event) {
	if !t.filter.Match(ev) {
		return
	}

	command := t.command
	if command == "" {
		command = defaultShellCommand
		if ev.Type == fsevent.Moved {
			command = defaultShellCommandMoved
		}
	}

	command = Substitute(command, ev)

	t.gate.Run(func() error {
		t.logger.Debug("running command", slog.String("command", command))

		cmd := exec.Command("sh", "-c", command)
		cmd.Stdout = t.stdout
		cmd.Stderr = t.stderr

		return cmd.Run()
	})
}

// Start implements fsevent.Lifecycle. Commands only run on events.
func (t *ShellCommandTrick) Start() error {
	return nil
}

// Stop implements fsevent.Lifecycle. In drop-if-busy mode it blocks until
// the command in flight has finished; serialized commands have already
// finished once the observer is joined. Unbounded commands are left to
// run.
func (t *ShellCommandTrick) Stop() error {
	if t.gate.mode == GateUnbounded {
		return nil
	}

	t.gate.Wait()

	return nil
}

var placeholder = regexp.MustCompile(`\$(?:(\$)|\{([_a-zA-Z][_a-zA-Z0-9]*)\}|([_a-zA-Z][_a-zA-Z0-9]*))`)

// Substitute replaces $name and ${name} for the watch_* variables of ev.
// Values are inserted literally; unknown names and watch_dest_path on
// events other than moves are left as written. "$$" yields "$".
func Substitute(command string, ev fsevent.Event) string {
	vars := map[string]string{
		"watch_src_path":   ev.SrcPath,
		"watch_event_type": string(ev.Type),
		"watch_object":     ev.Object(),
	}
	if ev.Type == fsevent.Moved {
		vars["watch_dest_path"] = ev.DestPath
	}

	return placeholder.ReplaceAllStringFunc(command, func(m string) string {
		sub := placeholder.FindStringSubmatch(m)

		switch {
		case sub[1] != "":
			return "$"
		case sub[2] != "":
			if v, ok := vars[sub[2]]; ok {
				return v
			}
		case sub[3] != "":
			if v, ok := vars[sub[3]]; ok {
				return v
			}
		}

		return m
	})
}
