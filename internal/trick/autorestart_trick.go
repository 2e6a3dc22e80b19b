package trick

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
	"github.com/tonimelisma/watchmedo-go/internal/supervisor"
)

// AutoRestartParams configures AutoRestartTrick.
type AutoRestartParams struct {
	FilterParams `yaml:",inline"`
	Command      []string   `json:"command" yaml:"command"`
	StopSignal   SignalSpec `json:"stop_signal" yaml:"stop_signal"`
	KillAfter    *Seconds   `json:"kill_after" yaml:"kill_after"`
}

// AutoRestartTrick keeps one command running and restarts it on every
// matching event.
type AutoRestartTrick struct {
	filter    *Filter
	sourceDir string
	sup       *supervisor.Supervisor
	logger    *slog.Logger
	fatal     func(error)
}

// NewAutoRestartTrick builds an AutoRestartTrick from p. The command is
// not launched until Start.
func NewAutoRestartTrick(p AutoRestartParams, env Env) (*AutoRestartTrick, error) {
	env = env.withDefaults()

	f, err := NewFilter(p.FilterParams)
	if err != nil {
		return nil, fmt.Errorf("AutoRestartTrick: %w", err)
	}

	sig, err := p.StopSignal.signal()
	if err != nil {
		return nil, fmt.Errorf("AutoRestartTrick: %w", err)
	}

	killAfter := supervisor.DefaultKillAfter
	if p.KillAfter != nil {
		killAfter = time.Duration(*p.KillAfter)
	}

	logger := env.Logger.With(slog.String("trick", "AutoRestartTrick"))

	sup, err := supervisor.New(supervisor.Config{
		Command:    p.Command,
		StopSignal: sig,
		KillAfter:  killAfter,
		Stdout:     env.Stdout,
		Stderr:     env.Stderr,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("AutoRestartTrick: %w", err)
	}

	return &AutoRestartTrick{
		filter:    f,
		sourceDir: p.SourceDirectory,
		sup:       sup,
		logger:    logger,
		fatal:     env.Fatal,
	}, nil
}

func newAutoRestartTrick(params map[string]any, env Env) (fsevent.Handler, error) {
	p := AutoRestartParams{FilterParams: defaultFilterParams()}
	if err := decodeParams(params, &p); err != nil {
		return nil, fmt.Errorf("AutoRestartTrick: %w", err)
	}

	return NewAutoRestartTrick(p, env)
}

// SourceDirectory implements fsevent.PathOverrider.
func (t *AutoRestartTrick) SourceDirectory() string {
	return t.sourceDir
}

// Start launches the command.
func (t *AutoRestartTrick) Start() error {
	return t.sup.Start()
}

// Stop stops the command, force-killing it after the kill-after deadline.
func (t *AutoRestartTrick) Stop() error {
	return t.sup.Stop()
}

// Dispatch implements fsevent.Handler.
func (t *AutoRestartTrick) Dispatch(ev fsevent.Event) {
	if !t.filter.Match(ev) {
		return
	}

	if t.sup.State() == supervisor.StateFailed {
		return
	}

	t.logger.Info("restarting command",
		slog.String("event", string(ev.Type)),
		slog.String("src_path", ev.SrcPath),
	)

	if err := t.sup.Restart(); err != nil {
		var launchErr *supervisor.LaunchError
		if errors.As(err, &launchErr) {
			t.fatal(err)
			return
		}

		t.logger.Error("restart failed", slog.String("error", err.Error()))
	}
}
