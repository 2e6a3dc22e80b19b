// Package supervisor owns one long-running child process and restarts it
// on demand. A restart always drives the previous child to termination,
// first with the configured stop signal and then with SIGKILL once the
// kill-after deadline passes, before the replacement is launched.
package supervisor

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Defaults match the auto-restart command's flag defaults.
const (
	DefaultStopSignal = syscall.SIGINT
	DefaultKillAfter  = 10 * time.Second
)

// State is the supervisor's view of its child.
type State int32

const (
	StateAbsent State = iota
	StateRunning
	StateStopping
	// StateFailed is terminal: the last launch failed and no further
	// launches are attempted.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config describes the supervised command.
type Config struct {
	Command    []string
	StopSignal syscall.Signal
	// KillAfter is how long a stopping child may take to exit before it is
	// killed. Zero kills it at once unless the stop signal already ended it.
	KillAfter time.Duration
	Dir       string
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Logger    *slog.Logger
}

// Supervisor holds at most one live child. Start, Restart and Stop are
// serialized by one mutex, so callers on different observer goroutines
// never overlap a stop with a launch.
type Supervisor struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	child     *child
	launchErr error
	state     atomic.Int32

	// onLaunch is called with the new child's PID while mu is held.
	onLaunch func(pid int)
}

type child struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error // valid once done is closed
}

func (c *child) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// waitExit waits up to d for the child to exit. A zero d only checks.
func (c *child) waitExit(d time.Duration) bool {
	if d <= 0 {
		return c.exited()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-c.done:
		return true
	case <-timer.C:
		return false
	}
}

// New validates cfg and returns an idle supervisor. No process is started.
func New(cfg Config) (*Supervisor, error) {
	if len(cfg.Command) == 0 || cfg.Command[0] == "" {
		return nil, ErrNoCommand
	}

	if cfg.StopSignal == 0 {
		cfg.StopSignal = DefaultStopSignal
	}

	if cfg.KillAfter < 0 {
		return nil, ErrNegativeKillAfter
	}

	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}

	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Supervisor{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "supervisor")),
	}, nil
}

// State returns the current state without blocking on an in-flight
// restart.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// PID returns the running child's process ID, or 0 when none is running.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.child == nil || s.child.exited() {
		return 0
	}

	return s.child.cmd.Process.Pid
}

// Start launches the child if none is running. It is a no-op while a
// child is alive and returns the original *LaunchError once failed.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.startLocked()
}

// Restart stops the current child (gracefully, then forcibly) and launches
// a replacement with the identical command line.
func (s *Supervisor) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == StateFailed {
		return s.launchErr
	}

	s.logger.Info("restarting supervised process")
	s.stopLocked()

	return s.startLocked()
}

// Stop terminates the child. Safe to call when nothing is running.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	return nil
}

func (s *Supervisor) startLocked() error {
	if s.State() == StateFailed {
		return s.launchErr
	}

	if s.child != nil && !s.child.exited() {
		return nil
	}

	c, err := s.launch()
	if err != nil {
		s.launchErr = &LaunchError{Command: s.cfg.Command, Err: err}
		s.child = nil
		s.state.Store(int32(StateFailed))

		s.logger.Error("supervised process failed to launch",
			slog.Any("command", s.cfg.Command),
			slog.String("error", err.Error()),
		)

		return s.launchErr
	}

	s.child = c
	s.state.Store(int32(StateRunning))

	s.logger.Info("supervised process started",
		slog.Any("command", s.cfg.Command),
		slog.Int("pid", c.cmd.Process.Pid),
	)

	if s.onLaunch != nil {
		s.onLaunch(c.cmd.Process.Pid)
	}

	return nil
}

func (s *Supervisor) launch() (*child, error) {
	cmd := exec.Command(s.cfg.Command[0], s.cfg.Command[1:]...) //nolint:gosec // command line is operator-supplied
	cmd.Dir = s.cfg.Dir
	cmd.Stdin = s.cfg.Stdin
	cmd.Stdout = s.cfg.Stdout
	cmd.Stderr = s.cfg.Stderr
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	c := &child{cmd: cmd, done: make(chan struct{})}

	go func() {
		c.err = cmd.Wait()
		close(c.done)
	}()

	return c, nil
}

// stopLocked drives the current child to termination. On return the
// child has been reaped.
func (s *Supervisor) stopLocked() {
	c := s.child
	if c == nil {
		return
	}

	s.state.Store(int32(StateStopping))

	defer func() {
		s.child = nil
		s.state.Store(int32(StateAbsent))
	}()

	if c.exited() {
		s.logger.Debug("supervised process already exited", slog.Any("exit", c.err))
		return
	}

	pid := c.cmd.Process.Pid

	if err := signalChild(c.cmd.Process, s.cfg.StopSignal); err != nil && !isGone(err) {
		s.logger.Warn("failed to deliver stop signal",
			slog.Int("pid", pid),
			slog.String("signal", s.cfg.StopSignal.String()),
			slog.String("error", err.Error()),
		)
	}

	if c.waitExit(s.cfg.KillAfter) {
		s.logger.Info("supervised process stopped", slog.Int("pid", pid))
		return
	}

	s.logger.Warn("supervised process ignored stop signal, killing",
		slog.Int("pid", pid),
		slog.Duration("kill_after", s.cfg.KillAfter),
	)

	if err := killChild(c.cmd.Process); err != nil && !isGone(err) {
		s.logger.Warn("failed to kill supervised process",
			slog.Int("pid", pid),
			slog.String("error", err.Error()),
		)
	}

	<-c.done
}
