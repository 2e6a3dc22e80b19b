// Package session runs observers until shutdown is requested and then
// tears them down.
//
// The wait between start and teardown is a fixed-interval poll of the
// Controller's flag. Nothing else ends a session; a handler that hits a
// fatal condition calls Controller.Trigger.
package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
	"github.com/tonimelisma/watchmedo-go/internal/observer"
)

// DefaultTick is how often the run loop checks for shutdown.
const DefaultTick = time.Second

// Option configures a Session.
type Option func(*Session)

// WithTick overrides DefaultTick.
func WithTick(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithLogger sets the session's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session blocks the calling goroutine while observers run.
type Session struct {
	ctrl   *Controller
	tick   time.Duration
	logger *slog.Logger
}

// New returns a session that ends when ctrl triggers.
func New(ctrl *Controller, opts ...Option) *Session {
	s := &Session{
		ctrl:   ctrl,
		tick:   DefaultTick,
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With(slog.String("component", "session"))

	return s
}

// RunSingle schedules h on each distinct path, starts obs, waits for
// shutdown, and stops and joins obs. Paths keep their first-occurrence
// order. It returns the Controller's cause, if any.
func (s *Session) RunSingle(obs observer.Observer, h fsevent.Handler, paths []string, recursive bool) error {
	for _, p := range dedupe(paths) {
		if _, err := obs.Schedule(h, p, recursive); err != nil {
			return fmt.Errorf("scheduling %s: %w", p, err)
		}
	}

	if err := obs.Start(); err != nil {
		return err
	}

	s.Wait()

	if err := obs.Stop(); err != nil {
		s.logTeardown("stop", 0, err)
	}

	if err := obs.Join(); err != nil {
		s.logTeardown("join", 0, err)
	}

	return s.ctrl.Err()
}

// RunMulti waits for shutdown while observers, already started, run.
// Teardown unschedules every watch, stops each observer in order and
// then joins each; a failing observer does not prevent the rest from
// being torn down. It returns the Controller's cause, if any.
func (s *Session) RunMulti(observers []observer.Observer) error {
	s.Wait()

	var errs []error

	for i, o := range observers {
		o.UnscheduleAll()

		if err := o.Stop(); err != nil {
			s.logTeardown("stop", i, err)
			errs = append(errs, err)
		}
	}

	for i, o := range observers {
		if err := o.Join(); err != nil {
			s.logTeardown("join", i, err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		s.logger.Warn("teardown finished with errors", slog.Int("errors", len(errs)))
	}

	return s.ctrl.Err()
}

// Wait blocks until the Controller triggers, checking once per tick.
func (s *Session) Wait() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for !s.ctrl.Triggered() {
		<-ticker.C
	}
}

func (s *Session) logTeardown(step string, index int, err error) {
	s.logger.Warn("teardown error",
		slog.String("step", step),
		slog.Int("observer", index),
		slog.String("error", err.Error()),
	)
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))

	for _, p := range paths {
		if seen[p] {
			continue
		}

		seen[p] = true
		out = append(out, p)
	}

	return out
}
