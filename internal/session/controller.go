package session

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// DefaultSignals are the termination signals Install listens for when
// given none.
var DefaultSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// Controller is the process-wide shutdown flag. It flips from armed to
// triggered exactly once, either on the first termination signal or on
// Trigger; every later request is a no-op.
type Controller struct {
	logger *slog.Logger

	triggered   atomic.Bool
	transitions atomic.Int32

	mu     sync.Mutex
	cause  error
	sigCh  chan os.Signal
	done   chan struct{}
	closed bool
}

// NewController returns an armed controller.
func NewController(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Controller{
		logger: logger.With(slog.String("component", "shutdown")),
		done:   make(chan struct{}),
	}
}

// Install starts listening for sigs (DefaultSignals when empty). The first
// delivery ignores the whole set for the rest of the process lifetime and
// triggers the controller.
func (c *Controller) Install(sigs ...os.Signal) {
	if len(sigs) == 0 {
		sigs = DefaultSignals
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sigCh != nil || c.closed {
		return
	}

	c.sigCh = make(chan os.Signal, 1)
	signal.Notify(c.sigCh, sigs...)

	go c.watch(c.sigCh, sigs)
}

func (c *Controller) watch(ch <-chan os.Signal, sigs []os.Signal) {
	for {
		select {
		case sig := <-ch:
			if !c.flip(nil) {
				c.logger.Debug("shutdown already in progress, signal discarded",
					slog.String("signal", sig.String()))

				continue
			}

			signal.Ignore(sigs...)
			c.logger.Info("received signal, shutting down", slog.String("signal", sig.String()))

		case <-c.done:
			return
		}
	}
}

// Trigger requests shutdown for a reason other than a signal. A non-nil
// cause is reported by Err. It returns false if the controller had
// already triggered.
func (c *Controller) Trigger(cause error) bool {
	if !c.flip(cause) {
		return false
	}

	if cause != nil {
		c.logger.Error("shutting down", slog.String("error", cause.Error()))
	}

	return true
}

func (c *Controller) flip(cause error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.triggered.CompareAndSwap(false, true) {
		return false
	}

	c.cause = cause
	c.transitions.Add(1)

	return true
}

// Triggered reports whether shutdown has been requested.
func (c *Controller) Triggered() bool {
	return c.triggered.Load()
}

// Err returns the cause passed to Trigger, or nil after a signal.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cause
}

// Close stops signal delivery to the controller. Signals already ignored
// stay ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true

	if c.sigCh != nil {
		signal.Stop(c.sigCh)
	}

	close(c.done)
}
