package trick

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrConflictingGateModes is returned when both waiting for and dropping
// during a running command are requested.
var ErrConflictingGateModes = errors.New("trick: wait_for_process and drop_during_process are mutually exclusive")

// GateMode controls how command runs overlap.
type GateMode int

const (
	// GateUnbounded runs every command in the background.
	GateUnbounded GateMode = iota
	// GateSerialize runs each command to completion before returning,
	// so the next event waits for it.
	GateSerialize
	// GateDropIfBusy discards events while a command is running.
	GateDropIfBusy
)

func (m GateMode) String() string {
	switch m {
	case GateUnbounded:
		return "unbounded"
	case GateSerialize:
		return "serialize"
	case GateDropIfBusy:
		return "drop-if-busy"
	default:
		return "unknown"
	}
}

// GateModeFor maps the wait/drop flags to a mode.
func GateModeFor(wait, drop bool) (GateMode, error) {
	switch {
	case wait && drop:
		return 0, ErrConflictingGateModes
	case wait:
		return GateSerialize, nil
	case drop:
		return GateDropIfBusy, nil
	default:
		return GateUnbounded, nil
	}
}

// Gate applies a GateMode to command runs.
type Gate struct {
	mode   GateMode
	logger *slog.Logger

	busy atomic.Bool
	mu   sync.Mutex
	wg   sync.WaitGroup
}

// NewGate returns a gate in the given mode.
func NewGate(mode GateMode, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Gate{mode: mode, logger: logger}
}

// Run executes fn according to the gate's mode and reports whether fn was
// accepted. fn's error is logged.
func (g *Gate) Run(fn func() error) bool {
	switch g.mode {
	case GateSerialize:
		g.mu.Lock()
		defer g.mu.Unlock()

		g.report(fn())

		return true

	case GateDropIfBusy:
		if !g.busy.CompareAndSwap(false, true) {
			g.logger.Debug("command still running, event dropped")
			return false
		}

		g.wg.Add(1)

		go func() {
			defer g.wg.Done()
			defer g.busy.Store(false)

			g.report(fn())
		}()

		return true

	default:
		g.wg.Add(1)

		go func() {
			defer g.wg.Done()

			g.report(fn())
		}()

		return true
	}
}

// Wait blocks until every background run has finished.
func (g *Gate) Wait() {
	g.wg.Wait()
}

func (g *Gate) report(err error) {
	if err != nil {
		g.logger.Warn("command failed", slog.String("error", err.Error()))
	}
}
