// Package observer turns filesystem changes into fsevent.Event values and
// dispatches them, in registration order, to the handlers scheduled on it.
//
// An observer moves strictly forward through building, started, stopping
// and stopped. Watches can only be scheduled while building. Each observer
// runs its change-detection backend on one goroutine and calls handlers
// from that goroutine, so handlers registered on the same observer never
// run concurrently with each other.
package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"vawter.tech/stopper"

	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
)

// Lifecycle errors.
var (
	ErrNotBuilding    = errors.New("observer: watches can only be scheduled before start")
	ErrAlreadyStarted = errors.New("observer: already started")
)

// stopGrace is how long backend goroutines get to return after Stop
// before their context is canceled.
const stopGrace = 100 * time.Millisecond

// DefaultInterval is the polling backend's scan interval.
const DefaultInterval = time.Second

// Observer is the contract the session and the trick scheduler rely on.
type Observer interface {
	Schedule(h fsevent.Handler, path string, recursive bool) (*Watch, error)
	Start() error
	Stop() error
	Join() error
	UnscheduleAll()
}

// State is an observer's lifecycle position.
type State int32

const (
	StateBuilding State = iota
	StateStarted
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Watch is one (handler, path, recursive) registration.
type Watch struct {
	ID        string
	Path      string
	Recursive bool
	Handler   fsevent.Handler
}

// covers reports whether p falls inside the watch.
func (w *Watch) covers(p string) bool {
	if p == w.Path {
		return true
	}

	rel, err := filepath.Rel(w.Path, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}

	if w.Recursive {
		return true
	}

	return !strings.Contains(rel, string(filepath.Separator))
}

func (w *Watch) matches(ev fsevent.Event) bool {
	for _, p := range ev.Paths() {
		if w.covers(p) {
			return true
		}
	}

	return false
}

// Backend selects the change-detection mechanism.
type Backend int

const (
	// BackendNative uses the platform notification API through fsnotify.
	BackendNative Backend = iota
	// BackendPolling rescans the watched trees every Interval.
	BackendPolling
)

// Options configures an observer.
type Options struct {
	Backend  Backend
	Interval time.Duration
	Logger   *slog.Logger
	// Trace logs every dispatch at info level.
	Trace bool
}

// backend is the change-detection half of an observer. start runs
// synchronously inside Start so setup errors reach the caller; run blocks
// until sctx is stopping.
type backend interface {
	start(watches []*Watch) error
	run(sctx *stopper.Context, emit func(fsevent.Event)) error
}

// FSObserver is the Observer implementation shared by both backends.
type FSObserver struct {
	backend backend
	logger  *slog.Logger
	trace   bool

	state atomic.Int32

	mu      sync.RWMutex
	watches []*Watch

	lifecycle sync.Mutex
	sctx      *stopper.Context
}

// New returns an observer in the building state.
func New(opts Options) *FSObserver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	var b backend
	if opts.Backend == BackendPolling {
		b = newPollBackend(interval, logger)
	} else {
		b = newNotifyBackend(logger)
	}

	return newWithBackend(b, logger, opts.Trace)
}

func newWithBackend(b backend, logger *slog.Logger, trace bool) *FSObserver {
	return &FSObserver{
		backend: b,
		logger:  logger.With(slog.String("component", "observer")),
		trace:   trace,
	}
}

// State returns the current lifecycle state.
func (o *FSObserver) State() State {
	return State(o.state.Load())
}

// Schedule registers h for events under path. Registration order is
// dispatch order.
func (o *FSObserver) Schedule(h fsevent.Handler, path string, recursive bool) (*Watch, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("observer: resolving %s: %w", path, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// Checked under mu so Start cannot snapshot the list mid-append.
	if o.State() != StateBuilding {
		return nil, ErrNotBuilding
	}

	w := &Watch{
		ID:        uuid.NewString(),
		Path:      abs,
		Recursive: recursive,
		Handler:   h,
	}
	o.watches = append(o.watches, w)

	o.logger.Debug("watch scheduled",
		slog.String("watch_id", w.ID),
		slog.String("path", abs),
		slog.Bool("recursive", recursive),
		slog.String("handler", fmt.Sprintf("%T", h)),
	)

	return w, nil
}

// snapshotWatches returns the registered watches in registration order.
func (o *FSObserver) snapshotWatches() []*Watch {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]*Watch, len(o.watches))
	copy(out, o.watches)

	return out
}

// UnscheduleAll drops every watch; no handler is called afterward.
func (o *FSObserver) UnscheduleAll() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.watches = nil
}

// Start sets up the backend and launches its goroutine.
func (o *FSObserver) Start() error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	o.mu.Lock()
	if !o.state.CompareAndSwap(int32(StateBuilding), int32(StateStarted)) {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}

	watches := make([]*Watch, len(o.watches))
	copy(watches, o.watches)
	o.mu.Unlock()

	if err := o.backend.start(watches); err != nil {
		// Nothing was launched; the observer is finished.
		o.state.Store(int32(StateStopped))
		return fmt.Errorf("observer: starting backend: %w", err)
	}

	o.sctx = stopper.WithContext(context.Background())
	o.sctx.Go(func(sctx *stopper.Context) error {
		return o.backend.run(sctx, o.dispatch)
	})

	o.logger.Info("observer started", slog.Int("watches", len(watches)))

	return nil
}

// Stop asks the backend goroutine to exit. A handler call already in
// progress is allowed to finish. Stop does not wait; use Join.
func (o *FSObserver) Stop() error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	switch o.State() {
	case StateBuilding:
		o.state.Store(int32(StateStopped))
		return nil
	case StateStarted:
		o.state.Store(int32(StateStopping))
		o.sctx.Stop(stopGrace)

		return nil
	default:
		return nil
	}
}

// Join waits for the backend goroutine to exit after Stop.
func (o *FSObserver) Join() error {
	o.lifecycle.Lock()
	sctx := o.sctx
	o.lifecycle.Unlock()

	if sctx == nil {
		return nil
	}

	err := sctx.Wait()
	o.state.Store(int32(StateStopped))

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("observer: backend: %w", err)
	}

	return nil
}

// dispatch delivers ev to every covering watch in registration order.
func (o *FSObserver) dispatch(ev fsevent.Event) {
	if o.State() != StateStarted {
		return
	}

	for _, w := range o.snapshotWatches() {
		if !w.matches(ev) {
			continue
		}

		if o.trace {
			o.logger.Info("dispatch",
				slog.String("watch_id", w.ID),
				slog.String("event", string(ev.Type)),
				slog.String("src_path", ev.SrcPath),
				slog.String("dest_path", ev.DestPath),
				slog.String("handler", fmt.Sprintf("%T", w.Handler)),
			)
		}

		w.Handler.Dispatch(ev)
	}
}
