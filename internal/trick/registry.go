// Package trick resolves trick identifiers to constructors, builds the
// built-in tricks and schedules them on observers.
//
// A trick is an fsevent.Handler built from a parameter map. Tricks are
// named by dotted identifiers such as "watchdog.tricks.LoggerTrick";
// a Loader resolves short names against an ordered list of search roots.
package trick

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
)

// DefaultRoot is the search root under which the built-in tricks live.
const DefaultRoot = "watchdog.tricks"

// ErrRegistrySealed is returned by Register once the registry has served
// its first lookup.
var ErrRegistrySealed = errors.New("trick: registry is sealed")

// LoadError reports an identifier that no search root could resolve.
type LoadError struct {
	Identifier string
	Roots      []string
}

func (e *LoadError) Error() string {
	if len(e.Roots) == 0 {
		return fmt.Sprintf("trick: cannot resolve %q", e.Identifier)
	}

	return fmt.Sprintf("trick: cannot resolve %q (search roots: %s)",
		e.Identifier, strings.Join(e.Roots, ", "))
}

// Env carries what a trick needs from its host.
type Env struct {
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
	// Fatal ends the session. Tricks call it for conditions they cannot
	// recover from, such as a supervised command that fails to launch.
	Fatal func(error)
}

func (e Env) withDefaults() Env {
	if e.Logger == nil {
		e.Logger = slog.New(slog.DiscardHandler)
	}

	if e.Stdout == nil {
		e.Stdout = io.Discard
	}

	if e.Stderr == nil {
		e.Stderr = io.Discard
	}

	if e.Fatal == nil {
		e.Fatal = func(error) {}
	}

	return e
}

// Constructor builds a handler from a trick's parameter map. The handler
// validates its own parameters.
type Constructor func(params map[string]any, env Env) (fsevent.Handler, error)

// Factory is one registered trick.
type Factory struct {
	Name string
	New  Constructor
	// Template holds the default parameters, rendered under Name by
	// GenerateYAML.
	Template any
}

// Registry maps dotted identifiers to factories. It is filled at startup
// and read-only after the first lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	sealed    bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds f under f.Name.
func (r *Registry) Register(f Factory) error {
	if f.Name == "" || f.New == nil {
		return fmt.Errorf("trick: factory needs a name and a constructor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("registering %s: %w", f.Name, ErrRegistrySealed)
	}

	if _, dup := r.factories[f.Name]; dup {
		return fmt.Errorf("trick: %s registered twice", f.Name)
	}

	r.factories[f.Name] = f

	return nil
}

// MustRegister is Register for package initialization.
func (r *Registry) MustRegister(f Factory) {
	if err := r.Register(f); err != nil {
		panic(err)
	}
}

// Names returns every registered identifier, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (r *Registry) lookup(name string) (Factory, bool) {
	r.mu.RLock()
	if r.sealed {
		f, ok := r.factories[name]
		r.mu.RUnlock()

		return f, ok
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sealed = true
	f, ok := r.factories[name]

	return f, ok
}

// Loader resolves identifiers against a registry and an ordered list of
// search roots. Loaders are immutable; WithRoots returns a new one.
type Loader struct {
	registry *Registry
	roots    []string
}

// NewLoader returns a loader whose roots are tried in the given order.
func NewLoader(reg *Registry, roots ...string) *Loader {
	return &Loader{registry: reg, roots: cleanRoots(roots)}
}

// WithRoots returns a loader that tries roots, in order, ahead of l's own.
func (l *Loader) WithRoots(roots []string) *Loader {
	merged := make([]string, 0, len(roots)+len(l.roots))
	merged = append(merged, cleanRoots(roots)...)
	merged = append(merged, l.roots...)

	return &Loader{registry: l.registry, roots: merged}
}

// Roots returns the search roots, highest priority first.
func (l *Loader) Roots() []string {
	out := make([]string, len(l.roots))
	copy(out, l.roots)

	return out
}

// Resolve returns the factory for identifier: the identifier as written
// first, then qualified by each root in priority order.
func (l *Loader) Resolve(identifier string) (Factory, error) {
	id := strings.TrimSpace(identifier)
	if id != "" {
		if f, ok := l.registry.lookup(id); ok {
			return f, nil
		}

		for _, root := range l.roots {
			if f, ok := l.registry.lookup(root + "." + id); ok {
				return f, nil
			}
		}
	}

	return Factory{}, &LoadError{Identifier: identifier, Roots: l.Roots()}
}

// cleanRoots trims roots, drops empty ones and turns a filesystem-style
// root such as "." into nothing, since it names no namespace.
func cleanRoots(roots []string) []string {
	out := make([]string, 0, len(roots))

	for _, r := range roots {
		r = strings.Trim(strings.TrimSpace(r), ".")
		if r != "" {
			out = append(out, r)
		}
	}

	return out
}
