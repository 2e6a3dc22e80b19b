package trick

import (
	"fmt"
	"log/slog"

	"github.com/tonimelisma/watchmedo-go/internal/config"
	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
	"github.com/tonimelisma/watchmedo-go/internal/observer"
)

// Schedule resolves, builds and registers each spec on obs, in order.
// A handler that declares a source directory is watched there; the rest
// are watched at defaultPath.
//
// Scheduling stops at the first spec that fails to resolve, build or
// register. Handlers registered before it stay registered and are
// returned along with the error.
func Schedule(
	obs observer.Observer,
	loader *Loader,
	specs []config.TrickSpec,
	defaultPath string,
	recursive bool,
	env Env,
) ([]fsevent.Handler, error) {
	env = env.withDefaults()
	handlers := make([]fsevent.Handler, 0, len(specs))

	for i, spec := range specs {
		f, err := loader.Resolve(spec.Identifier)
		if err != nil {
			return handlers, err
		}

		h, err := f.New(spec.Params, env)
		if err != nil {
			return handlers, fmt.Errorf("tricks[%d] %s: %w", i, spec.Identifier, err)
		}

		path := defaultPath
		if po, ok := h.(fsevent.PathOverrider); ok && po.SourceDirectory() != "" {
			path = po.SourceDirectory()
		}

		if _, err := obs.Schedule(h, path, recursive); err != nil {
			return handlers, fmt.Errorf("tricks[%d] %s: %w", i, spec.Identifier, err)
		}

		env.Logger.Debug("trick scheduled",
			slog.String("trick", f.Name),
			slog.String("path", path),
			slog.Bool("recursive", recursive),
		)

		handlers = append(handlers, h)
	}

	return handlers, nil
}
