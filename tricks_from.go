package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/watchmedo-go/internal/config"
	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
	"github.com/tonimelisma/watchmedo-go/internal/observer"
	"github.com/tonimelisma/watchmedo-go/internal/session"
	"github.com/tonimelisma/watchmedo-go/internal/trick"
)

type tricksFromOptions struct {
	searchRoots  string
	interval     time.Duration
	recursive    bool
	forcePolling bool
}

func newTricksFromCmd() *cobra.Command {
	var opts tricksFromOptions

	cmd := &cobra.Command{
		Use:     "tricks-from FILE...",
		Aliases: []string{"tricks"},
		Short:   "Run the tricks declared in tricks files",
		Long: `Load each tricks file, schedule its tricks on an observer of their own,
and run them all until interrupted. Tricks watch the directory containing
their file unless they set source_directory.

Trick names are resolved as written, then under each search root: the
file's "search-roots" first, then --search-roots (or ` + config.EnvSearchRoots + `),
then "` + trick.DefaultRoot + `".

Examples:
  watchmedo tricks-from tricks.yaml
  watchmedo tricks --search-roots=myproject.tricks dev.yaml docs.toml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			if opts.interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", opts.interval)
			}

			roots := cc.Env.SearchRoots
			if cmd.Flags().Changed("search-roots") {
				roots = config.SplitPathList(opts.searchRoots)
			}

			loader := trick.NewLoader(trick.DefaultRegistry, trick.DefaultRoot).WithRoots(roots)

			return runTricksFrom(cc, loader, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.searchRoots, "search-roots", "",
		"search roots for trick names, separated like PATH")
	cmd.Flags().DurationVar(&opts.interval, "interval", observer.DefaultInterval, "polling interval")
	cmd.Flags().BoolVar(&opts.recursive, "recursive", true, "watch directories recursively")
	cmd.Flags().BoolVar(&opts.forcePolling, "debug-force-polling", false, "[debug] force the polling backend")
	cmd.Flags().SetNormalizeFunc(normalizeFlagAliases)

	return cmd
}

// runTricksFrom schedules every file before starting anything, so a trick
// that fails to load aborts the run with no observer started.
func runTricksFrom(cc *CLIContext, loader *trick.Loader, files []string, opts tricksFromOptions) error {
	ctrl := shutdownController(cc.Logger)
	defer ctrl.Close()

	env := trickEnv(cc, ctrl)

	var (
		observers  []observer.Observer
		lifecycles []fsevent.Lifecycle
	)

	for _, file := range files {
		cfg, err := config.Load(file, cc.Logger)
		if err != nil {
			return err
		}

		obs := observer.New(observerOptions(cc, opts.interval, opts.forcePolling, false))

		handlers, err := trick.Schedule(obs, loader.WithRoots(cfg.SearchRoots), cfg.Tricks,
			config.DefaultWatchPath(file), opts.recursive, env)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}

		for _, h := range handlers {
			if lc, ok := h.(fsevent.Lifecycle); ok {
				lifecycles = append(lifecycles, lc)
			}
		}

		observers = append(observers, obs)

		cc.Statusf("Loaded %d trick(s) from %s\n", len(handlers), file)
	}

	defer stopLifecycles(cc.Logger, lifecycles)

	for _, lc := range lifecycles {
		if err := lc.Start(); err != nil {
			return err
		}
	}

	for i, obs := range observers {
		if err := obs.Start(); err != nil {
			stopObservers(cc.Logger, observers[:i])
			return fmt.Errorf("%s: %w", files[i], err)
		}
	}

	return session.New(ctrl, session.WithLogger(cc.Logger)).RunMulti(observers)
}

func stopLifecycles(logger *slog.Logger, lifecycles []fsevent.Lifecycle) {
	for _, lc := range lifecycles {
		if err := lc.Stop(); err != nil {
			logger.Warn("stopping trick", slog.String("error", err.Error()))
		}
	}
}

func stopObservers(logger *slog.Logger, observers []observer.Observer) {
	for _, obs := range observers {
		if err := obs.Stop(); err != nil {
			logger.Warn("stopping observer", slog.String("error", err.Error()))
		}
	}

	for _, obs := range observers {
		if err := obs.Join(); err != nil {
			logger.Warn("joining observer", slog.String("error", err.Error()))
		}
	}
}
