package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tonimelisma/watchmedo-go/internal/observer"
	"github.com/tonimelisma/watchmedo-go/internal/trick"
)

// watchFlags are the observer and pattern flags shared by log,
// shell-command and auto-restart.
type watchFlags struct {
	patterns          string
	ignorePatterns    string
	ignoreDirectories bool
	caseSensitive     bool
	recursive         bool
	interval          time.Duration
	forcePolling      bool
}

func (f *watchFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.patterns, "patterns", "p", "*", "match event paths with these patterns (separated by ;)")
	fs.StringVarP(&f.ignorePatterns, "ignore-patterns", "i", "", "ignore event paths with these patterns (separated by ;)")
	fs.BoolVarP(&f.ignoreDirectories, "ignore-directories", "D", false, "ignore events for directories")
	fs.BoolVar(&f.caseSensitive, "case-sensitive", false, "match patterns case-sensitively")
	fs.BoolVarP(&f.recursive, "recursive", "R", false, "monitor directories recursively")
	fs.DurationVar(&f.interval, "interval", observer.DefaultInterval, "polling interval")
	fs.BoolVar(&f.forcePolling, "debug-force-polling", false, "[debug] force the polling backend")
	fs.SetNormalizeFunc(normalizeFlagAliases)
}

// flagAliases keeps the singular and legacy spellings working.
var flagAliases = map[string]string{
	"pattern":        "patterns",
	"ignore-pattern": "ignore-patterns",
	"timeout":        "interval",
}

func normalizeFlagAliases(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if canonical, ok := flagAliases[name]; ok {
		name = canonical
	}

	return pflag.NormalizedName(name)
}

func (f *watchFlags) filterParams() trick.FilterParams {
	patterns := trick.SplitPatterns(f.patterns)
	if patterns == nil {
		patterns = []string{"*"}
	}

	return trick.FilterParams{
		Patterns:          patterns,
		IgnorePatterns:    trick.SplitPatterns(f.ignorePatterns),
		IgnoreDirectories: f.ignoreDirectories,
		CaseSensitive:     f.caseSensitive,
	}
}

func (f *watchFlags) validate() error {
	if f.interval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", f.interval)
	}

	return nil
}

func observerOptions(cc *CLIContext, interval time.Duration, forcePolling, trace bool) observer.Options {
	opts := observer.Options{
		Backend:  observer.BackendNative,
		Interval: interval,
		Logger:   cc.Logger,
		Trace:    trace,
	}

	if forcePolling {
		opts.Backend = observer.BackendPolling
	}

	return opts
}
