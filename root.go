package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/watchmedo-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// CLIFlags holds the persistent flags shared by every subcommand.
type CLIFlags struct {
	Verbose   bool
	Quiet     bool
	LogFormat string
}

// CLIContext is built once in the root pre-run and handed to subcommands
// through the command context.
type CLIContext struct {
	Flags  CLIFlags
	Env    config.EnvOverrides
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

// mustCLIContext returns the CLIContext stored by the root pre-run. Every
// subcommand runs after it, so a missing context is a programming error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("watchmedo: command run without CLIContext")
	}

	return cc
}

// newRootCmd builds the root command with every subcommand registered.
func newRootCmd() *cobra.Command {
	var flags CLIFlags

	cmd := &cobra.Command{
		Use:     "watchmedo",
		Short:   "Run tricks in response to filesystem events",
		Long:    "Watch directories and log changes, run shell commands, or keep a process restarted when files change.",
		Version: version,
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if flags.Verbose && flags.Quiet {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}

			env := config.ReadEnvOverrides()
			if err := config.ValidateEnv(env); err != nil {
				return fmt.Errorf("environment: %w", err)
			}

			if err := config.ValidateLogFormat(flags.LogFormat); err != nil {
				return err
			}

			logger, err := buildLogger(flags, env, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			cc := &CLIContext{
				Flags:  flags,
				Env:    env,
				Logger: logger,
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			}

			cmd.SetContext(withCLIContext(cmd.Context(), cc))

			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "only log errors")
	cmd.PersistentFlags().StringVar(&flags.LogFormat, "log-format", "",
		"log format: auto, text or json (default from "+config.EnvLogFormat+", else auto)")

	cmd.AddCommand(newTricksFromCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newLogCmd())
	cmd.AddCommand(newShellCommandCmd())
	cmd.AddCommand(newAutoRestartCmd())

	return cmd
}

// buildLogger creates the process logger. The environment provides the
// baseline level and format; --verbose, --quiet and --log-format win.
func buildLogger(flags CLIFlags, env config.EnvOverrides, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLogLevel(env.LogLevel)
	if err != nil {
		return nil, err
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	format := env.LogFormat
	if flags.LogFormat != "" {
		format = flags.LogFormat
	}

	if format == "" || format == config.LogFormatAuto {
		format = config.LogFormatJSON
		if isTerminal(w) {
			format = config.LogFormatText
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
