package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/watchmedo-go/internal/observer"
	"github.com/tonimelisma/watchmedo-go/internal/session"
	"github.com/tonimelisma/watchmedo-go/internal/supervisor"
	"github.com/tonimelisma/watchmedo-go/internal/trick"
)

func newAutoRestartCmd() *cobra.Command {
	var (
		wf          watchFlags
		directories []string
		stopSignal  string
		killAfter   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "auto-restart COMMAND [ARG...]",
		Short: "Keep a command running and restart it on filesystem events",
		Long: `Start COMMAND and restart it whenever a matching event occurs in one of
the watched directories (default ".").

A restart sends --signal to the command's process group, waits up to
--kill-after for it to exit, kills it if it is still running, and only
then starts the replacement. Use -- before arguments meant for COMMAND.

Examples:
  watchmedo auto-restart -d . --patterns="*.go" --recursive -- go run ./cmd/server
  watchmedo auto-restart --signal SIGTERM --kill-after 5s -- ./worker --queue jobs`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := wf.validate(); err != nil {
				return err
			}

			killAfterSecs := trick.Seconds(killAfter)

			ctrl := shutdownController(cc.Logger)
			defer ctrl.Close()

			handler, err := trick.NewAutoRestartTrick(trick.AutoRestartParams{
				FilterParams: wf.filterParams(),
				Command:      args,
				StopSignal:   trick.SignalSpec(stopSignal),
				KillAfter:    &killAfterSecs,
			}, trickEnv(cc, ctrl))
			if err != nil {
				return err
			}

			if err := handler.Start(); err != nil {
				return err
			}

			defer func() {
				if stopErr := handler.Stop(); stopErr != nil {
					cc.Logger.Warn("stopping command", slog.String("error", stopErr.Error()))
				}
			}()

			obs := observer.New(observerOptions(cc, wf.interval, wf.forcePolling, false))

			return session.New(ctrl, session.WithLogger(cc.Logger)).
				RunSingle(obs, handler, directoriesOrDot(directories), wf.recursive)
		},
	}

	wf.register(cmd)
	// Flags after COMMAND belong to it.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringArrayVarP(&directories, "directory", "d", nil, "directory to watch (repeatable)")
	cmd.Flags().StringVar(&stopSignal, "signal", "SIGINT", "signal used to stop the command")
	cmd.Flags().DurationVar(&killAfter, "kill-after", supervisor.DefaultKillAfter,
		"kill the command if it has not exited this long after the stop signal (0 kills at once)")

	return cmd
}
