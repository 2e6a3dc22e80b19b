package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/watchmedo-go/internal/observer"
	"github.com/tonimelisma/watchmedo-go/internal/session"
	"github.com/tonimelisma/watchmedo-go/internal/trick"
)

func newShellCommandCmd() *cobra.Command {
	var (
		wf      watchFlags
		command string
		wait    bool
		drop    bool
	)

	cmd := &cobra.Command{
		Use:   "shell-command [DIRECTORY...]",
		Short: "Run a shell command on filesystem events",
		Long: `Run a shell command through "sh -c" for every matching event under the
given directories (default ".").

The command may reference these variables, substituted literally:

  ${watch_src_path}    event source path
  ${watch_dest_path}   destination path (moved events only)
  ${watch_event_type}  created, modified, deleted or moved
  ${watch_object}      file or directory

Quote the command with single quotes so your shell does not expand the
variables first. Without --command the event is echoed.

Examples:
  watchmedo shell-command --patterns="*.go" --recursive --wait --command='go test ./...' .
  watchmedo shell-command --command='echo "${watch_src_path}"' src`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := wf.validate(); err != nil {
				return err
			}

			ctrl := shutdownController(cc.Logger)
			defer ctrl.Close()

			handler, err := trick.NewShellCommandTrick(trick.ShellParams{
				FilterParams:      wf.filterParams(),
				ShellCommand:      command,
				WaitForProcess:    wait,
				DropDuringProcess: drop,
			}, trickEnv(cc, ctrl))
			if err != nil {
				return err
			}

			obs := observer.New(observerOptions(cc, wf.interval, wf.forcePolling, false))

			return runShellCommand(cc, session.New(ctrl, session.WithLogger(cc.Logger)),
				obs, handler, directoriesOrDot(args), wf.recursive)
		},
	}

	wf.register(cmd)
	cmd.Flags().StringVarP(&command, "command", "c", "", "shell command run for matching events")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for the command to finish before handling the next event")
	cmd.Flags().BoolVarP(&drop, "drop", "W", false, "ignore events while the command is still running")
	cmd.MarkFlagsMutuallyExclusive("wait", "drop")

	return cmd
}

// runShellCommand watches dirs until shutdown. The trick is stopped only
// after the observer has been joined, so no command starts after the wait.
func runShellCommand(
	cc *CLIContext,
	sess *session.Session,
	obs observer.Observer,
	handler *trick.ShellCommandTrick,
	dirs []string,
	recursive bool,
) error {
	defer func() {
		if err := handler.Stop(); err != nil {
			cc.Logger.Warn("stopping command", slog.String("error", err.Error()))
		}
	}()

	return sess.RunSingle(obs, handler, dirs, recursive)
}
