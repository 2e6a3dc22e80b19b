package main

import (
	"github.com/spf13/cobra"

	"github.com/tonimelisma/watchmedo-go/internal/observer"
	"github.com/tonimelisma/watchmedo-go/internal/session"
	"github.com/tonimelisma/watchmedo-go/internal/trick"
)

func newLogCmd() *cobra.Command {
	var (
		wf    watchFlags
		trace bool
	)

	cmd := &cobra.Command{
		Use:   "log [DIRECTORY...]",
		Short: "Log filesystem events",
		Long: `Log every filesystem event under the given directories (default ".")
until interrupted.

Examples:
  watchmedo log --recursive --patterns="*.py;*.txt" src
  watchmedo log --ignore-directories --trace .`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := wf.validate(); err != nil {
				return err
			}

			handler, err := trick.NewLoggerTrick(trick.LoggerParams{FilterParams: wf.filterParams()}, cc.Logger)
			if err != nil {
				return err
			}

			ctrl := shutdownController(cc.Logger)
			defer ctrl.Close()

			obs := observer.New(observerOptions(cc, wf.interval, wf.forcePolling, trace))

			return session.New(ctrl, session.WithLogger(cc.Logger)).
				RunSingle(obs, handler, directoriesOrDot(args), wf.recursive)
		},
	}

	wf.register(cmd)
	cmd.Flags().BoolVar(&trace, "trace", false, "log every dispatch with its handler")

	return cmd
}

// directoriesOrDot returns args, or "." when there are none.
func directoriesOrDot(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}

	return args
}
