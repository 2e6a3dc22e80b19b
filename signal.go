package main

import (
	"log/slog"

	"github.com/tonimelisma/watchmedo-go/internal/session"
	"github.com/tonimelisma/watchmedo-go/internal/trick"
)

// shutdownController returns a controller listening for SIGINT/SIGTERM.
// The first signal starts a graceful shutdown; the signal set is ignored
// from then on so a second Ctrl-C cannot interrupt teardown of a
// supervised child. Callers must Close it.
func shutdownController(logger *slog.Logger) *session.Controller {
	ctrl := session.NewController(logger)
	ctrl.Install(session.DefaultSignals...)

	return ctrl
}

// trickEnv wires tricks to the CLI's output streams and lets them end the
// session on fatal errors.
func trickEnv(cc *CLIContext, ctrl *session.Controller) trick.Env {
	return trick.Env{
		Logger: cc.Logger,
		Stdout: cc.Stdout,
		Stderr: cc.Stderr,
		Fatal: func(err error) {
			ctrl.Trigger(err)
		},
	}
}
