package supervisor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoCommand is returned by New when the command line is empty.
var ErrNoCommand = errors.New("supervisor: empty command")

// ErrNegativeKillAfter is returned by New for a negative kill-after.
var ErrNegativeKillAfter = errors.New("supervisor: kill-after must not be negative")

// LaunchError reports that the supervised child could not be started.
// It is fatal to the session: a supervisor that returned one never
// launches again.
type LaunchError struct {
	Command []string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("supervisor: launching %q: %v", strings.Join(e.Command, " "), e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
