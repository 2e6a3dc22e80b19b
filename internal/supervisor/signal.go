package supervisor

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"
)

// portableSignals are defined by package syscall on every platform.
var portableSignals = map[string]syscall.Signal{
	"SIGHUP":  syscall.SIGHUP,
	"SIGINT":  syscall.SIGINT,
	"SIGQUIT": syscall.SIGQUIT,
	"SIGABRT": syscall.SIGABRT,
	"SIGKILL": syscall.SIGKILL,
	"SIGALRM": syscall.SIGALRM,
	"SIGTERM": syscall.SIGTERM,
	"SIGPIPE": syscall.SIGPIPE,
}

// ParseSignal accepts a signal name ("SIGINT", "INT", case-insensitive)
// or a decimal signal number the platform defines.
func ParseSignal(spec string) (syscall.Signal, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("supervisor: empty signal")
	}

	if n, err := strconv.Atoi(spec); err == nil {
		sig := syscall.Signal(n)
		if n <= 0 || !knownSignal(sig) {
			return 0, fmt.Errorf("supervisor: invalid signal number %d", n)
		}

		return sig, nil
	}

	name := strings.ToUpper(spec)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}

	if sig, ok := portableSignals[name]; ok {
		return sig, nil
	}

	if sig, ok := platformSignal(name); ok {
		return sig, nil
	}

	return 0, fmt.Errorf("supervisor: unknown signal %q", spec)
}
