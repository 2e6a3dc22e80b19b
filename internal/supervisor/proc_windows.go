//go:build windows

package supervisor

import (
	"errors"
	"os"
	"syscall"
)

func platformSignal(string) (syscall.Signal, bool) {
	return 0, false
}

func knownSignal(sig syscall.Signal) bool {
	for _, s := range portableSignals {
		if s == sig {
			return true
		}
	}

	return false
}

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

// Windows has no deliverable stop signals; every stop is a kill.
func signalChild(p *os.Process, _ syscall.Signal) error {
	return p.Kill()
}

func killChild(p *os.Process) error {
	return p.Kill()
}

func isGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone)
}
