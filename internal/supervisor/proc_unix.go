//go:build !windows

package supervisor

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// platformSignal looks up any signal name the OS defines, e.g. SIGUSR1.
func platformSignal(name string) (syscall.Signal, bool) {
	sig := unix.SignalNum(name)
	return sig, sig != 0
}

func knownSignal(sig syscall.Signal) bool {
	return unix.SignalName(sig) != ""
}

// Children get their own process group so a stop signal reaches every
// process a shell wrapper spawned.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func signalChild(p *os.Process, sig syscall.Signal) error {
	err := syscall.Kill(-p.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		// Group already gone; fall back to the leader in case Setpgid raced.
		err = p.Signal(sig)
	}

	return err
}

func killChild(p *os.Process) error {
	return signalChild(p, syscall.SIGKILL)
}

// isGone reports whether err means the target has already exited.
func isGone(err error) bool {
	return errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone)
}
