//go:build !windows

package main

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownController_SignalTriggers(t *testing.T) {
	// Not parallel: signal handlers are process-wide.
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	ctrl := shutdownController(logger)
	t.Cleanup(func() {
		ctrl.Close()
		signal.Reset(syscall.SIGTERM, syscall.SIGINT)
	})

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	assert.Eventually(t, ctrl.Triggered, 2*time.Second, 10*time.Millisecond)
}

func TestTrickEnv_FatalTriggersController(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	var stdout, stderr bytes.Buffer

	cc := &CLIContext{Logger: logger, Stdout: &stdout, Stderr: &stderr}

	ctrl := shutdownController(logger)
	t.Cleanup(func() {
		ctrl.Close()
		signal.Reset(syscall.SIGTERM, syscall.SIGINT)
	})

	env := trickEnv(cc, ctrl)
	assert.Same(t, logger, env.Logger)
	assert.Equal(t, &stdout, env.Stdout)

	cause := errors.New("child failed to start")
	env.Fatal(cause)

	assert.True(t, ctrl.Triggered())
	assert.ErrorIs(t, ctrl.Err(), cause)
}
