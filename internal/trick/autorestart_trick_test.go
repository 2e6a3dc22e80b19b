//go:build !windows

package trick

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
	"github.com/tonimelisma/watchmedo-go/internal/supervisor"
)

func TestAutoRestartTrick_ParamsDecode(t *testing.T) {
	t.Parallel()

	h, err := newAutoRestartTrick(map[string]any{
		"command":     []any{"sleep", "30"},
		"stop_signal": "SIGTERM",
		"kill_after":  2.5,
		"patterns":    "*.go",
	}, Env{})
	require.NoError(t, err)

	tr := h.(*AutoRestartTrick)
	assert.Equal(t, supervisor.StateAbsent, tr.sup.State())

	_, ok := h.(fsevent.Lifecycle)
	assert.True(t, ok)
}

func TestAutoRestartTrick_BadParams(t *testing.T) {
	t.Parallel()

	tests := map[string]map[string]any{
		"no command":   {},
		"bad signal":   {"command": []any{"true"}, "stop_signal": "SIGNOPE"},
		"bad duration": {"command": []any{"true"}, "kill_after": "soon"},
		"negative":     {"command": []any{"true"}, "kill_after": -1},
		"negative str": {"command": []any{"true"}, "kill_after": "-1s"},
		"no such sig":  {"command": []any{"true"}, "stop_signal": 999},
	}

	for name, params := range tests {
		_, err := newAutoRestartTrick(params, Env{})
		assert.Error(t, err, name)
	}
}

func TestAutoRestartTrick_RestartsOnMatchingEvents(t *testing.T) {
	t.Parallel()

	tr, err := NewAutoRestartTrick(AutoRestartParams{
		FilterParams: FilterParams{Patterns: PatternList{"*.go"}},
		Command:      []string{"sleep", "30"},
		StopSignal:   "TERM",
	}, Env{})
	require.NoError(t, err)

	require.NoError(t, tr.Start())
	t.Cleanup(func() { _ = tr.Stop() })

	first := tr.sup.PID()
	require.NotZero(t, first)

	tr.Dispatch(fsevent.Event{Type: fsevent.Modified, SrcPath: "/w/readme.md"})
	assert.Equal(t, first, tr.sup.PID(), "filtered event must not restart")

	tr.Dispatch(fsevent.Event{Type: fsevent.Modified, SrcPath: "/w/main.go"})
	second := tr.sup.PID()
	assert.NotZero(t, second)
	assert.NotEqual(t, first, second)
	assert.ErrorIs(t, syscall.Kill(first, 0), syscall.ESRCH)

	require.NoError(t, tr.Stop())
	assert.ErrorIs(t, syscall.Kill(second, 0), syscall.ESRCH)
}

func TestAutoRestartTrick_LaunchFailureIsFatal(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		fatal []error
	)

	tr, err := NewAutoRestartTrick(AutoRestartParams{
		Command: []string{"/nonexistent/watchmedo-test-binary"},
	}, Env{Fatal: func(err error) {
		mu.Lock()
		fatal = append(fatal, err)
		mu.Unlock()
	}})
	require.NoError(t, err)

	// Dispatch before Start launches for the first time and fails.
	tr.Dispatch(fsevent.Event{Type: fsevent.Created, SrcPath: "/w/a"})
	tr.Dispatch(fsevent.Event{Type: fsevent.Created, SrcPath: "/w/b"})

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, fatal, 1, "a failed supervisor is not retried")

	var launchErr *supervisor.LaunchError
	assert.True(t, errors.As(fatal[0], &launchErr))
	assert.Equal(t, supervisor.StateFailed, tr.sup.State())
}

func TestSeconds_Decode(t *testing.T) {
	t.Parallel()

	var p AutoRestartParams
	require.NoError(t, decodeParams(map[string]any{"kill_after": 1.5}, &p))
	require.NotNil(t, p.KillAfter)
	assert.Equal(t, 1500*time.Millisecond, time.Duration(*p.KillAfter))

	require.NoError(t, decodeParams(map[string]any{"kill_after": "250ms"}, &p))
	assert.Equal(t, 250*time.Millisecond, time.Duration(*p.KillAfter))
}

func TestAutoRestartTrick_ZeroKillAfterSkipsGracePeriod(t *testing.T) {
	t.Parallel()

	ready := filepath.Join(t.TempDir(), "ready")

	h, err := newAutoRestartTrick(map[string]any{
		"command":     []any{"sh", "-c", `trap "" INT; touch "$0"; sleep 30`, ready},
		"stop_signal": "SIGINT",
		"kill_after":  0,
	}, Env{})
	require.NoError(t, err)

	tr := h.(*AutoRestartTrick)
	require.NoError(t, tr.Start())

	require.Eventually(t, func() bool {
		_, err := os.Stat(ready)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	start := time.Now()
	require.NoError(t, tr.Stop())

	assert.Less(t, time.Since(start), 2*time.Second, "kill_after 0 must not fall back to the default")
	assert.Equal(t, supervisor.StateAbsent, tr.sup.State())
}

func TestSignalSpec_Decode(t *testing.T) {
	t.Parallel()

	var p AutoRestartParams
	require.NoError(t, decodeParams(map[string]any{"stop_signal": 15}, &p))

	sig, err := p.StopSignal.signal()
	require.NoError(t, err)
	assert.Equal(t, syscall.SIGTERM, sig)

	p.StopSignal = ""
	sig, err = p.StopSignal.signal()
	require.NoError(t, err)
	assert.Equal(t, supervisor.DefaultStopSignal, sig)
}
