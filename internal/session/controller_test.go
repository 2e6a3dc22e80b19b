//go:build !windows

package session

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_TriggerOnce(t *testing.T) {
	t.Parallel()

	c := NewController(nil)
	assert.False(t, c.Triggered())

	first := errors.New("first")
	assert.True(t, c.Trigger(first))
	assert.False(t, c.Trigger(errors.New("second")))
	assert.False(t, c.Trigger(nil))

	assert.True(t, c.Triggered())
	assert.Same(t, first, c.Err())
	assert.Equal(t, int32(1), c.transitions.Load())
}

func TestController_ConcurrentTriggers(t *testing.T) {
	t.Parallel()

	c := NewController(nil)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if c.Trigger(nil) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, int32(1), c.transitions.Load())
	assert.NoError(t, c.Err())
}

func TestController_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	c := NewController(nil)
	c.Close()
	c.Close()

	// Install after Close does nothing.
	c.Install(syscall.SIGUSR2)
	assert.False(t, c.Triggered())
}

// Two SIGINTs in quick succession produce exactly one shutdown and the
// session still tears down normally. Touches process-wide signal state,
// so not parallel.
func TestController_DoubleSignal(t *testing.T) {
	c := NewController(nil)
	c.Install(syscall.SIGINT)

	t.Cleanup(func() {
		c.Close()
		signal.Reset(syscall.SIGINT)
	})

	log := &callLog{}
	obs := &fakeObserver{name: "o", log: log}
	done := make(chan error, 1)

	go func() {
		done <- New(c, WithTick(testTick)).RunSingle(obs, nil, []string{"."}, true)
	}()

	require.Eventually(t, func() bool {
		return len(log.snapshot()) > 0
	}, 5*time.Second, time.Millisecond, "observer never started")

	pid := os.Getpid()
	require.NoError(t, syscall.Kill(pid, syscall.SIGINT))
	require.NoError(t, syscall.Kill(pid, syscall.SIGINT))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop after SIGINT")
	}

	// Give a late second delivery time to arrive; it must be discarded.
	time.Sleep(50 * time.Millisecond)

	assert.True(t, c.Triggered())
	assert.Equal(t, int32(1), c.transitions.Load())
	assert.Equal(t, []string{"o.start", "o.stop", "o.join"}, log.snapshot())
}
