package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
	"github.com/tonimelisma/watchmedo-go/internal/observer"
)

const testTick = 5 * time.Millisecond

// callLog records observer calls across fakes in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	l.calls = append(l.calls, s)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.calls...)
}

type fakeObserver struct {
	name    string
	log     *callLog
	paths   []string
	stopErr error
	joinErr error
}

func (o *fakeObserver) Schedule(h fsevent.Handler, path string, recursive bool) (*observer.Watch, error) {
	o.paths = append(o.paths, path)
	return &observer.Watch{Path: path, Recursive: recursive, Handler: h}, nil
}

func (o *fakeObserver) Start() error {
	o.log.add(o.name + ".start")
	return nil
}

func (o *fakeObserver) Stop() error {
	o.log.add(o.name + ".stop")
	return o.stopErr
}

func (o *fakeObserver) Join() error {
	o.log.add(o.name + ".join")
	return o.joinErr
}

func (o *fakeObserver) UnscheduleAll() {
	o.log.add(o.name + ".unschedule")
}

func triggerSoon(c *Controller, cause error) {
	go func() {
		time.Sleep(3 * testTick)
		c.Trigger(cause)
	}()
}

func TestRunSingle_DedupesPathsInOrder(t *testing.T) {
	t.Parallel()

	ctrl := NewController(nil)
	log := &callLog{}
	obs := &fakeObserver{name: "o", log: log}

	triggerSoon(ctrl, nil)

	err := New(ctrl, WithTick(testTick)).RunSingle(obs, fsevent.HandlerFunc(func(fsevent.Event) {}),
		[]string{"b", "a", "b", ".", "a"}, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "."}, obs.paths)
	assert.Equal(t, []string{"o.start", "o.stop", "o.join"}, log.snapshot())
}

func TestRunSingle_ReturnsTriggerCause(t *testing.T) {
	t.Parallel()

	ctrl := NewController(nil)
	obs := &fakeObserver{name: "o", log: &callLog{}}
	cause := errors.New("supervised command failed to launch")

	triggerSoon(ctrl, cause)

	err := New(ctrl, WithTick(testTick)).RunSingle(obs, fsevent.HandlerFunc(func(fsevent.Event) {}), []string{"."}, false)
	assert.Same(t, cause, err)
}

// Teardown unschedules and stops every observer before joining any, and
// keeps going past failures.
func TestRunMulti_TeardownContinuesPastFailures(t *testing.T) {
	t.Parallel()

	ctrl := NewController(nil)
	log := &callLog{}

	observers := []observer.Observer{
		&fakeObserver{name: "a", log: log, stopErr: errors.New("stop failed")},
		&fakeObserver{name: "b", log: log, joinErr: errors.New("join failed")},
		&fakeObserver{name: "c", log: log},
	}

	triggerSoon(ctrl, nil)

	require.NoError(t, New(ctrl, WithTick(testTick)).RunMulti(observers))

	assert.Equal(t, []string{
		"a.unschedule", "a.stop",
		"b.unschedule", "b.stop",
		"c.unschedule", "c.stop",
		"a.join", "b.join", "c.join",
	}, log.snapshot())
}

func TestRunMulti_NoObservers(t *testing.T) {
	t.Parallel()

	ctrl := NewController(nil)
	ctrl.Trigger(nil)

	assert.NoError(t, New(ctrl, WithTick(testTick)).RunMulti(nil))
}

// The loop notices the flag within one tick of it being set.
func TestWait_ObservesTriggerWithinTick(t *testing.T) {
	t.Parallel()

	ctrl := NewController(nil)
	s := New(ctrl, WithTick(20*time.Millisecond))

	done := make(chan time.Time)

	go func() {
		s.Wait()
		done <- time.Now()
	}()

	time.Sleep(50 * time.Millisecond)

	triggeredAt := time.Now()
	ctrl.Trigger(nil)

	select {
	case returned := <-done:
		assert.Less(t, returned.Sub(triggeredAt), 200*time.Millisecond)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after trigger")
	}
}

func TestWithTick_IgnoresNonPositive(t *testing.T) {
	t.Parallel()

	s := New(NewController(nil), WithTick(0), WithTick(-time.Second))
	assert.Equal(t, DefaultTick, s.tick)
}
