package trick

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/watchmedo-go/internal/config"
	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
	"github.com/tonimelisma/watchmedo-go/internal/observer"
)

type scheduled struct {
	handler   fsevent.Handler
	path      string
	recursive bool
}

// fakeObserver records Schedule calls and can fail the nth one.
type fakeObserver struct {
	calls  []scheduled
	failAt int
}

func (o *fakeObserver) Schedule(h fsevent.Handler, path string, recursive bool) (*observer.Watch, error) {
	if o.failAt > 0 && len(o.calls)+1 == o.failAt {
		return nil, observer.ErrNotBuilding
	}

	o.calls = append(o.calls, scheduled{handler: h, path: path, recursive: recursive})

	return &observer.Watch{Path: path, Recursive: recursive, Handler: h}, nil
}

func (o *fakeObserver) Start() error   { return nil }
func (o *fakeObserver) Stop() error    { return nil }
func (o *fakeObserver) Join() error    { return nil }
func (o *fakeObserver) UnscheduleAll() {}

// namedHandler lets tests tell constructed handlers apart.
type namedHandler struct {
	name      string
	sourceDir string
}

func (h *namedHandler) Dispatch(fsevent.Event)  {}
func (h *namedHandler) SourceDirectory() string { return h.sourceDir }

func namedRegistry(t *testing.T, constructed *[]string) *Registry {
	t.Helper()

	r := NewRegistry()

	for _, name := range []string{"t.A", "t.B", "t.C", "t.D"} {
		require.NoError(t, r.Register(Factory{
			Name: name,
			New: func(params map[string]any, _ Env) (fsevent.Handler, error) {
				*constructed = append(*constructed, name)

				if params["fail"] == true {
					return nil, errors.New("bad parameters")
				}

				dir, _ := params["source_directory"].(string)

				return &namedHandler{name: name, sourceDir: dir}, nil
			},
		}))
	}

	return r
}

func handlerNames(calls []scheduled) []string {
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.handler.(*namedHandler).name
	}

	return names
}

func TestSchedule_RegistersInDeclarationOrder(t *testing.T) {
	t.Parallel()

	var constructed []string

	loader := NewLoader(namedRegistry(t, &constructed), "t")
	obs := &fakeObserver{}

	specs := []config.TrickSpec{
		{Identifier: "C", Params: map[string]any{}},
		{Identifier: "t.A", Params: map[string]any{"source_directory": "/elsewhere"}},
		{Identifier: "B", Params: map[string]any{"source_directory": ""}},
	}

	handlers, err := Schedule(obs, loader, specs, "/default", true, Env{})
	require.NoError(t, err)

	assert.Len(t, handlers, 3)
	assert.Equal(t, []string{"t.C", "t.A", "t.B"}, handlerNames(obs.calls))
	assert.Equal(t, "/default", obs.calls[0].path)
	assert.Equal(t, "/elsewhere", obs.calls[1].path)
	assert.Equal(t, "/default", obs.calls[2].path, "empty source_directory falls back")

	for _, c := range obs.calls {
		assert.True(t, c.recursive)
	}
}

// Duplicate specs each register their own handler.
func TestSchedule_OneWatchPerSpec(t *testing.T) {
	t.Parallel()

	var constructed []string

	loader := NewLoader(namedRegistry(t, &constructed), "t")
	obs := &fakeObserver{}

	specs := make([]config.TrickSpec, 5)
	for i := range specs {
		specs[i] = config.TrickSpec{Identifier: "A"}
	}

	handlers, err := Schedule(obs, loader, specs, ".", false, Env{})
	require.NoError(t, err)
	assert.Len(t, handlers, 5)
	assert.Len(t, obs.calls, 5)
	assert.Len(t, constructed, 5)
}

func TestSchedule_StopsAtUnresolvedSpecWithoutRollback(t *testing.T) {
	t.Parallel()

	var constructed []string

	loader := NewLoader(namedRegistry(t, &constructed), "t")
	obs := &fakeObserver{}

	specs := []config.TrickSpec{
		{Identifier: "A"},
		{Identifier: "B"},
		{Identifier: "Nope"},
		{Identifier: "C"},
	}

	handlers, err := Schedule(obs, loader, specs, ".", true, Env{})
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "Nope", loadErr.Identifier)

	assert.Len(t, handlers, 2)
	assert.Equal(t, []string{"t.A", "t.B"}, handlerNames(obs.calls))
	assert.Equal(t, []string{"t.A", "t.B"}, constructed, "nothing after the failure is constructed")
}

func TestSchedule_StopsAtConstructionFailure(t *testing.T) {
	t.Parallel()

	var constructed []string

	loader := NewLoader(namedRegistry(t, &constructed), "t")
	obs := &fakeObserver{}

	specs := []config.TrickSpec{
		{Identifier: "A"},
		{Identifier: "B", Params: map[string]any{"fail": true}},
		{Identifier: "C"},
	}

	handlers, err := Schedule(obs, loader, specs, ".", true, Env{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tricks[1] B")
	assert.Len(t, handlers, 1)
	assert.Equal(t, []string{"t.A"}, handlerNames(obs.calls))
}

func TestSchedule_PropagatesObserverRejection(t *testing.T) {
	t.Parallel()

	var constructed []string

	loader := NewLoader(namedRegistry(t, &constructed), "t")
	obs := &fakeObserver{failAt: 2}

	specs := []config.TrickSpec{{Identifier: "A"}, {Identifier: "B"}, {Identifier: "C"}}

	handlers, err := Schedule(obs, loader, specs, ".", true, Env{})
	require.ErrorIs(t, err, observer.ErrNotBuilding)
	assert.Len(t, handlers, 1)
}

func TestSchedule_BuiltinsRejectUnknownParameters(t *testing.T) {
	t.Parallel()

	loader := NewLoader(NewBuiltinRegistry(), DefaultRoot)

	for name, params := range map[string]map[string]any{
		"LoggerTrick":       {"no_such_option": 1},
		"ShellCommandTrick": {"shell_command": "true", "no_such_option": 1},
		"AutoRestartTrick":  {"command": []any{"true"}, "no_such_option": 1},
	} {
		obs := &fakeObserver{}
		specs := []config.TrickSpec{{Identifier: name, Params: params}}

		_, err := Schedule(obs, loader, specs, ".", true, Env{})
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "no_such_option", name)
		assert.Empty(t, obs.calls, name)
	}
}

func TestSchedule_ManySpecsCountMatches(t *testing.T) {
	t.Parallel()

	var constructed []string

	loader := NewLoader(namedRegistry(t, &constructed), "t")

	for n := range 10 {
		obs := &fakeObserver{}
		specs := make([]config.TrickSpec, n)

		for i := range specs {
			specs[i] = config.TrickSpec{Identifier: fmt.Sprintf("t.%c", 'A'+rune(i%4))}
		}

		_, err := Schedule(obs, loader, specs, ".", false, Env{})
		require.NoError(t, err)
		assert.Len(t, obs.calls, n)
	}
}
