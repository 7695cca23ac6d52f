package callback

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/observability"
	"github.com/hupe1980/tripmesh/state"
)

func newContext(handler string) *core.ExecutionContext {
	root := core.NewExecutionContext(core.Request{ID: "r1", SessionID: "s1", UserID: "u1", Text: "hi"}, state.New("u1", nil), nil)
	return root.ForHandler(handler)
}

func appendOrder(order *[]string, name string, action core.Action) Func {
	return func(context.Context, *core.ExecutionContext) (core.Action, error) {
		*order = append(*order, name)
		return action, nil
	}
}

func TestDispatcher_RegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string

	require.NoError(t, d.Register(core.EventBeforeHandlerEntry, Global, "a", appendOrder(&order, "a", core.ActionContinue)))
	require.NoError(t, d.Register(core.EventBeforeHandlerEntry, Handler("h"), "b", appendOrder(&order, "b", core.ActionContinue)))
	require.NoError(t, d.Register(core.EventBeforeHandlerEntry, Global, "c", appendOrder(&order, "c", core.ActionContinue)))

	decision, err := d.Dispatch(context.Background(), core.EventBeforeHandlerEntry, newContext("h"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, core.ActionContinue, decision.Action)
	assert.Equal(t, 3, decision.Fired)
}

func TestDispatcher_HandlerTargetFiltersOtherHandlers(t *testing.T) {
	d := NewDispatcher()
	var order []string

	require.NoError(t, d.Register(core.EventAfterToolExecution, Handler("search"), "only-search", appendOrder(&order, "search", core.ActionContinue)))

	decision, err := d.Dispatch(context.Background(), core.EventAfterToolExecution, newContext("rank"))
	require.NoError(t, err)
	assert.Empty(t, order)
	assert.Equal(t, 0, decision.Fired)
}

func TestDispatcher_LaterCallbacksObserveEarlierMutations(t *testing.T) {
	d := NewDispatcher()

	require.NoError(t, d.RegisterFunc(core.EventBeforeHandlerEntry, Global, "writer", func(_ context.Context, ec *core.ExecutionContext) (core.Action, error) {
		ec.Metadata["seen"] = "writer"
		return core.ActionModify, nil
	}))

	var observed any
	require.NoError(t, d.RegisterFunc(core.EventBeforeHandlerEntry, Global, "reader", func(_ context.Context, ec *core.ExecutionContext) (core.Action, error) {
		observed = ec.Metadata["seen"]
		return core.ActionContinue, nil
	}))

	decision, err := d.Dispatch(context.Background(), core.EventBeforeHandlerEntry, newContext("h"))
	require.NoError(t, err)
	assert.Equal(t, "writer", observed)
	assert.Equal(t, core.ActionModify, decision.Action)
}

func TestDispatcher_SkipEndsChain(t *testing.T) {
	d := NewDispatcher()
	var order []string

	require.NoError(t, d.Register(core.EventBeforeHandlerEntry, Global, "skipper", appendOrder(&order, "skipper", core.ActionSkip)))
	require.NoError(t, d.Register(core.EventBeforeHandlerEntry, Global, "after", appendOrder(&order, "after", core.ActionContinue)))

	ec := newContext("h")
	decision, err := d.Dispatch(context.Background(), core.EventBeforeHandlerEntry, ec)
	require.NoError(t, err)
	assert.Equal(t, core.ActionSkip, decision.Action)
	assert.True(t, ec.Skip)
	assert.Equal(t, []string{"skipper"}, order)
}

func TestDispatcher_SkipFlagSetDirectly(t *testing.T) {
	d := NewDispatcher()

	require.NoError(t, d.RegisterFunc(core.EventBeforeHandlerEntry, Global, "flag", func(_ context.Context, ec *core.ExecutionContext) (core.Action, error) {
		ec.Skip = true
		return core.ActionContinue, nil
	}))

	decision, err := d.Dispatch(context.Background(), core.EventBeforeHandlerEntry, newContext("h"))
	require.NoError(t, err)
	assert.Equal(t, core.ActionSkip, decision.Action)
}

func TestDispatcher_AfterExitOnSkippedHandlerRunsWholeChain(t *testing.T) {
	d := NewDispatcher()
	var order []string

	require.NoError(t, d.Register(core.EventAfterHandlerExit, Global, "a", appendOrder(&order, "a", core.ActionContinue)))
	require.NoError(t, d.Register(core.EventAfterHandlerExit, Global, "b", appendOrder(&order, "b", core.ActionContinue)))

	ec := newContext("h")
	ec.Skip = true

	decision, err := d.Dispatch(context.Background(), core.EventAfterHandlerExit, ec)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, core.ActionContinue, decision.Action)
}

func TestDispatcher_ErrorStopsChain(t *testing.T) {
	d := NewDispatcher()
	var order []string
	boom := errors.New("boom")

	require.NoError(t, d.RegisterFunc(core.EventAfterToolExecution, Global, "fail", func(context.Context, *core.ExecutionContext) (core.Action, error) {
		return core.ActionContinue, boom
	}))
	require.NoError(t, d.Register(core.EventAfterToolExecution, Global, "never", appendOrder(&order, "never", core.ActionContinue)))

	_, err := d.Dispatch(context.Background(), core.EventAfterToolExecution, newContext("h"))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, order)
}

func TestDispatcher_RecordsEveryFiring(t *testing.T) {
	rec := observability.NewMemoryRecorder()
	d := NewDispatcher(func(o *Options) { o.Recorder = rec })

	var order []string
	require.NoError(t, d.Register(core.EventBeforeHandlerEntry, Global, "a", appendOrder(&order, "a", core.ActionModify)))
	require.NoError(t, d.Register(core.EventBeforeHandlerEntry, Global, "b", appendOrder(&order, "b", core.ActionContinue)))

	_, err := d.Dispatch(context.Background(), core.EventBeforeHandlerEntry, newContext("h"))
	require.NoError(t, err)

	records := rec.Filter(string(core.EventBeforeHandlerEntry), "h")
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Metadata["callback"])
	assert.Equal(t, "modify", records[0].Metadata["action"])
	assert.Equal(t, "b", records[1].Metadata["callback"])
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestDispatcher_RegisterValidation(t *testing.T) {
	d := NewDispatcher()

	assert.Error(t, d.Register(core.EventType("on_whatever"), Global, "x", Func(nil)))
	assert.Error(t, d.Register(core.EventBeforeHandlerEntry, Global, "x", nil))

	require.NoError(t, d.Register(core.EventBeforeHandlerEntry, Global, "", appendOrder(new([]string), "x", core.ActionContinue)))
	assert.Equal(t, 1, d.Count(core.EventBeforeHandlerEntry))
}

func TestDispatcher_ConcurrentUnnamedRegistrationsGetDistinctNames(t *testing.T) {
	rec := observability.NewMemoryRecorder()
	d := NewDispatcher(func(o *Options) { o.Recorder = rec })

	const n = 50

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Register(core.EventAfterHandlerExit, Global, "", Func(func(context.Context, *core.ExecutionContext) (core.Action, error) {
				return core.ActionContinue, nil
			})))
		}()
	}
	wg.Wait()

	_, err := d.Dispatch(context.Background(), core.EventAfterHandlerExit, newContext("h"))
	require.NoError(t, err)

	names := map[any]bool{}
	for _, r := range rec.Filter(string(core.EventAfterHandlerExit), "h") {
		names[r.Metadata["callback"]] = true
	}
	assert.Len(t, names, n)
	assert.True(t, names["after_handler_exit#1"])
	assert.True(t, names["after_handler_exit#50"])
}

func TestTarget_String(t *testing.T) {
	assert.Equal(t, "global", Global.String())
	assert.Equal(t, "weather_agent", Handler("weather_agent").String())
	assert.True(t, Global.IsGlobal())
	assert.False(t, Handler("x").IsGlobal())
}
