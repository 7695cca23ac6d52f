package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tripmesh/callback"
	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/internal/testutil"
	"github.com/hupe1980/tripmesh/observability"
)

type env struct {
	exec       *Executor
	dispatcher *callback.Dispatcher
	recorder   *observability.MemoryRecorder
	builder    *testutil.ContextBuilder
}

func newEnv() *env {
	rec := observability.NewMemoryRecorder()
	d := callback.NewDispatcher(func(o *callback.Options) { o.Recorder = rec })
	exec := NewExecutor()

	return &env{
		exec:       exec,
		dispatcher: d,
		recorder:   rec,
		builder:    testutil.NewContextBuilder().Dispatcher(d).Runner(exec).Recorder(rec),
	}
}

func okHandler(name string) *testutil.MockHandler {
	h := testutil.NewMockHandler(name)
	h.On("Handle", mock.Anything, mock.Anything).Return(core.Outcome{Text: name + " done"}, nil)
	return h
}

func TestRun_StagesExecuteInOrder(t *testing.T) {
	e := newEnv()
	var order []string

	stage := func(name string) core.Handler {
		return NewSimple(name, func(context.Context, *core.ExecutionContext) (core.Outcome, error) {
			order = append(order, name)
			return core.Outcome{Text: name}, nil
		})
	}

	res := e.exec.Run(context.Background(), "p", []core.Handler{stage("a"), stage("b"), stage("c")}, e.builder.Build())

	require.NoError(t, res.Err())
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []string{"a", "b", "c"}, res.Completed)
	assert.Equal(t, "c", res.LastOutcome.Text)
	assert.False(t, res.Partial)
	require.Len(t, res.Stages, 3)
	assert.Equal(t, core.StatusCompleted, res.Stages[2].Status)
}

func TestRun_StateWrittenByStageIsVisibleToNextStage(t *testing.T) {
	e := newEnv()

	writer := NewSimple("search", func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
		return core.Outcome{}, ec.State.Set(ctx, core.ScopeSession, "results", []string{"a", "b"})
	})

	var seen any
	reader := NewSimple("rank", func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
		seen = core.GetOr(ctx, ec.State, core.ScopeSession, "results", nil)
		return core.Outcome{}, nil
	})

	root := e.builder.Build()
	res := e.exec.Run(context.Background(), "p", []core.Handler{writer, reader}, root)
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"a", "b"}, seen)

	other := testutil.NewContextBuilder().Session("sess-2").Build()
	_, ok, err := other.State.Get(context.Background(), core.ScopeSession, "results")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_FailureStopsPipelineAndReportsCompletedStages(t *testing.T) {
	e := newEnv()
	boom := errors.New("boom")

	first := okHandler("first")
	second := testutil.NewMockHandler("second")
	second.On("Handle", mock.Anything, mock.Anything).Return(core.Outcome{}, boom)
	third := testutil.NewMockHandler("third")

	res := e.exec.Run(context.Background(), "p", []core.Handler{first, second, third}, e.builder.Build())

	require.NotNil(t, res.Failure)
	assert.Equal(t, "second", res.Failure.Stage)
	assert.Equal(t, []string{"first"}, res.Completed)
	assert.Equal(t, []string{"first"}, res.Failure.Completed)
	assert.True(t, res.Partial)
	assert.ErrorIs(t, res.Err(), boom)
	assert.ErrorIs(t, res.Err(), core.ErrStageFailure)
	assert.False(t, res.Failure.Retryable)

	first.AssertExpectations(t)
	second.AssertExpectations(t)
	third.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestRun_SkippedStageDoesNotRunButLaterStagesDo(t *testing.T) {
	e := newEnv()

	require.NoError(t, e.dispatcher.RegisterFunc(core.EventBeforeHandlerEntry, callback.Global, "skip-rank", func(_ context.Context, ec *core.ExecutionContext) (core.Action, error) {
		if ec.Handler == "rank" {
			return core.ActionSkip, nil
		}
		return core.ActionContinue, nil
	}))

	search := okHandler("search")
	rank := testutil.NewMockHandler("rank")
	summarize := okHandler("summarize")

	res := e.exec.Run(context.Background(), "p", []core.Handler{search, rank, summarize}, e.builder.Build())

	require.NoError(t, res.Err())
	assert.Equal(t, []string{"search", "summarize"}, res.Completed)
	assert.Equal(t, []string{"rank"}, res.Skipped)
	assert.False(t, res.Partial)
	rank.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	summarize.AssertExpectations(t)

	assert.Equal(t, []string{"->pending", "pending->skipped"}, e.recorder.Transitions("rank"))
}

func TestRun_StopRemainingEndsEarlyWithoutFailure(t *testing.T) {
	e := newEnv()

	stopper := NewSimple("stopper", func(_ context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
		ec.StopRemaining = true
		return core.Outcome{Text: "enough"}, nil
	})
	never := testutil.NewMockHandler("never")

	res := e.exec.Run(context.Background(), "p", []core.Handler{okHandler("first"), stopper, never}, e.builder.Build())

	require.NoError(t, res.Err())
	assert.True(t, res.Partial)
	assert.Equal(t, []string{"first", "stopper"}, res.Completed)
	assert.Equal(t, "enough", res.LastOutcome.Text)
	never.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestRun_StopRemainingOnLastStageIsNotPartial(t *testing.T) {
	e := newEnv()

	last := NewSimple("last", func(_ context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
		ec.StopRemaining = true
		return core.Outcome{}, nil
	})

	res := e.exec.Run(context.Background(), "p", []core.Handler{okHandler("first"), last}, e.builder.Build())
	require.NoError(t, res.Err())
	assert.False(t, res.Partial)
}

func TestRun_CancellationIsCheckedBetweenStages(t *testing.T) {
	e := newEnv()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var firstFinished bool
	first := NewSimple("first", func(ctx context.Context, _ *core.ExecutionContext) (core.Outcome, error) {
		cancel()
		// The running stage is never interrupted.
		firstFinished = true
		return core.Outcome{}, nil
	})
	second := testutil.NewMockHandler("second")

	res := e.exec.Run(ctx, "p", []core.Handler{first, second}, e.builder.Build())

	assert.True(t, firstFinished)
	require.NotNil(t, res.Failure)
	assert.Equal(t, "second", res.Failure.Stage)
	assert.Equal(t, []string{"first"}, res.Completed)
	assert.ErrorIs(t, res.Err(), context.Canceled)
	assert.True(t, res.Failure.Retryable)
	second.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestRun_CancellationDuringToolCallLetsStageFinish(t *testing.T) {
	e := newEnv()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slow := testutil.ToolsFunc(func(ctx context.Context, _ string, _ map[string]any) (any, error) {
		select {
		case <-time.After(100 * time.Millisecond):
			return "results", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	first := NewSimple("first", func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
		v, err := ec.InvokeTool(ctx, "search", nil)
		if err != nil {
			return core.Outcome{}, err
		}
		return core.Outcome{Text: v.(string)}, nil
	})
	second := testutil.NewMockHandler("second")

	time.AfterFunc(20*time.Millisecond, cancel)

	root := e.builder.Tools(slow).Timeout(time.Second).Build()
	res := e.exec.Run(ctx, "p", []core.Handler{first, second}, root)

	assert.Equal(t, []string{"first"}, res.Completed)
	assert.Equal(t, "results", res.LastOutcome.Text)
	require.NotNil(t, res.Failure)
	assert.Equal(t, "second", res.Failure.Stage)
	assert.ErrorIs(t, res.Err(), context.Canceled)
	assert.False(t, res.Failure.Timeout)
	second.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestRun_ToolTimeoutBecomesRetryableStageFailure(t *testing.T) {
	e := newEnv()

	slow := testutil.ToolsFunc(func(ctx context.Context, _ string, _ map[string]any) (any, error) {
		select {
		case <-time.After(time.Second):
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	stage := NewSimple("search", func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
		if err := ec.State.Set(ctx, core.ScopeSession, "query", "paris"); err != nil {
			return core.Outcome{}, err
		}
		_, err := ec.InvokeTool(ctx, "search", nil)
		return core.Outcome{}, err
	})

	root := e.builder.Tools(slow).Timeout(20 * time.Millisecond).Build()
	res := e.exec.Run(context.Background(), "p", []core.Handler{stage}, root)

	require.NotNil(t, res.Failure)
	assert.True(t, res.Failure.Timeout)
	assert.True(t, res.Failure.Retryable)
	assert.ErrorIs(t, res.Err(), core.ErrTimeout)

	// Stage writes are not rolled back.
	assert.Equal(t, "paris", core.GetString(context.Background(), root.State, core.ScopeSession, "query"))
}

func TestRun_RejectedToolResultFailsTheProducingStage(t *testing.T) {
	e := newEnv()
	require.NoError(t, e.dispatcher.Register(core.EventAfterToolExecution, callback.Handler("search"), "non-empty", callback.RequireNonEmptyResult()))

	tools := testutil.ToolsFunc(func(context.Context, string, map[string]any) (any, error) {
		return []map[string]any{}, nil
	})

	search := NewSimple("search", func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
		results, err := ec.InvokeTool(ctx, "search_scholarships", map[string]any{"country": "france"})
		if err != nil {
			return core.Outcome{}, err
		}
		return core.Outcome{}, ec.State.Set(ctx, core.ScopeSession, "results", results)
	})
	rank := testutil.NewMockHandler("rank")
	summarize := testutil.NewMockHandler("summarize")

	res := e.exec.Run(context.Background(), "scholarships", []core.Handler{search, rank, summarize}, e.builder.Tools(tools).Build())

	require.NotNil(t, res.Failure)
	assert.Equal(t, "search", res.Failure.Stage)
	assert.Empty(t, res.Completed)
	assert.ErrorIs(t, res.Err(), core.ErrValidation)
	rank.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	summarize.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestInvoke_RecordsTransitions(t *testing.T) {
	e := newEnv()

	ec := e.exec.Invoke(context.Background(), okHandler("weather_agent"), e.builder.Build())

	assert.Equal(t, core.StatusCompleted, ec.Status)
	assert.Equal(t, "weather_agent done", ec.Outcome.Text)
	assert.Equal(t, []string{"->pending", "pending->running", "running->completed"}, e.recorder.Transitions("weather_agent"))
}

func TestInvoke_BeforeEntryErrorFailsWithoutRunningBody(t *testing.T) {
	e := newEnv()
	require.NoError(t, e.dispatcher.RegisterFunc(core.EventBeforeHandlerEntry, callback.Global, "deny", func(context.Context, *core.ExecutionContext) (core.Action, error) {
		return core.ActionContinue, errors.New("denied")
	}))

	h := testutil.NewMockHandler("h")
	ec := e.exec.Invoke(context.Background(), h, e.builder.Build())

	assert.Equal(t, core.StatusFailed, ec.Status)
	assert.EqualError(t, errors.Unwrap(ec.Err), "denied")
	h.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestInvoke_AfterExitSeesTerminalStatus(t *testing.T) {
	e := newEnv()

	var seen core.Status
	require.NoError(t, e.dispatcher.RegisterFunc(core.EventAfterHandlerExit, callback.Global, "observe", func(_ context.Context, ec *core.ExecutionContext) (core.Action, error) {
		seen = ec.Status
		return core.ActionContinue, errors.New("ignored")
	}))

	ec := e.exec.Invoke(context.Background(), okHandler("h"), e.builder.Build())

	assert.Equal(t, core.StatusCompleted, seen)
	assert.Equal(t, core.StatusCompleted, ec.Status)
}

func TestInvoke_PanicBecomesFailure(t *testing.T) {
	e := newEnv()

	h := NewSimple("unstable", func(context.Context, *core.ExecutionContext) (core.Outcome, error) {
		panic("kaboom")
	})

	ec := e.exec.Invoke(context.Background(), h, e.builder.Build())
	assert.Equal(t, core.StatusFailed, ec.Status)
	assert.ErrorContains(t, ec.Err, "kaboom")
}
