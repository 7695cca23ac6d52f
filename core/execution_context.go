package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/tripmesh/logging"
)

// Services bundles the collaborators shared by every ExecutionContext of a request.
type Services struct {
	Dispatcher  Dispatcher
	Reasoner    Reasoner
	Tools       ToolInvoker
	Runner      StageRunner
	Recorder    Recorder
	CallTimeout time.Duration
	// MaxReasoningCalls bounds reasoning calls per request; 0 means unlimited.
	MaxReasoningCalls int
	Logger            logging.Logger
}

// ModelCall describes a pending reasoning call during BeforeModelInvocation.
// Callbacks may rewrite Prompt, or set Response and skip to short-circuit the call.
type ModelCall struct {
	Prompt   string
	Response string
	// Remaining is the number of reasoning calls the request may still make,
	// including this one, or -1 when unlimited.
	Remaining int
}

// ToolCall describes a completed tool call during AfterToolExecution.
// Callbacks may replace Result.
type ToolCall struct {
	Name   string
	Args   map[string]any
	Result any
}

// ExecutionContext is the ephemeral scope of one handler invocation. It is
// created by the pipeline executor, handed to callbacks and to the handler
// body, and discarded once the invocation reaches a terminal status.
type ExecutionContext struct {
	Handler   string
	Request   Request
	SessionID string
	UserID    string
	State     StateStore

	// Skip is set by BeforeHandlerEntry callbacks to prevent the body from running.
	Skip bool
	// StopRemaining asks the enclosing pipeline to end after this stage.
	StopRemaining bool
	// Metadata is free space for callbacks of this invocation.
	Metadata map[string]any

	Model *ModelCall
	Tool  *ToolCall

	Status  Status
	Outcome *Outcome
	Err     error

	// Budget is shared by all invocations of one request.
	Budget   *CallBudget
	services *Services

	*loggerAdapter
}

// NewExecutionContext creates the root context of a top-level request.
func NewExecutionContext(req Request, state StateStore, services *Services) *ExecutionContext {
	if services == nil {
		services = &Services{}
	}

	return &ExecutionContext{
		Request:       req,
		SessionID:     req.SessionID,
		UserID:        req.UserID,
		State:         state,
		Metadata:      map[string]any{},
		Status:        StatusPending,
		Budget:        NewCallBudget(services.MaxReasoningCalls),
		services:      services,
		loggerAdapter: newLoggerAdapter(services.Logger),
	}
}

// ForHandler derives the context for invoking the named handler. Request,
// state, services and limiter are shared; flags and metadata start fresh.
func (ec *ExecutionContext) ForHandler(name string) *ExecutionContext {
	return &ExecutionContext{
		Handler:       name,
		Request:       ec.Request,
		SessionID:     ec.SessionID,
		UserID:        ec.UserID,
		State:         ec.State,
		Metadata:      map[string]any{},
		Status:        StatusPending,
		Budget:        ec.Budget,
		services:      ec.services,
		loggerAdapter: ec.loggerAdapter,
	}
}

// Services returns the shared collaborators.
func (ec *ExecutionContext) Services() *Services { return ec.svc() }

func (ec *ExecutionContext) svc() *Services {
	if ec.services == nil {
		return &Services{}
	}
	return ec.services
}

// Dispatch fires the callbacks registered for event against this context.
func (ec *ExecutionContext) Dispatch(ctx context.Context, event EventType) (Decision, error) {
	if ec.svc().Dispatcher == nil {
		return Decision{Action: ActionContinue}, nil
	}
	return ec.svc().Dispatcher.Dispatch(ctx, event, ec)
}

// Record emits an observability record attributed to this handler.
func (ec *ExecutionContext) Record(ctx context.Context, eventType string, metadata map[string]any) {
	if ec.svc().Recorder == nil {
		return
	}
	ec.svc().Recorder.Record(ctx, Record{
		EventType: eventType,
		Handler:   ec.Handler,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	})
}

// RunStages executes stages in order through the configured StageRunner.
func (ec *ExecutionContext) RunStages(ctx context.Context, pipeline string, stages []Handler) *PipelineResult {
	if ec.svc().Runner == nil {
		return &PipelineResult{
			Pipeline: pipeline,
			Failure:  NewStageFailure(pipeline, nil, errors.New("no stage runner configured")),
			Partial:  true,
		}
	}
	return ec.svc().Runner.Run(ctx, pipeline, stages, ec)
}

// InvokeReasoning calls the reasoning capability with prompt and a snapshot of
// the state. BeforeModelInvocation callbacks run first and may rewrite the
// prompt or skip the call with a canned response.
func (ec *ExecutionContext) InvokeReasoning(ctx context.Context, prompt string) (string, error) {
	ec.Model = &ModelCall{Prompt: prompt, Remaining: -1}
	if ec.Budget != nil {
		ec.Model.Remaining = ec.Budget.Remaining()
	}

	decision, err := ec.Dispatch(ctx, EventBeforeModelInvocation)
	if err != nil {
		return "", err
	}

	if decision.Action == ActionSkip {
		// The skip applied to the model call only, not to the running handler.
		ec.Skip = false
		return ec.Model.Response, nil
	}

	reasoner := ec.svc().Reasoner
	if reasoner == nil {
		return "", ErrNoReasoner
	}

	if ec.Budget != nil {
		if err := ec.Budget.Take(); err != nil {
			return "", err
		}
	}

	state, err := ec.State.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot state for reasoning: %w", err)
	}

	start := time.Now()
	text, timedOut, err := callBounded(ctx, ec.svc().CallTimeout, func(callCtx context.Context) (string, error) {
		return reasoner.Reason(callCtx, ec.Model.Prompt, state)
	})
	logging.LogModelCall(ec.Logger(), ec.Handler, time.Since(start), err)

	if timedOut {
		return "", &TimeoutError{Operation: "reasoning", Handler: ec.Handler, After: ec.svc().CallTimeout}
	}
	if err != nil {
		return "", fmt.Errorf("reasoning in handler %s: %w", ec.Handler, err)
	}

	ec.Model.Response = text

	return text, nil
}

// InvokeTool calls the named tool, then fires AfterToolExecution callbacks
// which may replace the result or reject it. A rejection is always reported
// as a *ValidationError.
func (ec *ExecutionContext) InvokeTool(ctx context.Context, name string, args map[string]any) (any, error) {
	tools := ec.svc().Tools
	if tools == nil {
		return nil, ErrNoTools
	}

	result, timedOut, err := callBounded(ctx, ec.svc().CallTimeout, func(callCtx context.Context) (any, error) {
		return tools.Invoke(callCtx, name, args)
	})
	if timedOut {
		return nil, &TimeoutError{Operation: "tool:" + name, Handler: ec.Handler, After: ec.svc().CallTimeout}
	}
	if err != nil {
		return nil, err
	}

	ec.Tool = &ToolCall{Name: name, Args: args, Result: result}

	decision, err := ec.Dispatch(ctx, EventAfterToolExecution)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, &ValidationError{Handler: ec.Handler, Tool: name, Reason: err.Error()}
	}

	if decision.Action == ActionSkip {
		ec.Skip = false
	}

	return ec.Tool.Result, nil
}

// callBounded runs fn detached from the cancellation of ctx, so cancelling a
// request never interrupts a call that already started. The only deadline is
// timeout; timedOut reports that it fired. The call runs in its own goroutine
// so an implementation that ignores ctx cannot hold the caller past it.
func callBounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (v T, timedOut bool, err error) {
	base := context.WithoutCancel(ctx)
	if timeout <= 0 {
		v, err = fn(base)
		return v, false, err
	}

	callCtx, cancel := context.WithTimeout(base, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}

	ch := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return r.v, true, r.err
		}
		return r.v, false, r.err
	case <-callCtx.Done():
		var zero T
		return zero, true, callCtx.Err()
	}
}
