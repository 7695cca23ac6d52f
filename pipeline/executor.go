// Package pipeline executes handlers and ordered sequences of handlers.
//
// Executor.Invoke wraps a single handler invocation in the lifecycle
//
//	Pending -> BeforeHandlerEntry -> Skipped
//	                              -> Running -> Completed | Failed
//
// and then fires AfterHandlerExit. Executor.Run applies Invoke to every stage
// of a pipeline in declared order. Stages never receive each other's output as
// parameters: they communicate through the shared state store, and the run
// only decides whether the next stage may start.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/logging"
)

const tracerName = "github.com/hupe1980/tripmesh/pipeline"

// Options configures an Executor.
type Options struct {
	Logger logging.Logger
	// Tracer defaults to the global OpenTelemetry tracer provider.
	Tracer trace.Tracer
}

// Executor runs handlers through the callback lifecycle. It is stateless and
// safe for concurrent use.
type Executor struct {
	opts Options
}

var _ core.StageRunner = (*Executor)(nil)

// NewExecutor creates an Executor.
func NewExecutor(optFns ...func(o *Options)) *Executor {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}

	return &Executor{opts: opts}
}

// Invoke runs h as a child of parent and returns the child context, whose
// Status, Outcome and Err describe the result. The handler body never runs
// when a BeforeHandlerEntry callback skipped it.
func (e *Executor) Invoke(ctx context.Context, h core.Handler, parent *core.ExecutionContext) *core.ExecutionContext {
	ec := parent.ForHandler(h.Name())
	start := time.Now()

	ctx, span := e.opts.Tracer.Start(ctx, "handler "+h.Name(), trace.WithAttributes(
		attribute.String("tripmesh.handler", h.Name()),
		attribute.String("tripmesh.request_id", ec.Request.ID),
		attribute.String("tripmesh.session_id", ec.SessionID),
	))
	defer span.End()

	ec.Record(ctx, core.RecordStateTransition, map[string]any{"from": "", "to": string(core.StatusPending)})

	decision, err := ec.Dispatch(ctx, core.EventBeforeHandlerEntry)
	switch {
	case err != nil:
		ec.Err = err
		e.transition(ctx, ec, core.StatusFailed, start)
	case decision.Action == core.ActionSkip:
		e.transition(ctx, ec, core.StatusSkipped, start)
	default:
		e.transition(ctx, ec, core.StatusRunning, start)

		outcome, err := e.runBody(ctx, h, ec)
		ec.Outcome = &outcome

		if err != nil {
			ec.Err = err
			e.transition(ctx, ec, core.StatusFailed, start)
		} else {
			e.transition(ctx, ec, core.StatusCompleted, start)
		}
	}

	span.SetAttributes(attribute.String("tripmesh.status", string(ec.Status)))
	if ec.Err != nil {
		span.RecordError(ec.Err)
		span.SetStatus(codes.Error, ec.Err.Error())
	}

	// After hooks observe the terminal status; they cannot change it.
	if _, err := ec.Dispatch(ctx, core.EventAfterHandlerExit); err != nil {
		e.opts.Logger.Warn("after handler exit callback failed", "handler", ec.Handler, "error", err.Error())
	}

	return ec
}

func (e *Executor) runBody(ctx context.Context, h core.Handler, ec *core.ExecutionContext) (outcome core.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", h.Name(), r)
		}
	}()

	return h.Handle(ctx, ec)
}

func (e *Executor) transition(ctx context.Context, ec *core.ExecutionContext, to core.Status, start time.Time) {
	from := ec.Status
	ec.Status = to

	meta := map[string]any{"from": string(from), "to": string(to)}
	if to.Terminal() {
		meta["duration"] = time.Since(start)
	}
	if ec.Err != nil && to == core.StatusFailed {
		meta["error"] = ec.Err.Error()
	}

	ec.Record(ctx, core.RecordStateTransition, meta)
	e.opts.Logger.Debug("handler transition", "handler", ec.Handler, "from", string(from), "to", string(to))
}

// Run executes stages strictly in order against the state shared through parent.
//
// The run stops at the first failed stage and reports the stages completed
// before it. A stage that sets StopRemaining ends the run early with Partial
// set and no failure. Skipped stages are reported and do not stop the run.
// Cancellation is checked before each stage, never during one.
func (e *Executor) Run(ctx context.Context, name string, stages []core.Handler, parent *core.ExecutionContext) *core.PipelineResult {
	res := &core.PipelineResult{Pipeline: name}
	start := time.Now()

	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			res.Failure = core.NewStageFailure(stage.Name(), res.Completed, fmt.Errorf("cancelled before start: %w", err))
			res.Partial = true
			break
		}

		stageStart := time.Now()
		sec := e.Invoke(ctx, stage, parent)
		res.Stages = append(res.Stages, core.StageReport{Name: stage.Name(), Status: sec.Status, Duration: time.Since(stageStart)})

		switch sec.Status {
		case core.StatusSkipped:
			res.Skipped = append(res.Skipped, stage.Name())
		case core.StatusCompleted:
			res.Completed = append(res.Completed, stage.Name())
			res.LastOutcome = *sec.Outcome
		case core.StatusFailed:
			res.Failure = core.NewStageFailure(stage.Name(), res.Completed, sec.Err)
			res.Partial = true
		}

		if res.Failure != nil {
			break
		}

		if sec.StopRemaining && i < len(stages)-1 {
			res.Partial = true
			e.opts.Logger.Info("pipeline stopped early", "pipeline", name, "stage", stage.Name())
			break
		}
	}

	logging.LogPipeline(e.opts.Logger, name, len(res.Completed), time.Since(start), res.Err())

	return res
}
