package pipeline

import (
	"context"
	"errors"

	"github.com/hupe1980/tripmesh/core"
)

// Pipeline is a handler made of ordered stages. Stages may themselves be pipelines.
type Pipeline struct {
	name   string
	stages []core.Handler
}

var _ core.Handler = (*Pipeline)(nil)

// New creates a pipeline.
func New(name string, stages ...core.Handler) *Pipeline {
	return &Pipeline{name: name, stages: stages}
}

// Name implements core.Handler.
func (p *Pipeline) Name() string { return p.name }

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []core.Handler {
	return append([]core.Handler(nil), p.stages...)
}

// Handle implements core.Handler by running the stages through the
// StageRunner of ec. The outcome carries the full PipelineResult.
func (p *Pipeline) Handle(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
	if len(p.stages) == 0 {
		return core.Outcome{}, errors.New("pipeline " + p.name + " has no stages")
	}

	res := ec.RunStages(ctx, p.name, p.stages)

	out := res.LastOutcome
	out.Pipeline = res

	return out, res.Err()
}

// Simple is the single unit of work variant of core.Handler.
type Simple struct {
	name string
	fn   func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error)
}

var _ core.Handler = (*Simple)(nil)

// NewSimple wraps fn as a named handler.
func NewSimple(name string, fn func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error)) *Simple {
	return &Simple{name: name, fn: fn}
}

// Name implements core.Handler.
func (s *Simple) Name() string { return s.name }

// Handle implements core.Handler.
func (s *Simple) Handle(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
	return s.fn(ctx, ec)
}
