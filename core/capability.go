package core

import (
	"context"
	"time"
)

// Classifier labels request text. Classification itself is external to the core.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, text string) (string, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Reasoner is the external reasoning capability.
type Reasoner interface {
	Reason(ctx context.Context, prompt string, state map[string]any) (string, error)
}

// ToolInvoker is the external side-effecting tool capability.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (any, error)
}

// Dispatcher fires the callbacks registered for an event.
type Dispatcher interface {
	Dispatch(ctx context.Context, event EventType, ec *ExecutionContext) (Decision, error)
}

// StageRunner executes an ordered list of stages against shared state.
type StageRunner interface {
	Run(ctx context.Context, pipeline string, stages []Handler, parent *ExecutionContext) *PipelineResult
}

// RecordStateTransition is the event type used for handler status changes.
const RecordStateTransition = "state_transition"

// Record is one observability event.
type Record struct {
	EventType string         `json:"event_type"`
	Handler   string         `json:"handler"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Recorder is the external observability sink. Implementations must not block
// the caller for long and must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, rec Record)
}

// NopRecorder discards every record.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Record) {}
