package core

import (
	"context"
	"time"
)

// Handler is the single capability shared by simple handlers and pipelines.
// Router, registry and pipeline engine depend only on this interface.
type Handler interface {
	Name() string
	Handle(ctx context.Context, ec *ExecutionContext) (Outcome, error)
}

// HandlerRef is the routing decision: the handler name plus the binding that selected it.
type HandlerRef struct {
	Name    string
	Binding string
	Default bool
}

// Outcome is what a handler produces when its body completes.
type Outcome struct {
	Text string
	Data map[string]any
	// Pipeline is set when the outcome was produced by a pipeline run.
	Pipeline *PipelineResult
}

// Status is the lifecycle state of one handler invocation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSkipped   Status = "skipped"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSkipped || s == StatusCompleted || s == StatusFailed
}

// StageReport is the terminal state of one stage of a pipeline run.
type StageReport struct {
	Name     string
	Status   Status
	Duration time.Duration
}

// PipelineResult summarises a sequential pipeline run.
type PipelineResult struct {
	Pipeline string
	// Completed lists the stages whose body ran to completion, in order.
	Completed []string
	// Skipped lists the stages whose body never ran because a callback skipped them.
	Skipped []string
	Stages  []StageReport
	// LastOutcome is the outcome of the last completed stage.
	LastOutcome Outcome
	Failure     *StageFailure
	// Partial is set when the run stopped early, either by failure or by a
	// stop-remaining signal.
	Partial bool
}

// Err returns the failure as an error, or nil for a successful run.
func (r *PipelineResult) Err() error {
	if r == nil || r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Request is one top-level call into the engine.
type Request struct {
	ID         string
	SessionID  string
	UserID     string
	Text       string
	Label      string
	ReceivedAt time.Time
}

// Response is returned from the engine entry point.
type Response struct {
	RequestID string         `json:"request_id"`
	SessionID string         `json:"session_id"`
	Handler   string         `json:"handler"`
	Label     string         `json:"label"`
	Text      string         `json:"text"`
	Status    Status         `json:"status"`
	Partial   bool           `json:"partial"`
	Completed []string       `json:"completed,omitempty"`
	Skipped   []string       `json:"skipped,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventType names a lifecycle point at which callbacks fire.
type EventType string

const (
	// EventBeforeHandlerEntry fires before any handler body runs; callbacks may skip it.
	EventBeforeHandlerEntry EventType = "before_handler_entry"
	// EventBeforeModelInvocation fires before a handler calls the reasoning capability.
	EventBeforeModelInvocation EventType = "before_model_invocation"
	// EventAfterToolExecution fires after a tool call returns and may reject its result.
	EventAfterToolExecution EventType = "after_tool_execution"
	// EventAfterHandlerExit fires once the invocation reached a terminal status.
	EventAfterHandlerExit EventType = "after_handler_exit"
)

// Action is what a single callback asks the dispatcher to do.
type Action int

const (
	// ActionContinue leaves execution unchanged.
	ActionContinue Action = iota
	// ActionSkip short-circuits the current handler body (or model call).
	ActionSkip
	// ActionModify reports that the callback mutated the execution context.
	ActionModify
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionSkip:
		return "skip"
	case ActionModify:
		return "modify"
	default:
		return "unknown"
	}
}

// Decision is the aggregate result of dispatching one event.
type Decision struct {
	Action Action
	// Fired is the number of callbacks that ran.
	Fired int
}
