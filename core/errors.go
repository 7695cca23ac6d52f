package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrRouting               = errors.New("routing error")
	ErrHandlerNotFound       = errors.New("handler not found")
	ErrDuplicateRegistration = errors.New("duplicate registration")
	ErrStageFailure          = errors.New("stage failure")
	ErrTimeout               = errors.New("timeout")
	ErrValidation            = errors.New("validation error")

	// ErrNoReasoner is returned by InvokeReasoning when no reasoning capability is configured.
	ErrNoReasoner = errors.New("no reasoning capability configured")
	// ErrNoTools is returned by InvokeTool when no tool capability is configured.
	ErrNoTools = errors.New("no tool capability configured")
	// ErrCallBudgetExhausted is returned by InvokeReasoning once a request used up its reasoning calls.
	ErrCallBudgetExhausted = errors.New("reasoning call budget exhausted")
)

// RoutingError reports that no binding matched a classification and no default is configured.
type RoutingError struct {
	Label string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no handler bound for label %q", e.Label)
}

// Is implements errors.Is.
func (e *RoutingError) Is(target error) bool { return target == ErrRouting }

// HandlerNotFoundError reports a lookup of an unregistered handler name.
type HandlerNotFoundError struct {
	Name string
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("handler %q not found", e.Name)
}

// Is implements errors.Is.
func (e *HandlerNotFoundError) Is(target error) bool { return target == ErrHandlerNotFound }

// DuplicateRegistrationError reports a second registration under an existing name.
type DuplicateRegistrationError struct {
	Name string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("handler %q already registered", e.Name)
}

// Is implements errors.Is.
func (e *DuplicateRegistrationError) Is(target error) bool { return target == ErrDuplicateRegistration }

// TimeoutError reports that a bounded external call exceeded its deadline.
type TimeoutError struct {
	Operation string // "reasoning" or "tool:<name>"
	Handler   string
	After     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s in handler %q timed out after %s", e.Operation, e.Handler, e.After)
}

// Is implements errors.Is.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// ValidationError reports that an AfterToolExecution callback rejected a tool result.
type ValidationError struct {
	Handler string
	Tool    string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("result of tool %q in handler %q rejected: %s", e.Tool, e.Handler, e.Reason)
}

// Is implements errors.Is.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StageFailure is the unrecoverable failure of a single stage. It carries the
// stages completed before the failure so callers can report partial progress.
type StageFailure struct {
	Stage     string
	Completed []string
	Cause     error
	// Timeout is set when the cause is a TimeoutError.
	Timeout bool
	// Retryable tells callers whether repeating the request may succeed.
	// The core itself never retries.
	Retryable bool
}

// NewStageFailure wraps cause and classifies it.
func NewStageFailure(stage string, completed []string, cause error) *StageFailure {
	f := &StageFailure{Stage: stage, Completed: append([]string(nil), completed...), Cause: cause}

	var timeout *TimeoutError
	switch {
	case errors.As(cause, &timeout):
		f.Timeout = true
		f.Retryable = true
	case errors.Is(cause, context.Canceled), errors.Is(cause, context.DeadlineExceeded):
		f.Retryable = true
	}

	return f
}

func (e *StageFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage %q failed", e.Stage)
	if e.Timeout {
		b.WriteString(" (timeout)")
	}
	if len(e.Completed) > 0 {
		fmt.Fprintf(&b, " after completing [%s]", strings.Join(e.Completed, ", "))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *StageFailure) Unwrap() error { return e.Cause }

// Is implements errors.Is.
func (e *StageFailure) Is(target error) bool { return target == ErrStageFailure }

// IsTerminal reports whether err belongs to the configuration class of errors
// (routing, lookup, registration) that are surfaced to the user unchanged.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrRouting) || errors.Is(err, ErrHandlerNotFound) || errors.Is(err, ErrDuplicateRegistration)
}
