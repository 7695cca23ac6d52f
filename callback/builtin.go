package callback

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/logging"
)

var timeNow = func() time.Time { return time.Now().UTC() }

const (
	// SkipProcessingKey is the session key that, when true, makes EntryCounter skip every handler.
	SkipProcessingKey = "skip_processing"
	// CurrentHandlerKey is the temp key EntryCounter sets to the handler being entered.
	CurrentHandlerKey = "current_handler"
	// DefaultCounterKey is the user key counted by EntryCounter.
	DefaultCounterKey = "call_count"
)

// EntryCounter returns a BeforeHandlerEntry callback that counts handler
// entries per user under user:<counterKey>, records the handler being entered
// under temp:current_handler and skips the handler while the session flag
// skip_processing is true.
func EntryCounter(counterKey string) Func {
	if counterKey == "" {
		counterKey = DefaultCounterKey
	}

	return func(ctx context.Context, ec *core.ExecutionContext) (core.Action, error) {
		n, err := ec.State.Increment(ctx, core.ScopeUser, counterKey)
		if err != nil {
			return core.ActionContinue, fmt.Errorf("count entry: %w", err)
		}

		if err := ec.State.Set(ctx, core.ScopeTemp, CurrentHandlerKey, ec.Handler); err != nil {
			return core.ActionContinue, fmt.Errorf("set current handler: %w", err)
		}

		ec.Metadata[counterKey] = n

		if skip, _ := core.GetOr(ctx, ec.State, core.ScopeSession, SkipProcessingKey, false).(bool); skip {
			ec.Metadata["skip_reason"] = SkipProcessingKey
			return core.ActionSkip, nil
		}

		return core.ActionModify, nil
	}
}

// PromptInspector returns a BeforeModelInvocation callback that logs the
// beginning of every prompt. It never changes the call.
func PromptInspector(logger logging.Logger) Func {
	return func(_ context.Context, ec *core.ExecutionContext) (core.Action, error) {
		if ec.Model == nil {
			return core.ActionContinue, nil
		}

		logger.Info("before model invocation", "handler", ec.Handler, "prompt", truncate(ec.Model.Prompt, 50), "remaining_calls", ec.Model.Remaining)

		return core.ActionContinue, nil
	}
}

// ToolResultLogger returns an AfterToolExecution callback that logs which tool ran and the shape of its result.
func ToolResultLogger(logger logging.Logger) Func {
	return func(_ context.Context, ec *core.ExecutionContext) (core.Action, error) {
		if ec.Tool == nil {
			return core.ActionContinue, nil
		}

		logger.Info("after tool execution", "handler", ec.Handler, "tool", ec.Tool.Name, "result_type", fmt.Sprintf("%T", ec.Tool.Result), "empty", isEmpty(ec.Tool.Result))

		return core.ActionContinue, nil
	}
}

// RequireNonEmptyResult returns an AfterToolExecution callback that rejects
// nil results and empty strings, slices and maps.
func RequireNonEmptyResult() Func {
	return func(_ context.Context, ec *core.ExecutionContext) (core.Action, error) {
		if ec.Tool == nil {
			return core.ActionContinue, nil
		}

		if isEmpty(ec.Tool.Result) {
			return core.ActionContinue, &core.ValidationError{Handler: ec.Handler, Tool: ec.Tool.Name, Reason: "empty result"}
		}

		return core.ActionContinue, nil
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}

	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
