// Package callback implements the lifecycle hook table consulted by the
// pipeline executor and by the reasoning and tool helpers of
// core.ExecutionContext.
//
// Callbacks are registered for an (event, target) pair. The target is either
// Global, applying to every handler, or a single handler name. Dispatching an
// event for handler H runs, in registration order, every callback registered
// for that event whose target is Global or H. Each callback sees the mutations
// of the callbacks before it because they all share the same
// *core.ExecutionContext.
package callback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/logging"
)

// Target selects the handlers a registration applies to.
type Target struct {
	handler string
}

// Global applies a registration to every handler.
var Global = Target{}

// Handler applies a registration to the named handler only.
func Handler(name string) Target { return Target{handler: name} }

// IsGlobal reports whether t applies to every handler.
func (t Target) IsGlobal() bool { return t.handler == "" }

func (t Target) String() string {
	if t.IsGlobal() {
		return "global"
	}
	return t.handler
}

func (t Target) matches(handler string) bool {
	return t.IsGlobal() || t.handler == handler
}

// Callback is a lifecycle hook.
//
// Execute may read and mutate the execution context. The returned action tells
// the dispatcher how to proceed:
//   - core.ActionContinue: nothing to report
//   - core.ActionModify: the context was mutated
//   - core.ActionSkip: skip the handler body (or the model call) and end the chain
//
// A non-nil error ends the chain and is returned to the dispatching code. For
// AfterToolExecution an error rejects the tool result and fails the stage.
type Callback interface {
	Execute(ctx context.Context, ec *core.ExecutionContext) (core.Action, error)
}

// Func adapts a plain function to Callback.
type Func func(ctx context.Context, ec *core.ExecutionContext) (core.Action, error)

// Execute implements Callback.
func (f Func) Execute(ctx context.Context, ec *core.ExecutionContext) (core.Action, error) {
	return f(ctx, ec)
}

type registration struct {
	name     string
	target   Target
	callback Callback
}

// Options configures a Dispatcher.
type Options struct {
	// Recorder receives one record per callback firing.
	Recorder core.Recorder
	Logger   logging.Logger
}

// Dispatcher is the (event, target) hook table. It is safe for concurrent use;
// registrations made while a dispatch is running apply to later dispatches.
type Dispatcher struct {
	opts          Options
	mu            sync.RWMutex
	registrations map[core.EventType][]registration
}

var _ core.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		Recorder: core.NopRecorder{},
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Dispatcher{opts: opts, registrations: make(map[core.EventType][]registration)}
}

// Register adds cb for event and target. name identifies the callback in logs
// and observability records.
func (d *Dispatcher) Register(event core.EventType, target Target, name string, cb Callback) error {
	if !knownEvent(event) {
		return fmt.Errorf("unknown callback event %q", event)
	}
	if cb == nil {
		return errors.New("callback must not be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if name == "" {
		name = fmt.Sprintf("%s#%d", event, len(d.registrations[event])+1)
	}

	d.registrations[event] = append(d.registrations[event], registration{name: name, target: target, callback: cb})

	return nil
}

// RegisterFunc is Register for a plain function.
func (d *Dispatcher) RegisterFunc(event core.EventType, target Target, name string, fn func(ctx context.Context, ec *core.ExecutionContext) (core.Action, error)) error {
	return d.Register(event, target, name, Func(fn))
}

// Count returns the number of registrations for event across all targets.
func (d *Dispatcher) Count(event core.EventType) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.registrations[event])
}

// Dispatch runs the callbacks for event that apply to ec.Handler.
//
// The returned decision is Skip when a callback of this chain set the
// context's skip flag, which also ends the chain, Modify when any callback reported a modification, and Continue
// otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, event core.EventType, ec *core.ExecutionContext) (core.Decision, error) {
	d.mu.RLock()
	chain := d.registrations[event]
	d.mu.RUnlock()

	decision := core.Decision{Action: core.ActionContinue}
	alreadySkipped := ec.Skip
	modified := false

	for i, reg := range chain {
		if !reg.target.matches(ec.Handler) {
			continue
		}

		action, err := reg.callback.Execute(ctx, ec)
		decision.Fired++

		meta := map[string]any{"callback": reg.name, "index": i, "target": reg.target.String(), "action": action.String()}
		if event == core.EventBeforeModelInvocation && ec.Model != nil {
			meta["remaining_calls"] = ec.Model.Remaining
		}
		if err != nil {
			meta["error"] = err.Error()
		}
		d.opts.Recorder.Record(ctx, core.Record{
			EventType: string(event),
			Handler:   ec.Handler,
			Timestamp: timeNow(),
			Metadata:  meta,
		})

		if err != nil {
			d.opts.Logger.Warn("callback failed", "event", string(event), "handler", ec.Handler, "callback", reg.name, "error", err.Error())
			return decision, fmt.Errorf("callback %s on %s: %w", reg.name, event, err)
		}

		d.opts.Logger.Debug("callback fired", "event", string(event), "handler", ec.Handler, "callback", reg.name, "action", action.String())

		switch action {
		case core.ActionSkip:
			ec.Skip = true
		case core.ActionModify:
			modified = true
		}

		if ec.Skip && !alreadySkipped {
			break
		}
	}

	switch {
	case ec.Skip && !alreadySkipped:
		decision.Action = core.ActionSkip
	case modified:
		decision.Action = core.ActionModify
	}

	return decision, nil
}

func knownEvent(event core.EventType) bool {
	switch event {
	case core.EventBeforeHandlerEntry, core.EventBeforeModelInvocation, core.EventAfterToolExecution, core.EventAfterHandlerExit:
		return true
	}
	return false
}
