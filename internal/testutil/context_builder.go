package testutil

import (
	"context"
	"time"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/state"
)

// ContextBuilder helps construct execution contexts with fluent chaining for tests.
// Example:
//
//	ec := testutil.NewContextBuilder().Text("weather in Paris").State("user:call_count", 2).Build()
//
// Defaults: request "req-1", session "sess-1", user "user-1", in-memory state.
type ContextBuilder struct {
	req      core.Request
	values   map[string]any
	users    state.UserBackend
	services core.Services
}

// NewContextBuilder creates a builder with default identifiers.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{
		req:    core.Request{ID: "req-1", SessionID: "sess-1", UserID: "user-1", ReceivedAt: time.Now()},
		values: map[string]any{},
	}
}

// Text sets the request text (chainable).
func (b *ContextBuilder) Text(text string) *ContextBuilder { b.req.Text = text; return b }

// Label sets the classification label (chainable).
func (b *ContextBuilder) Label(label string) *ContextBuilder { b.req.Label = label; return b }

// User sets the owning user (chainable).
func (b *ContextBuilder) User(id string) *ContextBuilder { b.req.UserID = id; return b }

// Session sets the session id (chainable).
func (b *ContextBuilder) Session(id string) *ContextBuilder { b.req.SessionID = id; return b }

// State seeds a qualified key before the context is built (chainable).
func (b *ContextBuilder) State(qualifiedKey string, value any) *ContextBuilder {
	b.values[qualifiedKey] = value
	return b
}

// Users shares a user backend between several built contexts (chainable).
func (b *ContextBuilder) Users(users state.UserBackend) *ContextBuilder { b.users = users; return b }

// Services replaces the collaborators of the built context (chainable).
func (b *ContextBuilder) Services(s core.Services) *ContextBuilder { b.services = s; return b }

// Dispatcher sets the callback dispatcher (chainable).
func (b *ContextBuilder) Dispatcher(d core.Dispatcher) *ContextBuilder { b.services.Dispatcher = d; return b }

// Runner sets the stage runner (chainable).
func (b *ContextBuilder) Runner(r core.StageRunner) *ContextBuilder { b.services.Runner = r; return b }

// Reasoner sets the reasoning capability (chainable).
func (b *ContextBuilder) Reasoner(r core.Reasoner) *ContextBuilder { b.services.Reasoner = r; return b }

// Tools sets the tool capability (chainable).
func (b *ContextBuilder) Tools(t core.ToolInvoker) *ContextBuilder { b.services.Tools = t; return b }

// Recorder sets the observability sink (chainable).
func (b *ContextBuilder) Recorder(r core.Recorder) *ContextBuilder { b.services.Recorder = r; return b }

// Timeout sets the bound on reasoning and tool calls (chainable).
func (b *ContextBuilder) Timeout(d time.Duration) *ContextBuilder { b.services.CallTimeout = d; return b }

// Build returns the root context of a request with the seeded state.
func (b *ContextBuilder) Build() *core.ExecutionContext {
	store := state.New(b.req.UserID, b.users)

	ctx := context.Background()
	for k, v := range b.values {
		scope, key := core.ParseKey(k)
		if err := store.Set(ctx, scope, key, v); err != nil {
			panic(err)
		}
	}

	services := b.services
	return core.NewExecutionContext(b.req, store, &services)
}

// BuildFor returns a context already scoped to the named handler.
func (b *ContextBuilder) BuildFor(handler string) *core.ExecutionContext {
	return b.Build().ForHandler(handler)
}
