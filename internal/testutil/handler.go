package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hupe1980/tripmesh/core"
)

// MockHandler is a testify mock implementing core.Handler.
//
//	h := testutil.NewMockHandler("rank")
//	h.On("Handle", mock.Anything, mock.Anything).Return(core.Outcome{Text: "ok"}, nil)
type MockHandler struct {
	mock.Mock
	name string
}

// NewMockHandler creates a mock handler with the given name.
func NewMockHandler(name string) *MockHandler {
	return &MockHandler{name: name}
}

// Name implements core.Handler.
func (m *MockHandler) Name() string { return m.name }

// Handle implements core.Handler.
func (m *MockHandler) Handle(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
	args := m.Called(ctx, ec)
	return args.Get(0).(core.Outcome), args.Error(1)
}

// HandlerFunc is a named function handler for tests that need custom bodies.
type HandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error)
}

// Name implements core.Handler.
func (h HandlerFunc) Name() string { return h.HandlerName }

// Handle implements core.Handler.
func (h HandlerFunc) Handle(ctx context.Context, ec *core.ExecutionContext) (core.Outcome, error) {
	return h.Fn(ctx, ec)
}

// ReasonerFunc adapts a function to core.Reasoner.
type ReasonerFunc func(ctx context.Context, prompt string, state map[string]any) (string, error)

// Reason implements core.Reasoner.
func (f ReasonerFunc) Reason(ctx context.Context, prompt string, state map[string]any) (string, error) {
	return f(ctx, prompt, state)
}

// ToolsFunc adapts a function to core.ToolInvoker.
type ToolsFunc func(ctx context.Context, name string, args map[string]any) (any, error)

// Invoke implements core.ToolInvoker.
func (f ToolsFunc) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	return f(ctx, name, args)
}
