package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/logging"
)

// Declaration describes a tool to a reasoning model.
type Declaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// SetOptions configures a Set.
type SetOptions struct {
	Logger logging.Logger
}

// Set is a named collection of tools. It implements core.ToolInvoker and is
// what the engine hands to handlers as their tool capability.
type Set struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
}

var _ core.ToolInvoker = (*Set)(nil)

// NewSet creates a set holding tools.
func NewSet(tools []Tool, optFns ...func(o *SetOptions)) (*Set, error) {
	opts := SetOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Set{tools: make(map[string]Tool, len(tools)), logger: opts.Logger}
	if err := s.Add(tools...); err != nil {
		return nil, err
	}

	return s, nil
}

// Add registers tools. Names must be unique.
func (s *Set) Add(tools ...Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tools {
		if _, exists := s.tools[t.Name()]; exists {
			return fmt.Errorf("tool %q already registered", t.Name())
		}
		s.tools[t.Name()] = t
	}

	return nil
}

// Get returns the named tool.
func (s *Set) Get(name string) (Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tools[name]
	return t, ok
}

// Declarations returns the declarations of all tools sorted by name.
func (s *Set) Declarations() []Declaration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Declaration, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, Declaration{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Invoke implements core.ToolInvoker. Unknown names fail with a NOT_FOUND *ToolError.
func (s *Set) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := s.Get(name)
	if !ok {
		return nil, NewToolError(name, "tool is not registered", CodeNotFound)
	}

	start := time.Now()
	s.logger.Debug("tool.call.start", "tool", name)

	result, err := t.Call(ctx, args)
	logging.LogToolCall(s.logger, name, time.Since(start), err)

	return result, err
}
