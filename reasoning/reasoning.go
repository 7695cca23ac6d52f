// Package reasoning provides core.Reasoner implementations: adapters for the
// OpenAI and Anthropic APIs in the sub packages, plus static reasoners for
// offline use and tests.
//
// Provider adapters accept an optional instruction template that is rendered
// with the request's state snapshot (qualified keys, e.g. {{ index . "user:call_count" }})
// and sent as the system prompt.
package reasoning

import (
	"context"
	"strings"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/internal/util"
)

// DefaultTemperature and DefaultMaxTokens apply when a provider is configured without them.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

// Info contains metadata about a reasoner implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "static"
}

// Describer is implemented by reasoners that report their Info.
type Describer interface {
	Info() Info
}

// Static always answers with the same text. An empty Text echoes the prompt.
type Static struct {
	Text string
}

var _ core.Reasoner = Static{}

// Reason implements core.Reasoner.
func (s Static) Reason(_ context.Context, prompt string, _ map[string]any) (string, error) {
	if s.Text == "" {
		return prompt, nil
	}
	return s.Text, nil
}

// Info implements Describer.
func (s Static) Info() Info { return Info{Name: "static", Provider: "static"} }

// Func adapts a function to core.Reasoner.
type Func func(ctx context.Context, prompt string, state map[string]any) (string, error)

// Reason implements core.Reasoner.
func (f Func) Reason(ctx context.Context, prompt string, state map[string]any) (string, error) {
	return f(ctx, prompt, state)
}

// RenderInstruction renders a system instruction template against state.
// Instructions without template markers are returned unchanged.
func RenderInstruction(instruction string, state map[string]any) (string, error) {
	if strings.TrimSpace(instruction) == "" {
		return "", nil
	}
	return util.RenderTemplate(instruction, state)
}
