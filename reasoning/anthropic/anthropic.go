// Package anthropic provides a core.Reasoner backed by the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/reasoning"
)

// Options configures the Anthropic reasoner (temperature, model id,
// max tokens, API key, instruction template).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
	// Instruction is a system prompt template rendered with the state snapshot.
	Instruction string
}

// Reasoner wraps the Anthropic Messages API behind core.Reasoner.
type Reasoner struct {
	client *anthropic.Client
	opts   Options
}

var _ core.Reasoner = (*Reasoner)(nil)

// NewReasoner creates a new Anthropic reasoner using the official client.
func NewReasoner(optFns ...func(o *Options)) *Reasoner {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Reasoner{client: &client, opts: opts}
}

// NewReasonerFromClient creates a new Anthropic reasoner from an existing client.
func NewReasonerFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Reasoner {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Reasoner{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: reasoning.DefaultTemperature,
		MaxTokens:   reasoning.DefaultMaxTokens,
	}
}

// Reason implements core.Reasoner.
func (r *Reasoner) Reason(ctx context.Context, prompt string, state map[string]any) (string, error) {
	system, err := reasoning.RenderInstruction(r.opts.Instruction, state)
	if err != nil {
		return "", fmt.Errorf("render instruction: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:       r.opts.Model,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		MaxTokens:   r.opts.MaxTokens,
		Temperature: anthropic.Float(r.opts.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}

	if b.Len() == 0 {
		return "", errors.New("anthropic api returned no text")
	}

	return b.String(), nil
}

// Info implements reasoning.Describer.
func (r *Reasoner) Info() reasoning.Info {
	return reasoning.Info{Name: string(r.opts.Model), Provider: "anthropic"}
}
