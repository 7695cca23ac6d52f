// Package openai provides a core.Reasoner backed by the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/reasoning"
)

// Options configure the OpenAI reasoner.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	// Instruction is a system prompt template rendered with the state snapshot.
	Instruction string
	APIKey      string
}

// Reasoner wraps the OpenAI Chat Completions API behind core.Reasoner.
type Reasoner struct {
	client *openai.Client
	opts   Options
}

var _ core.Reasoner = (*Reasoner)(nil)

// NewReasoner creates a new OpenAI reasoner using the official client. The
// API key defaults to the OPENAI_API_KEY environment variable.
func NewReasoner(optFns ...func(o *Options)) *Reasoner {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := openai.NewClient(clientOpts...)

	return &Reasoner{client: &client, opts: opts}
}

// NewReasonerFromClient creates a new OpenAI reasoner from an existing client.
func NewReasonerFromClient(client *openai.Client, optFns ...func(o *Options)) *Reasoner {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Reasoner{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         reasoning.DefaultTemperature,
		MaxCompletionTokens: reasoning.DefaultMaxTokens,
	}
}

// Reason implements core.Reasoner.
func (r *Reasoner) Reason(ctx context.Context, prompt string, state map[string]any) (string, error) {
	system, err := reasoning.RenderInstruction(r.opts.Instruction, state)
	if err != nil {
		return "", fmt.Errorf("render instruction: %w", err)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               r.opts.Model,
		Temperature:         openai.Float(r.opts.Temperature),
		MaxCompletionTokens: openai.Int(r.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai api returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Info implements reasoning.Describer.
func (r *Reasoner) Info() reasoning.Info {
	return reasoning.Info{Name: r.opts.Model, Provider: "openai"}
}
