package reasoning

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/tripmesh/core"
)

// UnknownLabel is returned by LLMClassifier when the answer names no known label.
const UnknownLabel = "unknown"

// LLMClassifier asks a reasoner to pick one label from a fixed set.
type LLMClassifier struct {
	reasoner core.Reasoner
	labels   []string
}

var _ core.Classifier = (*LLMClassifier)(nil)

// NewLLMClassifier creates a classifier choosing among labels.
func NewLLMClassifier(reasoner core.Reasoner, labels ...string) *LLMClassifier {
	return &LLMClassifier{reasoner: reasoner, labels: labels}
}

// Classify implements core.Classifier. Classification is not part of a
// handler invocation, so no callbacks fire for this call.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(
		"Classify the user request into exactly one of these categories: %s.\nAnswer with the category name only.\n\nRequest: %s",
		strings.Join(c.labels, ", "), text,
	)

	answer, err := c.reasoner.Reason(ctx, prompt, nil)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}

	return c.match(answer), nil
}

func (c *LLMClassifier) match(answer string) string {
	answer = strings.ToLower(strings.TrimSpace(answer))

	for _, l := range c.labels {
		if answer == strings.ToLower(l) {
			return l
		}
	}

	// Models like to answer in sentences.
	for _, l := range c.labels {
		if strings.Contains(answer, strings.ToLower(l)) {
			return l
		}
	}

	return UnknownLabel
}
