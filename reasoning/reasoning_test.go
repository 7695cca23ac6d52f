package reasoning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	out, err := Static{Text: "fixed"}.Reason(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", out)

	out, err = Static{}.Reason(context.Background(), "prompt", nil)
	require.NoError(t, err)
	assert.Equal(t, "prompt", out)
}

func TestRenderInstruction(t *testing.T) {
	out, err := RenderInstruction(`You help {{ default "a traveller" .user_name }} (visit {{ index . "user:call_count" }}).`, map[string]any{"user:call_count": 3})
	require.NoError(t, err)
	assert.Equal(t, "You help a traveller (visit 3).", out)

	out, err = RenderInstruction("  ", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLLMClassifier(t *testing.T) {
	labels := []string{"weather", "holiday", "city_info", "scholarship"}

	tests := []struct {
		answer string
		want   string
	}{
		{"weather", "weather"},
		{"  Holiday\n", "holiday"},
		{"The category is city_info.", "city_info"},
		{"no idea", UnknownLabel},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			var prompt string
			c := NewLLMClassifier(Func(func(_ context.Context, p string, _ map[string]any) (string, error) {
				prompt = p
				return tt.answer, nil
			}), labels...)

			got, err := c.Classify(context.Background(), "Is it sunny in Doha?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, prompt, "weather, holiday, city_info, scholarship")
			assert.Contains(t, prompt, "Is it sunny in Doha?")
		})
	}
}

func TestLLMClassifier_Error(t *testing.T) {
	c := NewLLMClassifier(Func(func(context.Context, string, map[string]any) (string, error) {
		return "", errors.New("offline")
	}), "weather")

	_, err := c.Classify(context.Background(), "x")
	assert.ErrorContains(t, err, "offline")
}
