package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, captured *map[string]any, body string) *anthropic.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := anthropic.NewClient(option.WithBaseURL(srv.URL), option.WithAPIKey("test"), option.WithMaxRetries(0))
	return &client
}

func TestReasoner_Reason(t *testing.T) {
	var req map[string]any
	client := newTestClient(t, &req, `{
	  "id": "msg_1", "type": "message", "role": "assistant", "model": "claude-3-5-sonnet-20241022",
	  "content": [{"type": "text", "text": "Try the Louvre "}, {"type": "text", "text": "on a rainy day."}],
	  "stop_reason": "end_turn", "stop_sequence": null,
	  "usage": {"input_tokens": 3, "output_tokens": 7}
	}`)

	r := NewReasonerFromClient(client, func(o *Options) {
		o.Instruction = "Level: {{ .study_level }}"
		o.MaxTokens = 256
	})

	out, err := r.Reason(context.Background(), "Ideas for Paris?", map[string]any{"study_level": "master"})
	require.NoError(t, err)
	assert.Equal(t, "Try the Louvre on a rainy day.", out)

	assert.EqualValues(t, 256, req["max_tokens"])
	system, ok := req["system"].([]any)
	require.True(t, ok)
	assert.Equal(t, "Level: master", system[0].(map[string]any)["text"])
}

func TestReasoner_NoText(t *testing.T) {
	client := newTestClient(t, nil, `{
	  "id": "msg_2", "type": "message", "role": "assistant", "model": "claude-3-5-sonnet-20241022",
	  "content": [], "stop_reason": "end_turn", "stop_sequence": null,
	  "usage": {"input_tokens": 3, "output_tokens": 0}
	}`)

	_, err := NewReasonerFromClient(client).Reason(context.Background(), "hi", nil)
	assert.ErrorContains(t, err, "no text")
}

func TestReasoner_Info(t *testing.T) {
	r := NewReasoner(func(o *Options) { o.APIKey = "k" })
	assert.Equal(t, "anthropic", r.Info().Provider)
	assert.Equal(t, string(anthropic.ModelClaude3_5Sonnet20241022), r.Info().Name)
}
